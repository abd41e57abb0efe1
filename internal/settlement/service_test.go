package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/internal/wallets"
	"github.com/vendora-labs/vendora-backend/pkg/config"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/outbox"
)

type ownerKey struct {
	ownerType enums.WalletOwnerType
	ownerID   uuid.UUID
}

// memoryWallets applies wallet mutations against in-memory balances and
// records every log row, mirroring the real engine's checks.
type memoryWallets struct {
	byOwner map[ownerKey]*models.Wallet
	byID    map[uuid.UUID]*models.Wallet
	log     []*models.WalletTransaction
}

func newMemoryWallets() *memoryWallets {
	return &memoryWallets{
		byOwner: make(map[ownerKey]*models.Wallet),
		byID:    make(map[uuid.UUID]*models.Wallet),
	}
}

func (m *memoryWallets) EnsureWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	key := ownerKey{ownerType, ownerID}
	if wallet, ok := m.byOwner[key]; ok {
		return wallet, nil
	}
	wallet := &models.Wallet{ID: uuid.New(), OwnerType: ownerType, OwnerID: ownerID}
	m.byOwner[key] = wallet
	m.byID[wallet.ID] = wallet
	return wallet, nil
}

func (m *memoryWallets) EnsureWalletTx(ctx context.Context, tx *gorm.DB, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	return m.EnsureWallet(ctx, ownerType, ownerID)
}

func (m *memoryWallets) LockWallets(ctx context.Context, tx *gorm.DB, walletIDs []uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	locked := make(map[uuid.UUID]*models.Wallet, len(walletIDs))
	for _, id := range walletIDs {
		wallet, ok := m.byID[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		locked[id] = wallet
	}
	return locked, nil
}

func (m *memoryWallets) Balance(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	if wallet, ok := m.byOwner[ownerKey{ownerType, ownerID}]; ok {
		return wallet, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
}

func (m *memoryWallets) Transactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (m *memoryWallets) record(walletID uuid.UUID, kind enums.WalletTransactionType, entry wallets.Entry, before, after decimal.Decimal) *models.WalletTransaction {
	row := &models.WalletTransaction{
		WalletID:      walletID,
		Type:          kind,
		Amount:        entry.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     entry.Reference,
		Description:   entry.Description,
	}
	m.log = append(m.log, row)
	return row
}

func (m *memoryWallets) Credit(ctx context.Context, tx *gorm.DB, entry wallets.Entry) (*models.WalletTransaction, error) {
	wallet := m.byID[entry.WalletID]
	before := wallet.Balance
	wallet.Balance = wallet.Balance.Add(entry.Amount)
	return m.record(wallet.ID, enums.WalletTransactionCredit, entry, before, wallet.Balance), nil
}

func (m *memoryWallets) Debit(ctx context.Context, tx *gorm.DB, entry wallets.Entry) (*models.WalletTransaction, error) {
	wallet := m.byID[entry.WalletID]
	if wallet.Balance.LessThan(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance")
	}
	before := wallet.Balance
	wallet.Balance = wallet.Balance.Sub(entry.Amount)
	return m.record(wallet.ID, enums.WalletTransactionDebit, entry, before, wallet.Balance), nil
}

func (m *memoryWallets) AddPending(ctx context.Context, tx *gorm.DB, entry wallets.Entry) (*models.WalletTransaction, error) {
	wallet := m.byID[entry.WalletID]
	before := wallet.PendingBalance
	wallet.PendingBalance = wallet.PendingBalance.Add(entry.Amount)
	return m.record(wallet.ID, enums.WalletTransactionPendingCredit, entry, before, wallet.PendingBalance), nil
}

func (m *memoryWallets) ConfirmPending(ctx context.Context, tx *gorm.DB, entry wallets.Entry) (*models.WalletTransaction, error) {
	wallet := m.byID[entry.WalletID]
	if wallet.PendingBalance.LessThan(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirm amount exceeds pending balance")
	}
	before := wallet.Balance
	wallet.PendingBalance = wallet.PendingBalance.Sub(entry.Amount)
	wallet.Balance = wallet.Balance.Add(entry.Amount)
	return m.record(wallet.ID, enums.WalletTransactionPendingConfirmed, entry, before, wallet.Balance), nil
}

func (m *memoryWallets) AuditCredit(ctx context.Context, tx *gorm.DB, entry wallets.AuditEntry) (*models.WalletTransaction, error) {
	if !entry.BalanceAfter.Sub(entry.BalanceBefore).Equal(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit snapshots do not sum to amount")
	}
	row := &models.WalletTransaction{
		WalletID:      entry.WalletID,
		Type:          enums.WalletTransactionAudit,
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Reference:     entry.Reference,
		Description:   entry.Description,
	}
	m.log = append(m.log, row)
	return row, nil
}

type capturingPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (p *capturingPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func settlementConfig() config.SettlementConfig {
	return config.SettlementConfig{PlatformSharePercent: 70, PartnerSharePercent: 30}
}

func newTestSettlement(t *testing.T, store *memoryWallets, publisher *capturingPublisher) Service {
	t.Helper()
	svc, err := NewService(store, publisher, settlementConfig(), nil, logger.New(logger.Options{ServiceName: "settlement-test"}))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func dispatchedTestItem(t *testing.T, companyID *uuid.UUID) (*models.OrderItem, *models.Order) {
	t.Helper()
	order := &models.Order{ID: uuid.New(), CustomerID: uuid.New()}
	item := &models.OrderItem{
		ID:                 uuid.New(),
		OrderID:            order.ID,
		VendorID:           uuid.New(),
		ProductID:          uuid.New(),
		ProductName:        "Industrial Mixer",
		Quantity:           1,
		Subtotal:           decimal.RequireFromString("10000.00"),
		FulfillmentStatus:  enums.FulfillmentStatusDispatched,
		LogisticsCompanyID: companyID,
		LogisticsFee:       decimal.RequireFromString("800.00"),
		CommissionPercent:  decimal.RequireFromString("15"),
		PendingAmount:      decimal.RequireFromString("8500.00"),
	}
	return item, order
}

func TestService_SettleReferenceScenario(t *testing.T) {
	store := newMemoryWallets()
	publisher := &capturingPublisher{}
	svc := newTestSettlement(t, store, publisher)
	ctx := context.Background()

	companyID := uuid.New()
	item, order := dispatchedTestItem(t, &companyID)

	vendorWallet, _ := store.EnsureWallet(ctx, enums.WalletOwnerVendor, item.VendorID)
	vendorWallet.PendingBalance = item.PendingAmount

	result, err := svc.Settle(ctx, &gorm.DB{}, item, order, nil)
	if err != nil {
		t.Fatalf("Settle error: %v", err)
	}
	if result.Reference != "settle-"+item.ID.String() {
		t.Fatalf("reference = %s", result.Reference)
	}

	if !vendorWallet.Balance.Equal(decimal.RequireFromString("7700.00")) {
		t.Errorf("vendor balance = %s", vendorWallet.Balance)
	}
	if !vendorWallet.PendingBalance.IsZero() {
		t.Errorf("vendor pending = %s", vendorWallet.PendingBalance)
	}

	platformWallet, _ := store.Balance(ctx, enums.WalletOwnerPlatform, uuid.Nil)
	if !platformWallet.Balance.Equal(decimal.RequireFromString("1050.00")) {
		t.Errorf("platform balance = %s", platformWallet.Balance)
	}
	partnerWallet, _ := store.Balance(ctx, enums.WalletOwnerRevenuePartner, uuid.Nil)
	if !partnerWallet.Balance.Equal(decimal.RequireFromString("450.00")) {
		t.Errorf("partner balance = %s", partnerWallet.Balance)
	}
	logisticsWallet, _ := store.Balance(ctx, enums.WalletOwnerLogistics, companyID)
	if !logisticsWallet.Balance.Equal(decimal.RequireFromString("800.00")) {
		t.Errorf("logistics balance = %s", logisticsWallet.Balance)
	}

	// confirm + debit + audit + three credits
	if len(store.log) != 6 {
		t.Fatalf("expected 6 ledger rows, got %d", len(store.log))
	}
	for _, row := range store.log {
		if row.Reference != result.Reference {
			t.Errorf("row reference = %s", row.Reference)
		}
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(publisher.events))
	}
	if publisher.events[0].EventType != enums.EventOrderItemSettled {
		t.Errorf("event type = %s", publisher.events[0].EventType)
	}
}

func TestService_SettleWithoutLogistics(t *testing.T) {
	store := newMemoryWallets()
	publisher := &capturingPublisher{}
	svc := newTestSettlement(t, store, publisher)
	ctx := context.Background()

	item, order := dispatchedTestItem(t, nil)
	item.LogisticsFee = decimal.Zero
	item.LogisticsCompanyID = nil

	vendorWallet, _ := store.EnsureWallet(ctx, enums.WalletOwnerVendor, item.VendorID)
	vendorWallet.PendingBalance = item.PendingAmount

	_, err := svc.Settle(ctx, &gorm.DB{}, item, order, nil)
	if err != nil {
		t.Fatalf("Settle error: %v", err)
	}

	if !vendorWallet.Balance.Equal(decimal.RequireFromString("8500.00")) {
		t.Errorf("vendor balance = %s", vendorWallet.Balance)
	}
	// confirm + audit + two credits, no fee debit, no logistics credit
	if len(store.log) != 4 {
		t.Fatalf("expected 4 ledger rows, got %d", len(store.log))
	}
}

func TestService_SettleRequiresDispatchedState(t *testing.T) {
	store := newMemoryWallets()
	svc := newTestSettlement(t, store, &capturingPublisher{})

	item, order := dispatchedTestItem(t, nil)
	item.FulfillmentStatus = enums.FulfillmentStatusPending

	_, err := svc.Settle(context.Background(), &gorm.DB{}, item, order, nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestService_SettleFailsWhenPendingShort(t *testing.T) {
	store := newMemoryWallets()
	publisher := &capturingPublisher{}
	svc := newTestSettlement(t, store, publisher)
	ctx := context.Background()

	companyID := uuid.New()
	item, order := dispatchedTestItem(t, &companyID)

	vendorWallet, _ := store.EnsureWallet(ctx, enums.WalletOwnerVendor, item.VendorID)
	vendorWallet.PendingBalance = decimal.RequireFromString("100.00")

	_, err := svc.Settle(ctx, &gorm.DB{}, item, order, nil)
	if err == nil {
		t.Fatal("expected settlement to fail")
	}
	if len(publisher.events) != 0 {
		t.Fatalf("no event should be emitted, got %d", len(publisher.events))
	}
}

func TestService_SettleZeroCommission(t *testing.T) {
	store := newMemoryWallets()
	publisher := &capturingPublisher{}
	svc := newTestSettlement(t, store, publisher)
	ctx := context.Background()

	item, order := dispatchedTestItem(t, nil)
	item.CommissionPercent = decimal.Zero
	item.LogisticsFee = decimal.Zero
	item.LogisticsCompanyID = nil
	item.PendingAmount = item.Subtotal

	vendorWallet, _ := store.EnsureWallet(ctx, enums.WalletOwnerVendor, item.VendorID)
	vendorWallet.PendingBalance = item.PendingAmount

	result, err := svc.Settle(ctx, &gorm.DB{}, item, order, nil)
	if err != nil {
		t.Fatalf("settle with zero commission failed: %v", err)
	}

	if !vendorWallet.Balance.Equal(item.Subtotal) {
		t.Errorf("vendor balance = %s, want full subtotal", vendorWallet.Balance)
	}
	if !vendorWallet.PendingBalance.IsZero() {
		t.Errorf("vendor pending = %s", vendorWallet.PendingBalance)
	}

	platformWallet, _ := store.Balance(ctx, enums.WalletOwnerPlatform, uuid.Nil)
	if !platformWallet.Balance.IsZero() {
		t.Errorf("platform balance = %s, want zero", platformWallet.Balance)
	}
	partnerWallet, _ := store.Balance(ctx, enums.WalletOwnerRevenuePartner, uuid.Nil)
	if !partnerWallet.Balance.IsZero() {
		t.Errorf("partner balance = %s, want zero", partnerWallet.Balance)
	}

	// confirm + audit only: no zero-amount credits, no fee movement
	if len(store.log) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(store.log))
	}
	if store.log[0].Type != enums.WalletTransactionPendingConfirmed {
		t.Errorf("first row type = %s", store.log[0].Type)
	}
	if store.log[1].Type != enums.WalletTransactionAudit {
		t.Errorf("second row type = %s", store.log[1].Type)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(publisher.events))
	}
	if result.Split.PlatformShare.IsPositive() || result.Split.PartnerShare.IsPositive() {
		t.Errorf("split shares = %s/%s, want zero", result.Split.PlatformShare, result.Split.PartnerShare)
	}
}

func TestService_SettleKeepsFeeWhenNoCompanyAttached(t *testing.T) {
	store := newMemoryWallets()
	publisher := &capturingPublisher{}
	svc := newTestSettlement(t, store, publisher)
	ctx := context.Background()

	item, order := dispatchedTestItem(t, nil)

	vendorWallet, _ := store.EnsureWallet(ctx, enums.WalletOwnerVendor, item.VendorID)
	vendorWallet.PendingBalance = item.PendingAmount

	_, err := svc.Settle(ctx, &gorm.DB{}, item, order, nil)
	if err != nil {
		t.Fatalf("Settle error: %v", err)
	}

	// no company to pay: the fee debit must not fire either
	if !vendorWallet.Balance.Equal(item.PendingAmount) {
		t.Errorf("vendor balance = %s, want %s", vendorWallet.Balance, item.PendingAmount)
	}
	for _, row := range store.log {
		if row.Type == enums.WalletTransactionDebit {
			t.Fatalf("unexpected fee debit with no logistics company")
		}
	}
}
