package wallets

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

type fakeRepository struct {
	wallet       *models.Wallet
	updated      *models.Wallet
	transactions []*models.WalletTransaction
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetOrCreate(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	return f.wallet, nil
}

func (f *fakeRepository) FindByOwner(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return f.wallet, nil
}

func (f *fakeRepository) FindForUpdate(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil || f.wallet.ID != walletID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	copied := *f.wallet
	return &copied, nil
}

func (f *fakeRepository) LockManyForUpdate(ctx context.Context, walletIDs []uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	locked := make(map[uuid.UUID]*models.Wallet, len(walletIDs))
	for _, id := range walletIDs {
		wallet, err := f.FindForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = wallet
	}
	return locked, nil
}

func (f *fakeRepository) UpdateBalances(ctx context.Context, wallet *models.Wallet) error {
	f.updated = wallet
	return nil
}

func (f *fakeRepository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	f.transactions = append(f.transactions, entry)
	return nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeRepository) ListTransactionsByReference(ctx context.Context, reference string) ([]models.WalletTransaction, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "wallets-test"}))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func newFakeWallet(balance, pending string) (*fakeRepository, uuid.UUID) {
	id := uuid.New()
	repo := &fakeRepository{
		wallet: &models.Wallet{
			ID:             id,
			OwnerType:      enums.WalletOwnerVendor,
			OwnerID:        uuid.New(),
			Balance:        decimal.RequireFromString(balance),
			PendingBalance: decimal.RequireFromString(pending),
		},
	}
	return repo, id
}

func TestService_CreditAppendsSnapshot(t *testing.T) {
	repo, walletID := newFakeWallet("100.00", "0")
	svc := newTestService(t, repo)

	record, err := svc.Credit(context.Background(), &gorm.DB{}, Entry{
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("25.50"),
		Reference:   "ref-1",
		Description: "test credit",
	})
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if !record.BalanceBefore.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance before = %s", record.BalanceBefore)
	}
	if !record.BalanceAfter.Equal(decimal.RequireFromString("125.50")) {
		t.Fatalf("balance after = %s", record.BalanceAfter)
	}
	if repo.updated == nil || !repo.updated.Balance.Equal(record.BalanceAfter) {
		t.Fatalf("updated wallet = %+v", repo.updated)
	}
	if record.Type != enums.WalletTransactionCredit {
		t.Fatalf("type = %s", record.Type)
	}
}

func TestService_DebitRejectsOverdraw(t *testing.T) {
	repo, walletID := newFakeWallet("10.00", "0")
	svc := newTestService(t, repo)

	_, err := svc.Debit(context.Background(), &gorm.DB{}, Entry{
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("10.01"),
		Reference:   "ref-2",
		Description: "overdraw",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(repo.transactions) != 0 {
		t.Fatalf("no transaction should be written, got %d", len(repo.transactions))
	}
	if repo.updated != nil {
		t.Fatalf("balance should not change on overdraw")
	}
}

func TestService_DebitExactBalance(t *testing.T) {
	repo, walletID := newFakeWallet("10.00", "0")
	svc := newTestService(t, repo)

	record, err := svc.Debit(context.Background(), &gorm.DB{}, Entry{
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("10.00"),
		Reference:   "ref-3",
		Description: "drain",
	})
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if !record.BalanceAfter.IsZero() {
		t.Fatalf("balance after = %s", record.BalanceAfter)
	}
}

func TestService_AddPendingTouchesPendingBalanceOnly(t *testing.T) {
	repo, walletID := newFakeWallet("40.00", "5.00")
	svc := newTestService(t, repo)

	record, err := svc.AddPending(context.Background(), &gorm.DB{}, Entry{
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("8500.00"),
		Reference:   "dispatch-xyz",
		Description: "dispatch earnings",
	})
	if err != nil {
		t.Fatalf("AddPending error: %v", err)
	}
	if record.Type != enums.WalletTransactionPendingCredit {
		t.Fatalf("type = %s", record.Type)
	}
	if !record.BalanceBefore.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("pending before = %s", record.BalanceBefore)
	}
	if !record.BalanceAfter.Equal(decimal.RequireFromString("8505.00")) {
		t.Fatalf("pending after = %s", record.BalanceAfter)
	}
	if !repo.updated.Balance.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("available balance must stay untouched, got %s", repo.updated.Balance)
	}
}

func TestService_ConfirmPendingMovesFunds(t *testing.T) {
	repo, walletID := newFakeWallet("100.00", "8500.00")
	svc := newTestService(t, repo)

	record, err := svc.ConfirmPending(context.Background(), &gorm.DB{}, Entry{
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("8500.00"),
		Reference:   "settle-abc",
		Description: "delivery confirmed",
	})
	if err != nil {
		t.Fatalf("ConfirmPending error: %v", err)
	}
	if !record.BalanceBefore.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance before = %s", record.BalanceBefore)
	}
	if !record.BalanceAfter.Equal(decimal.RequireFromString("8600.00")) {
		t.Fatalf("balance after = %s", record.BalanceAfter)
	}
	if record.Type != enums.WalletTransactionPendingConfirmed {
		t.Fatalf("type = %s", record.Type)
	}
	if !repo.updated.PendingBalance.IsZero() {
		t.Fatalf("pending after = %s", repo.updated.PendingBalance)
	}
}

func TestService_ConfirmPendingRejectsOverdraw(t *testing.T) {
	repo, walletID := newFakeWallet("100.00", "50.00")
	svc := newTestService(t, repo)

	_, err := svc.ConfirmPending(context.Background(), &gorm.DB{}, Entry{
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("50.01"),
		Reference:   "settle-over",
		Description: "too much",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.transactions) != 0 {
		t.Fatalf("no transaction should be written")
	}
}

func TestService_RejectsNonPositiveAmounts(t *testing.T) {
	repo, walletID := newFakeWallet("100.00", "0")
	svc := newTestService(t, repo)

	for _, amount := range []string{"0", "-1.00"} {
		_, err := svc.Credit(context.Background(), &gorm.DB{}, Entry{
			WalletID:    walletID,
			Amount:      decimal.RequireFromString(amount),
			Reference:   "ref",
			Description: "bad amount",
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("amount %s: expected validation error, got %v", amount, err)
		}
	}
}

func TestService_AuditCreditChecksSnapshots(t *testing.T) {
	repo, walletID := newFakeWallet("8600.00", "0")
	svc := newTestService(t, repo)

	record, err := svc.AuditCredit(context.Background(), &gorm.DB{}, AuditEntry{
		WalletID:      walletID,
		Amount:        decimal.RequireFromString("7700.00"),
		BalanceBefore: decimal.RequireFromString("900.00"),
		BalanceAfter:  decimal.RequireFromString("8600.00"),
		Reference:     "settle-abc",
		Description:   "vendor net settlement",
	})
	if err != nil {
		t.Fatalf("AuditCredit error: %v", err)
	}
	if record.Type != enums.WalletTransactionAudit {
		t.Fatalf("type = %s", record.Type)
	}
	if record.Type.MovesBalance() {
		t.Fatal("audit rows must be excluded from balance replay")
	}
	if repo.updated != nil {
		t.Fatalf("audit entry must not touch balances")
	}

	_, err = svc.AuditCredit(context.Background(), &gorm.DB{}, AuditEntry{
		WalletID:      walletID,
		Amount:        decimal.RequireFromString("7700.00"),
		BalanceBefore: decimal.RequireFromString("900.00"),
		BalanceAfter:  decimal.RequireFromString("8601.00"),
		Reference:     "settle-abc",
		Description:   "vendor net settlement",
	})
	if err == nil {
		t.Fatal("mismatched snapshots must be rejected")
	}
}

func TestService_ReplayRebuildsBalances(t *testing.T) {
	db := setupWalletsTestDB(t)
	svc := newTestService(t, NewRepository(db))
	ctx := context.Background()

	wallet, err := svc.EnsureWallet(ctx, enums.WalletOwnerVendor, uuid.New())
	if err != nil {
		t.Fatalf("EnsureWallet error: %v", err)
	}

	mutate := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("mutation error: %v", err)
		}
	}

	_, err = svc.AddPending(ctx, db, Entry{WalletID: wallet.ID, Amount: decimal.RequireFromString("8500.00"), Reference: "settle-1", Description: "dispatch earnings"})
	mutate(err)
	_, err = svc.ConfirmPending(ctx, db, Entry{WalletID: wallet.ID, Amount: decimal.RequireFromString("8500.00"), Reference: "settle-1", Description: "delivery confirmed"})
	mutate(err)
	_, err = svc.Debit(ctx, db, Entry{WalletID: wallet.ID, Amount: decimal.RequireFromString("800.00"), Reference: "settle-1", Description: "logistics fee"})
	mutate(err)
	_, err = svc.AuditCredit(ctx, db, AuditEntry{
		WalletID:      wallet.ID,
		Amount:        decimal.RequireFromString("7700.00"),
		BalanceBefore: decimal.Zero,
		BalanceAfter:  decimal.RequireFromString("7700.00"),
		Reference:     "settle-1",
		Description:   "vendor net settlement",
	})
	mutate(err)
	_, err = svc.Credit(ctx, db, Entry{WalletID: wallet.ID, Amount: decimal.RequireFromString("120.50"), Reference: "refund-9", Description: "withdrawal refund"})
	mutate(err)
	_, err = svc.AddPending(ctx, db, Entry{WalletID: wallet.ID, Amount: decimal.RequireFromString("300.00"), Reference: "settle-2", Description: "dispatch earnings"})
	mutate(err)

	current, err := svc.Balance(ctx, enums.WalletOwnerVendor, wallet.OwnerID)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}

	rows, err := svc.Transactions(ctx, wallet.ID, 100, 0)
	if err != nil {
		t.Fatalf("Transactions error: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected 6 ledger rows, got %d", len(rows))
	}

	replayBalance := decimal.Zero
	replayPending := decimal.Zero
	auditRows := 0
	for _, row := range rows {
		switch row.Type {
		case enums.WalletTransactionCredit:
			replayBalance = replayBalance.Add(row.Amount)
		case enums.WalletTransactionDebit:
			replayBalance = replayBalance.Sub(row.Amount)
		case enums.WalletTransactionPendingCredit:
			replayPending = replayPending.Add(row.Amount)
		case enums.WalletTransactionPendingConfirmed:
			replayPending = replayPending.Sub(row.Amount)
			replayBalance = replayBalance.Add(row.Amount)
		case enums.WalletTransactionAudit:
			auditRows++
		default:
			t.Fatalf("unexpected transaction type %s", row.Type)
		}
	}

	if auditRows != 1 {
		t.Fatalf("expected 1 audit row, got %d", auditRows)
	}
	if !replayBalance.Equal(current.Balance) {
		t.Errorf("replayed balance = %s, wallet holds %s", replayBalance, current.Balance)
	}
	if !replayPending.Equal(current.PendingBalance) {
		t.Errorf("replayed pending = %s, wallet holds %s", replayPending, current.PendingBalance)
	}
	if !current.Balance.Equal(decimal.RequireFromString("7820.50")) {
		t.Errorf("wallet balance = %s", current.Balance)
	}
	if !current.PendingBalance.Equal(decimal.RequireFromString("300.00")) {
		t.Errorf("wallet pending = %s", current.PendingBalance)
	}
}

// lockingRepository serializes FindForUpdate through CreateTransaction the
// way a held row lock does, so interleaved mutations surface lost updates.
type lockingRepository struct {
	mu     sync.Mutex
	wallet models.Wallet
	log    []*models.WalletTransaction
}

func (r *lockingRepository) WithTx(tx *gorm.DB) Repository { return r }

func (r *lockingRepository) GetOrCreate(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	copied := r.wallet
	return &copied, nil
}

func (r *lockingRepository) FindByOwner(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	copied := r.wallet
	return &copied, nil
}

func (r *lockingRepository) FindForUpdate(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	r.mu.Lock()
	copied := r.wallet
	return &copied, nil
}

func (r *lockingRepository) LockManyForUpdate(ctx context.Context, walletIDs []uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	return nil, nil
}

func (r *lockingRepository) UpdateBalances(ctx context.Context, wallet *models.Wallet) error {
	r.wallet = *wallet
	return nil
}

func (r *lockingRepository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	r.log = append(r.log, entry)
	r.mu.Unlock()
	return nil
}

func (r *lockingRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (r *lockingRepository) ListTransactionsByReference(ctx context.Context, reference string) ([]models.WalletTransaction, error) {
	return nil, nil
}

func TestService_InterleavedCreditsKeepEveryUpdate(t *testing.T) {
	repo := &lockingRepository{wallet: models.Wallet{ID: uuid.New(), OwnerType: enums.WalletOwnerVendor, OwnerID: uuid.New()}}
	svc := newTestService(t, repo)
	walletID := repo.wallet.ID

	const workers = 2
	const creditsPerWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < creditsPerWorker; i++ {
				_, err := svc.Credit(context.Background(), &gorm.DB{}, Entry{
					WalletID:    walletID,
					Amount:      decimal.RequireFromString("1.00"),
					Reference:   "contention",
					Description: "concurrent credit",
				})
				if err != nil {
					t.Errorf("Credit error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	want := decimal.NewFromInt(workers * creditsPerWorker)
	if !repo.wallet.Balance.Equal(want) {
		t.Fatalf("balance = %s, want %s: an update was lost", repo.wallet.Balance, want)
	}
	if len(repo.log) != workers*creditsPerWorker {
		t.Fatalf("ledger rows = %d, want %d", len(repo.log), workers*creditsPerWorker)
	}
	for i := 1; i < len(repo.log); i++ {
		if !repo.log[i].BalanceBefore.Equal(repo.log[i-1].BalanceAfter) {
			t.Fatalf("row %d snapshot chain broken: before %s after previous %s",
				i, repo.log[i].BalanceBefore, repo.log[i-1].BalanceAfter)
		}
	}
}
