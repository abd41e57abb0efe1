package wallets

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

// Entry carries the inputs for a single wallet mutation.
type Entry struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Reference   string
	Description string
	Metadata    json.RawMessage
}

// AuditEntry records an audit-type log row without touching balances. The
// caller supplies the before/after snapshots it observed around the balance
// mutations the row summarizes. Replay skips audit rows entirely.
type AuditEntry struct {
	WalletID      uuid.UUID
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Reference     string
	Description   string
	Metadata      json.RawMessage
}

// Service exposes the wallet engine. Every mutating method runs inside the
// transaction handed to it: the balance update and the log append land
// together or not at all, and the wallet row stays locked for the duration
// of the read-check-write.
type Service interface {
	EnsureWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	EnsureWalletTx(ctx context.Context, tx *gorm.DB, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	LockWallets(ctx context.Context, tx *gorm.DB, walletIDs []uuid.UUID) (map[uuid.UUID]*models.Wallet, error)
	Balance(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	Transactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)

	Credit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	AddPending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	ConfirmPending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	AuditCredit(ctx context.Context, tx *gorm.DB, entry AuditEntry) (*models.WalletTransaction, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the wallet engine.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) EnsureWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	if !ownerType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown wallet owner type")
	}
	return s.repo.GetOrCreate(ctx, ownerType, ownerID)
}

func (s *service) EnsureWalletTx(ctx context.Context, tx *gorm.DB, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: open transaction is required")
	}
	if !ownerType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown wallet owner type")
	}
	return s.repo.WithTx(tx).GetOrCreate(ctx, ownerType, ownerID)
}

func (s *service) LockWallets(ctx context.Context, tx *gorm.DB, walletIDs []uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: open transaction is required")
	}
	return s.repo.WithTx(tx).LockManyForUpdate(ctx, walletIDs)
}

func (s *service) Balance(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	if !ownerType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown wallet owner type")
	}
	return s.repo.FindByOwner(ctx, ownerType, ownerID)
}

func (s *service) Transactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	return s.repo.ListTransactions(ctx, walletID, limit, offset)
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, entry, enums.WalletTransactionCredit)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, entry, enums.WalletTransactionDebit)
}

func (s *service) AddPending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, entry, enums.WalletTransactionPendingCredit)
}

// ConfirmPending moves entry.Amount from the pending balance to the
// available balance. The log row is typed pending_confirmed and snapshots
// the available balance; replaying it adds the amount to the available
// balance and removes it from pending, so the log stays reconstructible.
func (s *service) ConfirmPending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	if err := validateEntry(tx, entry); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindForUpdate(ctx, entry.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.PendingBalance.LessThan(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirm amount exceeds pending balance").
			WithDetails(map[string]string{
				"pending_balance": wallet.PendingBalance.String(),
				"amount":          entry.Amount.String(),
			})
	}

	before := wallet.Balance
	wallet.Balance = wallet.Balance.Add(entry.Amount)
	wallet.PendingBalance = wallet.PendingBalance.Sub(entry.Amount)

	record := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Type:          enums.WalletTransactionPendingConfirmed,
		Amount:        entry.Amount,
		BalanceBefore: before,
		BalanceAfter:  wallet.Balance,
		Reference:     entry.Reference,
		Description:   entry.Description,
		Metadata:      entry.Metadata,
	}
	if err := s.apply(ctx, repo, wallet, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) AuditCredit(ctx context.Context, tx *gorm.DB, entry AuditEntry) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: open transaction is required")
	}
	if !entry.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !entry.BalanceAfter.Sub(entry.BalanceBefore).Equal(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: audit snapshots do not sum to amount")
	}

	record := &models.WalletTransaction{
		WalletID:      entry.WalletID,
		Type:          enums.WalletTransactionAudit,
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Reference:     entry.Reference,
		Description:   entry.Description,
		Metadata:      entry.Metadata,
	}
	if err := s.repo.WithTx(tx).CreateTransaction(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) mutate(ctx context.Context, tx *gorm.DB, entry Entry, kind enums.WalletTransactionType) (*models.WalletTransaction, error) {
	if err := validateEntry(tx, entry); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindForUpdate(ctx, entry.WalletID)
	if err != nil {
		return nil, err
	}

	var before, after decimal.Decimal
	switch kind {
	case enums.WalletTransactionCredit:
		before = wallet.Balance
		after = before.Add(entry.Amount)
		wallet.Balance = after
	case enums.WalletTransactionDebit:
		before = wallet.Balance
		if before.LessThan(entry.Amount) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").
				WithDetails(map[string]string{
					"balance": before.String(),
					"amount":  entry.Amount.String(),
				})
		}
		after = before.Sub(entry.Amount)
		wallet.Balance = after
	case enums.WalletTransactionPendingCredit:
		before = wallet.PendingBalance
		after = before.Add(entry.Amount)
		wallet.PendingBalance = after
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallets: unknown transaction type")
	}

	record := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Type:          kind,
		Amount:        entry.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     entry.Reference,
		Description:   entry.Description,
		Metadata:      entry.Metadata,
	}
	if err := s.apply(ctx, repo, wallet, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) apply(ctx context.Context, repo Repository, wallet *models.Wallet, record *models.WalletTransaction) error {
	if err := repo.UpdateBalances(ctx, wallet); err != nil {
		return err
	}
	if err := repo.CreateTransaction(ctx, record); err != nil {
		return err
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"wallet_id": wallet.ID.String(),
		"type":      record.Type.String(),
		"amount":    record.Amount.String(),
		"reference": record.Reference,
	}), "wallet mutation applied")
	return nil
}

func validateEntry(tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "wallets: open transaction is required")
	}
	if entry.WalletID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	if !entry.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if entry.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	return nil
}
