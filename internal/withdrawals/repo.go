package withdrawals

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

// Repository manages persistence for wallet withdrawals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.WalletWithdrawal) error
	FindByReferenceForUpdate(ctx context.Context, reference string) (*models.WalletWithdrawal, error)
	Save(ctx context.Context, withdrawal *models.WalletWithdrawal) error
	ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.WalletWithdrawal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.WalletWithdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByReferenceForUpdate(ctx context.Context, reference string) (*models.WalletWithdrawal, error) {
	var withdrawal models.WalletWithdrawal
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&withdrawal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) Save(ctx context.Context, withdrawal *models.WalletWithdrawal) error {
	return r.db.WithContext(ctx).
		Model(&models.WalletWithdrawal{}).
		Where("id = ?", withdrawal.ID).
		Updates(map[string]any{
			"status":         withdrawal.Status,
			"recipient_code": withdrawal.RecipientCode,
			"transfer_code":  withdrawal.TransferCode,
			"failure_reason": withdrawal.FailureReason,
			"refunded_at":    withdrawal.RefundedAt,
			"completed_at":   withdrawal.CompletedAt,
		}).Error
}

func (r *repository) ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.WalletWithdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	var withdrawals []models.WalletWithdrawal
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.WithdrawalStatusProcessing, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}
