package logistics

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

// Repository manages persistence for logistics companies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.LogisticsCompany, error)
	ListActive(ctx context.Context) ([]models.LogisticsCompany, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a logistics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LogisticsCompany, error) {
	var company models.LogisticsCompany
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "logistics company not found")
		}
		return nil, err
	}
	return &company, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.LogisticsCompany, error) {
	var companies []models.LogisticsCompany
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}
