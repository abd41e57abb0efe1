package logistics

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

// Service resolves logistics companies and prices their delivery fees.
type Service interface {
	ActiveCompany(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LogisticsCompany, error)
	ListActive(ctx context.Context) ([]models.LogisticsCompany, error)
	DeliveryFee(company *models.LogisticsCompany, subtotal decimal.Decimal) decimal.Decimal
}

type service struct {
	repo Repository
}

// NewService wires the logistics collaborator.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logistics: repository is required")
	}
	return &service{repo: repo}, nil
}

// ActiveCompany loads a company and rejects inactive ones. Callers that
// are inside a transaction pass it so the read sees their snapshot.
func (s *service) ActiveCompany(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LogisticsCompany, error) {
	company, err := s.repo.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !company.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logistics company is not active")
	}
	return company, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.LogisticsCompany, error) {
	return s.repo.ListActive(ctx)
}

// DeliveryFee computes the company's charge for an order line:
// flat fee plus the commission percentage of the line subtotal,
// rounded to two decimal places.
func (s *service) DeliveryFee(company *models.LogisticsCompany, subtotal decimal.Decimal) decimal.Decimal {
	commission := subtotal.Mul(company.CommissionPercent).Div(decimal.NewFromInt(100))
	return company.FlatFee.Add(commission).Round(2)
}
