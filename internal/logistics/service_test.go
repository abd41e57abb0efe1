package logistics

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

type fakeLogisticsRepo struct {
	company *models.LogisticsCompany
}

func (f *fakeLogisticsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeLogisticsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.LogisticsCompany, error) {
	if f.company == nil || f.company.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "logistics company not found")
	}
	return f.company, nil
}

func (f *fakeLogisticsRepo) ListActive(ctx context.Context) ([]models.LogisticsCompany, error) {
	if f.company != nil && f.company.Active {
		return []models.LogisticsCompany{*f.company}, nil
	}
	return nil, nil
}

func TestService_ActiveCompanyRejectsInactive(t *testing.T) {
	company := &models.LogisticsCompany{ID: uuid.New(), Name: "Swift", Active: false}
	svc, err := NewService(&fakeLogisticsRepo{company: company})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.ActiveCompany(context.Background(), nil, company.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_DeliveryFee(t *testing.T) {
	svc, err := NewService(&fakeLogisticsRepo{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	cases := []struct {
		name       string
		flatFee    string
		commission string
		subtotal   string
		want       string
	}{
		{"flat only", "500.00", "0", "10000.00", "500.00"},
		{"flat plus commission", "500.00", "3", "10000.00", "800.00"},
		{"rounding", "0.00", "2.5", "33.33", "0.83"},
		{"zero", "0.00", "0", "100.00", "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			company := &models.LogisticsCompany{
				FlatFee:           decimal.RequireFromString(tc.flatFee),
				CommissionPercent: decimal.RequireFromString(tc.commission),
			}
			fee := svc.DeliveryFee(company, decimal.RequireFromString(tc.subtotal))
			if !fee.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("fee = %s, want %s", fee, tc.want)
			}
		})
	}
}
