package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/api/responses"
	"github.com/vendora-labs/vendora-backend/internal/logistics"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

type logisticsCompanyResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	FlatFee           decimal.Decimal `json:"flatFee"`
	CommissionPercent decimal.Decimal `json:"commissionPercent"`
}

// ListLogisticsCompanies returns the active companies a vendor can dispatch with.
func ListLogisticsCompanies(logisticsSvc logistics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logisticsSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "logistics service unavailable"))
			return
		}

		companies, err := logisticsSvc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]logisticsCompanyResponse, 0, len(companies))
		for _, company := range companies {
			out = append(out, logisticsCompanyResponse{
				ID:                company.ID,
				Name:              company.Name,
				FlatFee:           company.FlatFee,
				CommissionPercent: company.CommissionPercent,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
