package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/api/middleware"
	"github.com/vendora-labs/vendora-backend/api/responses"
	"github.com/vendora-labs/vendora-backend/api/validators"
	"github.com/vendora-labs/vendora-backend/internal/fulfillment"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

type dispatchItemRequest struct {
	LogisticsCompanyID string `json:"logisticsCompanyId" validate:"required,uuid"`
	Notes              string `json:"notes" validate:"max=500"`
}

type orderItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"orderId"`
	FulfillmentStatus string          `json:"fulfillmentStatus"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	PendingAmount     decimal.Decimal `json:"pendingAmount"`
	LogisticsFee      decimal.Decimal `json:"logisticsFee"`
	DispatchedAt      *time.Time      `json:"dispatchedAt,omitempty"`
	ConfirmedAt       *time.Time      `json:"confirmedAt,omitempty"`
}

func newOrderItemResponse(item *models.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:                item.ID,
		OrderID:           item.OrderID,
		FulfillmentStatus: string(item.FulfillmentStatus),
		Subtotal:          item.Subtotal,
		PendingAmount:     item.PendingAmount,
		LogisticsFee:      item.LogisticsFee,
		DispatchedAt:      item.DispatchedAt,
		ConfirmedAt:       item.ConfirmedAt,
	}
}

// DispatchOrderItem hands a paid order line to a logistics company and
// freezes the vendor's pending credit.
func DispatchOrderItem(fulfillmentSvc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fulfillmentSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req dispatchItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		companyID, err := parseUUIDField(req.LogisticsCompanyID, "logistics company id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := fulfillmentSvc.Dispatch(r.Context(), fulfillment.DispatchInput{
			ItemID:             itemID,
			LogisticsCompanyID: companyID,
			Notes:              req.Notes,
			Actor:              actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderItemResponse(item))
	}
}

// ConfirmDelivery settles a dispatched order line after the customer confirms
// receipt.
func ConfirmDelivery(fulfillmentSvc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fulfillmentSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fulfillmentSvc.ConfirmDelivery(r.Context(), fulfillment.ConfirmInput{
			ItemID: itemID,
			Actor:  actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"reference":      result.Reference,
			"vendorNet":      result.Split.VendorNet,
			"platformShare":  result.Split.PlatformShare,
			"partnerShare":   result.Split.PartnerShare,
			"logisticsShare": result.Split.LogisticsShare,
		})
	}
}

func parseItemID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	itemID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return itemID, nil
}

func parseUUIDField(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
