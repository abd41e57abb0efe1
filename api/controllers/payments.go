package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vendora-labs/vendora-backend/api/responses"
	"github.com/vendora-labs/vendora-backend/api/validators"
	"github.com/vendora-labs/vendora-backend/internal/payments"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

type initializePaymentRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	Email   string `json:"email" validate:"required,email"`
}

// InitializePayment starts a gateway checkout session for a pending order.
func InitializePayment(paymentSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if paymentSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var req initializePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDField(req.OrderID, "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := paymentSvc.Initialize(r.Context(), orderID, req.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"paymentId":        result.PaymentID,
			"reference":        result.Reference,
			"authorizationUrl": result.AuthorizationURL,
			"accessCode":       result.AccessCode,
		})
	}
}

// VerifyPayment reconciles a gateway reference and reports the stored outcome.
func VerifyPayment(paymentSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if paymentSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		result, err := paymentSvc.Verify(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"paymentId":        result.PaymentID,
			"orderId":          result.OrderID,
			"status":           string(result.Status),
			"alreadyProcessed": result.AlreadyProcessed,
		})
	}
}
