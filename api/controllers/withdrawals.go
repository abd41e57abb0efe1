package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/api/middleware"
	"github.com/vendora-labs/vendora-backend/api/responses"
	"github.com/vendora-labs/vendora-backend/api/validators"
	"github.com/vendora-labs/vendora-backend/internal/withdrawals"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

type requestWithdrawalRequest struct {
	Amount        string `json:"amount" validate:"required"`
	RecipientName string `json:"recipientName" validate:"required,max=255"`
	BankCode      string `json:"bankCode" validate:"required,max=20"`
	AccountNumber string `json:"accountNumber" validate:"required,max=32"`

	// Admin-only: withdraw from a wallet other than the caller's own.
	OwnerType string `json:"ownerType" validate:"omitempty,oneof=vendor platform revenue_partner logistics"`
	OwnerID   string `json:"ownerId" validate:"omitempty,uuid"`
}

type withdrawalResponse struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"walletId"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	Status        string          `json:"status"`
	FailureReason *string         `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newWithdrawalResponse(withdrawal *models.WalletWithdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:            withdrawal.ID,
		WalletID:      withdrawal.WalletID,
		Amount:        withdrawal.Amount,
		Reference:     withdrawal.Reference,
		Status:        string(withdrawal.Status),
		FailureReason: withdrawal.FailureReason,
		CreatedAt:     withdrawal.CreatedAt,
	}
}

// RequestWithdrawal debits the owner's wallet and starts a bank transfer.
// Vendors withdraw from their own wallet; admins may name any wallet owner.
func RequestWithdrawal(withdrawalSvc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if withdrawalSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req requestWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		ownerType, ownerID, err := resolveWithdrawalOwner(actor.Role, actor.VendorID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := withdrawalSvc.Request(r.Context(), withdrawals.RequestInput{
			OwnerType:     ownerType,
			OwnerID:       ownerID,
			Amount:        amount,
			RecipientName: req.RecipientName,
			BankCode:      req.BankCode,
			AccountNumber: req.AccountNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWithdrawalResponse(withdrawal))
	}
}

func resolveWithdrawalOwner(role enums.ActorRole, vendorID *uuid.UUID, req requestWithdrawalRequest) (enums.WalletOwnerType, uuid.UUID, error) {
	switch role {
	case enums.RoleVendor:
		if req.OwnerType != "" || req.OwnerID != "" {
			return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendors may only withdraw from their own wallet")
		}
		if vendorID == nil {
			return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor account required")
		}
		return enums.WalletOwnerVendor, *vendorID, nil
	case enums.RoleAdmin:
		if req.OwnerType == "" {
			return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "owner type is required")
		}
		ownerType, err := enums.ParseWalletOwnerType(req.OwnerType)
		if err != nil {
			return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner type")
		}
		if ownerType.IsSingleton() {
			return ownerType, uuid.Nil, nil
		}
		ownerID, err := uuid.Parse(req.OwnerID)
		if err != nil {
			return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner id")
		}
		return ownerType, ownerID, nil
	default:
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted to withdraw")
	}
}
