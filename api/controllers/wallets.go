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
	"github.com/vendora-labs/vendora-backend/internal/wallets"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

const (
	defaultTransactionPageSize = 50
	maxTransactionPageSize     = 100
)

type walletResponse struct {
	ID             uuid.UUID       `json:"id"`
	OwnerType      string          `json:"ownerType"`
	OwnerID        uuid.UUID       `json:"ownerId"`
	Balance        decimal.Decimal `json:"balance"`
	PendingBalance decimal.Decimal `json:"pendingBalance"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type walletTransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newWalletResponse(wallet *models.Wallet) walletResponse {
	return walletResponse{
		ID:             wallet.ID,
		OwnerType:      string(wallet.OwnerType),
		OwnerID:        wallet.OwnerID,
		Balance:        wallet.Balance,
		PendingBalance: wallet.PendingBalance,
		UpdatedAt:      wallet.UpdatedAt,
	}
}

func newWalletTransactionResponses(rows []models.WalletTransaction) []walletTransactionResponse {
	out := make([]walletTransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, walletTransactionResponse{
			ID:            row.ID,
			Type:          string(row.Type),
			Amount:        row.Amount,
			BalanceBefore: row.BalanceBefore,
			BalanceAfter:  row.BalanceAfter,
			Reference:     row.Reference,
			Description:   row.Description,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out
}

// VendorWalletBalance returns the authenticated vendor's wallet, creating it
// lazily on first access.
func VendorWalletBalance(walletSvc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if walletSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		ownerID, err := vendorOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := walletSvc.EnsureWallet(r.Context(), enums.WalletOwnerVendor, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(wallet))
	}
}

// VendorWalletTransactions pages through the vendor wallet's log, newest first.
func VendorWalletTransactions(walletSvc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if walletSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		ownerID, err := vendorOwnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultTransactionPageSize, 1, maxTransactionPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := walletSvc.EnsureWallet(r.Context(), enums.WalletOwnerVendor, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := walletSvc.Transactions(r.Context(), wallet.ID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletTransactionResponses(rows))
	}
}

// AdminWalletBalance looks up any wallet by owner type and id.
func AdminWalletBalance(walletSvc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if walletSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		ownerType, ownerID, err := parseWalletOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := walletSvc.Balance(r.Context(), ownerType, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(wallet))
	}
}

// AdminWalletTransactions pages through any wallet's log by wallet id.
func AdminWalletTransactions(walletSvc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if walletSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		rawWalletID := strings.TrimSpace(chi.URLParam(r, "walletId"))
		walletID, err := uuid.Parse(rawWalletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultTransactionPageSize, 1, maxTransactionPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := walletSvc.Transactions(r.Context(), walletID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletTransactionResponses(rows))
	}
}

func vendorOwnerID(r *http.Request) (uuid.UUID, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role != enums.RoleVendor || actor.VendorID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor account required")
	}
	return *actor.VendorID, nil
}

func parseWalletOwner(r *http.Request) (enums.WalletOwnerType, uuid.UUID, error) {
	ownerType, err := enums.ParseWalletOwnerType(strings.TrimSpace(r.URL.Query().Get("owner_type")))
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner type")
	}

	if ownerType.IsSingleton() {
		return ownerType, uuid.Nil, nil
	}

	rawOwnerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if rawOwnerID == "" {
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	ownerID, err := uuid.Parse(rawOwnerID)
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner id")
	}
	return ownerType, ownerID, nil
}
