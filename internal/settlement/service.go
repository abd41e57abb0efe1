package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/internal/splitcalc"
	"github.com/vendora-labs/vendora-backend/internal/wallets"
	"github.com/vendora-labs/vendora-backend/pkg/config"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/metrics"
	"github.com/vendora-labs/vendora-backend/pkg/outbox"
	"github.com/vendora-labs/vendora-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Result reports what a settlement moved and where.
type Result struct {
	Reference string
	Split     splitcalc.Split
}

// Service runs the multi-wallet settlement for a confirmed delivery.
type Service interface {
	Settle(ctx context.Context, tx *gorm.DB, item *models.OrderItem, order *models.Order, actor *outbox.ActorRef) (*Result, error)
}

type service struct {
	walletSvc wallets.Service
	publisher outboxPublisher
	cfg       config.SettlementConfig
	ledger    *metrics.LedgerMetrics
	logg      *logger.Logger
}

// NewService wires the settlement engine.
func NewService(walletSvc wallets.Service, publisher outboxPublisher, cfg config.SettlementConfig, ledger *metrics.LedgerMetrics, logg *logger.Logger) (Service, error) {
	if walletSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement: wallet service is required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement: outbox publisher is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement: logger is required")
	}
	return &service{
		walletSvc: walletSvc,
		publisher: publisher,
		cfg:       cfg,
		ledger:    ledger,
		logg:      logg,
	}, nil
}

// Settle distributes an order line's subtotal across the vendor, platform,
// revenue partner and logistics wallets inside the caller's transaction.
// Every ledger row it writes shares one correlation reference so the whole
// settlement can be reassembled from the transaction log.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, item *models.OrderItem, order *models.Order, actor *outbox.ActorRef) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement: open transaction is required")
	}
	if item.FulfillmentStatus != enums.FulfillmentStatusDispatched {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order line is not dispatched")
	}
	if !item.PendingAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order line has no recorded pending amount")
	}

	split, err := splitcalc.Compute(item.Subtotal, item.CommissionPercent, item.LogisticsFee, s.cfg)
	if err != nil {
		return nil, err
	}

	reference := "settle-" + item.ID.String()
	hasLogistics := item.LogisticsCompanyID != nil && split.LogisticsShare.IsPositive()

	vendorWallet, err := s.walletSvc.EnsureWalletTx(ctx, tx, enums.WalletOwnerVendor, item.VendorID)
	if err != nil {
		return nil, err
	}
	platformWallet, err := s.walletSvc.EnsureWalletTx(ctx, tx, enums.WalletOwnerPlatform, uuid.Nil)
	if err != nil {
		return nil, err
	}
	partnerWallet, err := s.walletSvc.EnsureWalletTx(ctx, tx, enums.WalletOwnerRevenuePartner, uuid.Nil)
	if err != nil {
		return nil, err
	}
	walletIDs := []uuid.UUID{vendorWallet.ID, platformWallet.ID, partnerWallet.ID}

	var logisticsWallet *models.Wallet
	if hasLogistics {
		logisticsWallet, err = s.walletSvc.EnsureWalletTx(ctx, tx, enums.WalletOwnerLogistics, *item.LogisticsCompanyID)
		if err != nil {
			return nil, err
		}
		walletIDs = append(walletIDs, logisticsWallet.ID)
	}

	locked, err := s.walletSvc.LockWallets(ctx, tx, walletIDs)
	if err != nil {
		return nil, err
	}
	vendorBefore := locked[vendorWallet.ID].Balance

	if _, err := s.walletSvc.ConfirmPending(ctx, tx, wallets.Entry{
		WalletID:    vendorWallet.ID,
		Amount:      item.PendingAmount,
		Reference:   reference,
		Description: "delivery confirmed for " + item.ProductName,
	}); err != nil {
		s.recordOutcome("failed")
		return nil, err
	}

	// The fee leaves the vendor only when a company is there to receive it.
	logisticsDebit := decimal.Zero
	if hasLogistics {
		logisticsDebit = split.LogisticsShare
		if _, err := s.walletSvc.Debit(ctx, tx, wallets.Entry{
			WalletID:    vendorWallet.ID,
			Amount:      logisticsDebit,
			Reference:   reference,
			Description: "logistics fee for " + item.ProductName,
		}); err != nil {
			s.recordOutcome("failed")
			return nil, err
		}
	}

	vendorNet := item.PendingAmount.Sub(logisticsDebit)
	if vendorNet.IsPositive() {
		if _, err := s.walletSvc.AuditCredit(ctx, tx, wallets.AuditEntry{
			WalletID:      vendorWallet.ID,
			Amount:        vendorNet,
			BalanceBefore: vendorBefore,
			BalanceAfter:  vendorBefore.Add(vendorNet),
			Reference:     reference,
			Description:   "vendor net settlement for " + item.ProductName,
		}); err != nil {
			s.recordOutcome("failed")
			return nil, err
		}
	}

	if split.PlatformShare.IsPositive() {
		if _, err := s.walletSvc.Credit(ctx, tx, wallets.Entry{
			WalletID:    platformWallet.ID,
			Amount:      split.PlatformShare,
			Reference:   reference,
			Description: "platform commission for " + item.ProductName,
		}); err != nil {
			s.recordOutcome("failed")
			return nil, err
		}
	}

	if split.PartnerShare.IsPositive() {
		if _, err := s.walletSvc.Credit(ctx, tx, wallets.Entry{
			WalletID:    partnerWallet.ID,
			Amount:      split.PartnerShare,
			Reference:   reference,
			Description: "partner commission for " + item.ProductName,
		}); err != nil {
			s.recordOutcome("failed")
			return nil, err
		}
	}

	if hasLogistics {
		if _, err := s.walletSvc.Credit(ctx, tx, wallets.Entry{
			WalletID:    logisticsWallet.ID,
			Amount:      split.LogisticsShare,
			Reference:   reference,
			Description: "delivery fee for " + item.ProductName,
		}); err != nil {
			s.recordOutcome("failed")
			return nil, err
		}
	}

	confirmedAt := time.Now().UTC()
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderItemSettled,
		AggregateType: enums.AggregateOrderItem,
		AggregateID:   item.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.OrderItemSettledEvent{
			OrderItemID:   item.ID,
			OrderID:       order.ID,
			VendorID:      item.VendorID,
			VendorNet:     split.VendorNet,
			PlatformShare: split.PlatformShare,
			PartnerShare:  split.PartnerShare,
			LogisticsFee:  split.LogisticsShare,
			ConfirmedAt:   confirmedAt,
		},
	}
	if err := s.publisher.Emit(ctx, tx, event); err != nil {
		s.recordOutcome("failed")
		return nil, err
	}

	s.recordOutcome("settled")
	s.ledger.AddSettlementValue("vendor", split.VendorNet.InexactFloat64())
	s.ledger.AddSettlementValue("platform", split.PlatformShare.InexactFloat64())
	s.ledger.AddSettlementValue("partner", split.PartnerShare.InexactFloat64())
	if hasLogistics {
		s.ledger.AddSettlementValue("logistics", split.LogisticsShare.InexactFloat64())
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_item_id": item.ID.String(),
		"reference":     reference,
		"vendor_net":    split.VendorNet.String(),
	}), "order line settled")

	return &Result{Reference: reference, Split: split}, nil
}

func (s *service) recordOutcome(outcome string) {
	s.ledger.IncSettlement(outcome)
}
