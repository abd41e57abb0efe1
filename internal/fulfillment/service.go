package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/internal/logistics"
	"github.com/vendora-labs/vendora-backend/internal/orders"
	"github.com/vendora-labs/vendora-backend/internal/settlement"
	"github.com/vendora-labs/vendora-backend/internal/splitcalc"
	"github.com/vendora-labs/vendora-backend/internal/wallets"
	"github.com/vendora-labs/vendora-backend/pkg/auth"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/outbox"
	"github.com/vendora-labs/vendora-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGate interface {
	HasSuccessfulPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

// DispatchInput identifies the order line a vendor is handing to a
// logistics company.
type DispatchInput struct {
	ItemID             uuid.UUID
	LogisticsCompanyID uuid.UUID
	Notes              string
	Actor              auth.AccessTokenPayload
}

// ConfirmInput identifies the order line a customer confirms as delivered.
type ConfirmInput struct {
	ItemID uuid.UUID
	Actor  auth.AccessTokenPayload
}

// Service drives the order line fulfillment state machine.
type Service interface {
	Dispatch(ctx context.Context, input DispatchInput) (*models.OrderItem, error)
	ConfirmDelivery(ctx context.Context, input ConfirmInput) (*settlement.Result, error)
}

type service struct {
	tx           txRunner
	ordersSvc    orders.Service
	logisticsSvc logistics.Service
	walletSvc    wallets.Service
	settleSvc    settlement.Service
	payments     paymentGate
	publisher    outboxPublisher
	logg         *logger.Logger
}

// NewService wires the fulfillment state machine.
func NewService(
	tx txRunner,
	ordersSvc orders.Service,
	logisticsSvc logistics.Service,
	walletSvc wallets.Service,
	settleSvc settlement.Service,
	payments paymentGate,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: transaction runner is required")
	}
	if ordersSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: orders service is required")
	}
	if logisticsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: logistics service is required")
	}
	if walletSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: wallet service is required")
	}
	if settleSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: settlement service is required")
	}
	if payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: payment gate is required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: outbox publisher is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment: logger is required")
	}
	return &service{
		tx:           tx,
		ordersSvc:    ordersSvc,
		logisticsSvc: logisticsSvc,
		walletSvc:    walletSvc,
		settleSvc:    settleSvc,
		payments:     payments,
		publisher:    publisher,
		logg:         logg,
	}, nil
}

// Dispatch moves a pending order line to dispatched, freezes the fee and
// commission figures on the line and adds the vendor's net earnings to the
// pending balance. Everything happens in one transaction.
func (s *service) Dispatch(ctx context.Context, input DispatchInput) (*models.OrderItem, error) {
	var dispatched *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.ordersSvc.ItemForUpdate(ctx, tx, input.ItemID)
		if err != nil {
			return err
		}
		if err := s.authorizeDispatch(input.Actor, item); err != nil {
			return err
		}
		if item.FulfillmentStatus != enums.FulfillmentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order line is not pending")
		}

		paid, err := s.payments.HasSuccessfulPayment(ctx, tx, item.OrderID)
		if err != nil {
			return err
		}
		if !paid {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no successful payment")
		}

		company, err := s.logisticsSvc.ActiveCompany(ctx, tx, input.LogisticsCompanyID)
		if err != nil {
			return err
		}
		vendor, err := s.ordersSvc.Vendor(ctx, tx, item.VendorID)
		if err != nil {
			return err
		}

		fee := s.logisticsSvc.DeliveryFee(company, item.Subtotal)
		platformFee, err := splitcalc.ComputePlatformFee(item.Subtotal, vendor.CommissionPercent)
		if err != nil {
			return err
		}
		pendingAmount := item.Subtotal.Sub(platformFee).Round(2)
		if !pendingAmount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "commission leaves no vendor earnings")
		}

		now := time.Now().UTC()
		item.FulfillmentStatus = enums.FulfillmentStatusDispatched
		item.LogisticsCompanyID = &company.ID
		item.LogisticsFee = fee
		item.CommissionPercent = vendor.CommissionPercent
		item.PendingAmount = pendingAmount
		item.DispatchNotes = input.Notes
		item.DispatchedAt = &now

		if err := s.ordersSvc.MarkDispatched(ctx, tx, item); err != nil {
			return err
		}

		vendorWallet, err := s.walletSvc.EnsureWalletTx(ctx, tx, enums.WalletOwnerVendor, item.VendorID)
		if err != nil {
			return err
		}
		if _, err := s.walletSvc.AddPending(ctx, tx, wallets.Entry{
			WalletID:    vendorWallet.ID,
			Amount:      pendingAmount,
			Reference:   "dispatch-" + item.ID.String(),
			Description: "dispatch earnings for " + item.ProductName,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderItemDispatched,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         actorRef(input.Actor),
			Version:       1,
			Data: payloads.OrderItemDispatchedEvent{
				OrderItemID:        item.ID,
				OrderID:            item.OrderID,
				VendorID:           item.VendorID,
				LogisticsCompanyID: company.ID,
				PendingAmount:      pendingAmount,
				DispatchedAt:       now,
			},
		}
		if err := s.publisher.Emit(ctx, tx, event); err != nil {
			return err
		}

		dispatched = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_item_id":  dispatched.ID.String(),
		"pending_amount": dispatched.PendingAmount.String(),
	}), "order line dispatched")
	return dispatched, nil
}

// ConfirmDelivery flips a dispatched line to confirmed and runs the
// settlement in the same transaction.
func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmInput) (*settlement.Result, error) {
	var result *settlement.Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.ordersSvc.ItemForUpdate(ctx, tx, input.ItemID)
		if err != nil {
			return err
		}
		if item.FulfillmentStatus != enums.FulfillmentStatusDispatched {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order line is not dispatched")
		}

		order, err := s.ordersSvc.OrderTx(ctx, tx, item.OrderID)
		if err != nil {
			return err
		}
		if err := s.authorizeConfirm(input.Actor, order); err != nil {
			return err
		}

		result, err = s.settleSvc.Settle(ctx, tx, item, order, actorRef(input.Actor))
		if err != nil {
			return err
		}

		confirmedAt := time.Now().UTC()
		return s.ordersSvc.MarkConfirmed(ctx, tx, item.ID, confirmedAt)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) authorizeDispatch(actor auth.AccessTokenPayload, item *models.OrderItem) error {
	if actor.Role == enums.RoleAdmin {
		return nil
	}
	if actor.Role == enums.RoleVendor && actor.VendorID != nil && *actor.VendorID == item.VendorID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "actor cannot dispatch this order line")
}

func (s *service) authorizeConfirm(actor auth.AccessTokenPayload, order *models.Order) error {
	if actor.Role == enums.RoleAdmin {
		return nil
	}
	if actor.Role == enums.RoleCustomer && actor.UserID == order.CustomerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "actor cannot confirm this delivery")
}

func actorRef(actor auth.AccessTokenPayload) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
