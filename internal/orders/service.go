package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

// Service exposes the order-side collaborators used by payment
// reconciliation and fulfillment.
type Service interface {
	Order(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	OrderTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error)
	ItemForUpdate(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.OrderItem, error)
	MarkDispatched(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error
	MarkConfirmed(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, confirmedAt time.Time) error
	Vendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error)
	ActivateAfterPayment(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FailAfterPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the orders collaborator.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Order(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindOrder(ctx, orderID)
}

func (s *service) OrderTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.WithTx(tx).FindOrder(ctx, orderID)
}

func (s *service) ItemForUpdate(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.OrderItem, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: open transaction is required")
	}
	return s.repo.WithTx(tx).FindItemForUpdate(ctx, itemID)
}

func (s *service) MarkDispatched(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "orders: open transaction is required")
	}
	return s.repo.WithTx(tx).MarkItemDispatched(ctx, item)
}

func (s *service) MarkConfirmed(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, confirmedAt time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "orders: open transaction is required")
	}
	return s.repo.WithTx(tx).MarkItemConfirmed(ctx, itemID, confirmedAt)
}

func (s *service) Vendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error) {
	return s.repo.WithTx(tx).FindVendor(ctx, vendorID)
}

// ActivateAfterPayment flips a paid order to processing, decrements stock
// for every line and clears the customer's cart. Runs inside the caller's
// payment reconciliation transaction.
func (s *service) ActivateAfterPayment(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "orders: open transaction is required")
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusProcessing); err != nil {
		return err
	}
	for _, item := range order.Items {
		if err := repo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "stock decrement failed for "+item.ProductName)
		}
	}
	if order.CartID != nil {
		if err := repo.ClearCart(ctx, *order.CartID); err != nil {
			return err
		}
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order activated after payment")
	return nil
}

func (s *service) FailAfterPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "orders: open transaction is required")
	}
	return s.repo.WithTx(tx).UpdateOrderStatus(ctx, orderID, enums.OrderStatusFailed)
}
