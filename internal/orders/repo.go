package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

// Repository manages persistence for orders, order lines and the
// catalog rows fulfillment and reconciliation touch.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	FindItemForUpdate(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	MarkItemDispatched(ctx context.Context, item *models.OrderItem) error
	MarkItemConfirmed(ctx context.Context, itemID uuid.UUID, confirmedAt time.Time) error
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	return r.findItem(ctx, itemID, false)
}

func (r *repository) FindItemForUpdate(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	return r.findItem(ctx, itemID, true)
}

func (r *repository) findItem(ctx context.Context, itemID uuid.UUID, forUpdate bool) (*models.OrderItem, error) {
	query := r.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.OrderItem
	if err := query.Where("id = ?", itemID).First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

func (r *repository) MarkItemDispatched(ctx context.Context, item *models.OrderItem) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND fulfillment_status = ?", item.ID, enums.FulfillmentStatusPending).
		Updates(map[string]any{
			"fulfillment_status":   enums.FulfillmentStatusDispatched,
			"logistics_company_id": item.LogisticsCompanyID,
			"logistics_fee":        item.LogisticsFee,
			"commission_percent":   item.CommissionPercent,
			"pending_amount":       item.PendingAmount,
			"dispatch_notes":       item.DispatchNotes,
			"dispatched_at":        item.DispatchedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order line is not pending")
	}
	return nil
}

func (r *repository) MarkItemConfirmed(ctx context.Context, itemID uuid.UUID, confirmedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND fulfillment_status = ?", itemID, enums.FulfillmentStatusDispatched).
		Updates(map[string]any{
			"fulfillment_status": enums.FulfillmentStatusConfirmed,
			"confirmed_at":       confirmedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order line is not dispatched")
	}
	return nil
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", vendorID).First(&vendor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, err
	}
	return &vendor, nil
}

// DecrementStock refuses to drive stock negative; the guard lives in the
// WHERE clause so concurrent decrements cannot race past it.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient product stock")
	}
	return nil
}

func (r *repository) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
