package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOrderNotPending is returned by state transitions on an order that has
// already left the pending state.
var ErrOrderNotPending = errors.New("order is not pending")

// ConfirmParams is everything written when a pending order is confirmed.
type ConfirmParams struct {
	OrderID         uint
	UserID          uint
	InvoiceNumber   string
	InvoicePath     string
	Subtotal        float64
	TaxAmount       float64
	TotalAmount     float64
	AmountMinor     int64
	AddressID       uint
	PaymentMethodID uint
	AddressSnapshot string
	PaymentSnapshot string
	Items           []model.OrderItem
	ClearSessionID  uint
	ConfirmedAt     time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uint) (*model.Order, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Order, error)
	FindByProviderSessionID(ctx context.Context, providerSessionID string) (*model.Order, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	AttachProviderSession(ctx context.Context, orderID uint, providerSessionID string) error
	MarkAbandoned(ctx context.Context, orderID uint, at time.Time) (bool, error)
	AbandonStale(ctx context.Context, createdBefore, at time.Time) (int64, error)
	Confirm(ctx context.Context, p ConfirmParams) (*model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	})
}

// Create inserts the order and its item snapshots.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":        order.UserID,
		"session_id":     order.SessionID,
		"total_amount":   order.TotalAmount,
		"invoice_number": order.InvoiceNumber,
	})

	if err := r.db.WithContext(ctx).Omit("User").Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"total_amount": order.TotalAmount,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"item_count": len(order.OrderItems),
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.Order, error) {
	var order model.Order
	err := r.preloadOrder(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	if err := r.preloadOrder(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (r *orderRepository) FindByProviderSessionID(ctx context.Context, providerSessionID string) (*model.Order, error) {
	var order model.Order
	err := r.preloadOrder(ctx).
		Where("provider_session_id = ?", providerSessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// AttachProviderSession records the provider's checkout session id, which
// from then on is the order's idempotency key.
// InvoiceNumberExists reports whether any order already carries number.
func (r *orderRepository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *orderRepository) AttachProviderSession(ctx context.Context, orderID uint, providerSessionID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ? AND provider_session_id IS NULL", orderID, model.OrderStatusPending).
		Update("provider_session_id", providerSessionID)
	if result.Error != nil {
		logger.Error("Failed to attach provider session to order", result.Error, map[string]interface{}{
			"order_id":            orderID,
			"provider_session_id": providerSessionID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotPending
	}
	return nil
}

// MarkAbandoned moves a pending order to abandoned. It reports false when
// the order was not pending.
func (r *orderRepository) MarkAbandoned(ctx context.Context, orderID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":       model.OrderStatusAbandoned,
			"abandoned_at": at,
		})
	if result.Error != nil {
		logger.Error("Failed to mark order abandoned", result.Error, map[string]interface{}{
			"order_id": orderID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) AbandonStale(ctx context.Context, createdBefore, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("status = ? AND created_at < ?", model.OrderStatusPending, createdBefore).
		Updates(map[string]interface{}{
			"status":       model.OrderStatusAbandoned,
			"abandoned_at": at,
		})
	if result.Error != nil {
		logger.Error("Failed to abandon stale pending orders", result.Error, map[string]interface{}{
			"created_before": createdBefore,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Confirm finalizes a pending order in one transaction: the order row is
// locked, its items are replaced with p.Items, the confirmed fields are set
// and the originating cart is cleared. ErrOrderNotPending leaves everything
// untouched.
func (r *orderRepository) Confirm(ctx context.Context, p ConfirmParams) (*model.Order, error) {
	logger.Debug("Confirming order in database", map[string]interface{}{
		"order_id":       p.OrderID,
		"invoice_number": p.InvoiceNumber,
		"item_count":     len(p.Items),
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, p.OrderID).Error; err != nil {
			return err
		}
		if order.Status != model.OrderStatusPending {
			return ErrOrderNotPending
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		items := make([]model.OrderItem, len(p.Items))
		for i, it := range p.Items {
			it.ID = 0
			it.OrderID = order.ID
			items[i] = it
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		confirmedAt := p.ConfirmedAt
		if err := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", order.ID, model.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":            model.OrderStatusConfirmed,
				"user_id":           p.UserID,
				"invoice_number":    p.InvoiceNumber,
				"invoice_path":      p.InvoicePath,
				"subtotal":          p.Subtotal,
				"tax_amount":        p.TaxAmount,
				"total_amount":      p.TotalAmount,
				"amount_minor":      p.AmountMinor,
				"address_id":        p.AddressID,
				"payment_method_id": p.PaymentMethodID,
				"address_snapshot":  p.AddressSnapshot,
				"payment_snapshot":  p.PaymentSnapshot,
				"confirmed_at":      &confirmedAt,
			}).Error; err != nil {
			return err
		}

		if p.ClearSessionID != 0 {
			if err := tx.Where("session_id = ?", p.ClearSessionID).Delete(&model.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotPending) {
			logger.Error("Failed to confirm order in database", err, map[string]interface{}{
				"order_id": p.OrderID,
			})
		}
		return nil, err
	}

	logger.Debug("Order confirmed in database", map[string]interface{}{
		"order_id":       p.OrderID,
		"invoice_number": p.InvoiceNumber,
	})
	return r.FindByID(ctx, p.OrderID)
}
