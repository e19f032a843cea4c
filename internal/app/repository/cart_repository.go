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

// ErrStockExceeded is returned when a write would leave a cart line above
// the product's stock. The write is rolled back.
var ErrStockExceeded = errors.New("cart quantity exceeds stock")

type CartRepository interface {
	FindBySessionID(ctx context.Context, sessionID uint) ([]model.CartItem, error)
	FindBySessionAndID(ctx context.Context, sessionID, itemID uint) (*model.CartItem, error)
	ExistsByID(ctx context.Context, itemID uint) (bool, error)
	CountBySessionID(ctx context.Context, sessionID uint) (int64, error)
	AddOrIncrement(ctx context.Context, sessionID, productID uint, plan model.SubscriptionPlan, quantity int) (*model.CartItem, error)
	ChangeItem(ctx context.Context, sessionID, itemID uint, quantity int, plan model.SubscriptionPlan) (*model.CartItem, error)
	Delete(ctx context.Context, sessionID, itemID uint) (bool, error)
	DeleteBySessionID(ctx context.Context, sessionID uint) error
	MergeSessions(ctx context.Context, fromSessionID, toSessionID uint) (int, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindBySessionID(ctx context.Context, sessionID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items by session ID in database", map[string]interface{}{
		"session_id": sessionID,
	})

	var cartItems []model.CartItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Preload("Product").
		Order("id ASC").
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by session ID in database", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return nil, err
	}

	logger.Debug("Cart items found by session ID in database", map[string]interface{}{
		"session_id": sessionID,
		"count":      len(cartItems),
	})
	return cartItems, nil
}

func (r *cartRepository) FindBySessionAndID(ctx context.Context, sessionID, itemID uint) (*model.CartItem, error) {
	var cartItem model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND session_id = ?", itemID, sessionID).
		First(&cartItem).Error
	if err != nil {
		return nil, err
	}
	return &cartItem, nil
}

func (r *cartRepository) CountBySessionID(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// AddOrIncrement inserts the (session, product, plan) line or adds quantity
// to the existing one in a single statement, then checks the resulting
// quantity against stock inside the same transaction.
func (r *cartRepository) AddOrIncrement(ctx context.Context, sessionID, productID uint, plan model.SubscriptionPlan, quantity int) (*model.CartItem, error) {
	logger.Debug("Upserting cart item in database", map[string]interface{}{
		"session_id": sessionID,
		"product_id": productID,
		"plan":       plan,
		"quantity":   quantity,
	})

	var item model.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&product, productID).Error; err != nil {
			return err
		}

		if err := upsertLine(tx, sessionID, productID, plan, quantity); err != nil {
			return err
		}

		if err := tx.Where("session_id = ? AND product_id = ? AND plan = ?", sessionID, productID, plan).
			First(&item).Error; err != nil {
			return err
		}
		if item.Quantity > product.StockQuantity {
			return ErrStockExceeded
		}
		item.Product = product
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStockExceeded) && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to upsert cart item in database", err, map[string]interface{}{
				"session_id": sessionID,
				"product_id": productID,
			})
		}
		return nil, err
	}

	logger.Debug("Cart item upserted in database", map[string]interface{}{
		"cart_item_id": item.ID,
		"session_id":   sessionID,
		"quantity":     item.Quantity,
	})
	return &item, nil
}

// ChangeItem sets quantity and plan on one line of the session's cart. When
// the new plan is already present for the same product the two lines are
// merged into that one. An empty plan keeps the current one.
func (r *cartRepository) ChangeItem(ctx context.Context, sessionID, itemID uint, quantity int, plan model.SubscriptionPlan) (*model.CartItem, error) {
	logger.Debug("Changing cart item in database", map[string]interface{}{
		"session_id":   sessionID,
		"cart_item_id": itemID,
		"quantity":     quantity,
		"plan":         plan,
	})

	var result model.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND session_id = ?", itemID, sessionID).
			First(&item).Error; err != nil {
			return err
		}
		if plan == "" {
			plan = item.Plan
		}

		var product model.Product
		if err := tx.First(&product, item.ProductID).Error; err != nil {
			return err
		}

		target := item
		if plan != item.Plan {
			var other model.CartItem
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("session_id = ? AND product_id = ? AND plan = ?", sessionID, item.ProductID, plan).
				First(&other).Error
			switch {
			case err == nil:
				if err := tx.Delete(&model.CartItem{}, item.ID).Error; err != nil {
					return err
				}
				target = other
				quantity += other.Quantity
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return err
			}
		}

		if quantity > product.StockQuantity {
			return ErrStockExceeded
		}

		if err := tx.Model(&model.CartItem{}).
			Where("id = ?", target.ID).
			Updates(map[string]interface{}{
				"quantity":   quantity,
				"plan":       plan,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		if err := tx.First(&result, target.ID).Error; err != nil {
			return err
		}
		result.Product = product
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStockExceeded) && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to change cart item in database", err, map[string]interface{}{
				"session_id":   sessionID,
				"cart_item_id": itemID,
			})
		}
		return nil, err
	}
	return &result, nil
}

// ExistsByID reports whether a cart line with itemID exists in any session.
func (r *cartRepository) ExistsByID(ctx context.Context, itemID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.CartItem{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
		logger.Error("Failed to check cart item existence", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return false, err
	}
	return count > 0, nil
}

// Delete removes one line of the session's cart and reports whether a row
// was removed.
func (r *cartRepository) Delete(ctx context.Context, sessionID, itemID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", itemID, sessionID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"session_id":   sessionID,
			"cart_item_id": itemID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *cartRepository) DeleteBySessionID(ctx context.Context, sessionID uint) error {
	logger.Debug("Deleting cart items by session ID from database", map[string]interface{}{
		"session_id": sessionID,
	})

	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items by session ID from database", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return err
	}
	return nil
}

// MergeSessions moves every line of fromSessionID into toSessionID, adding
// quantities where the same product and plan already exist, capped at stock.
// The source cart is emptied. Returns the number of lines moved.
func (r *cartRepository) MergeSessions(ctx context.Context, fromSessionID, toSessionID uint) (int, error) {
	var moved int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []model.CartItem
		if err := tx.Preload("Product").Where("session_id = ?", fromSessionID).Find(&items).Error; err != nil {
			return err
		}

		for _, it := range items {
			if err := upsertLine(tx, toSessionID, it.ProductID, it.Plan, it.Quantity); err != nil {
				return err
			}
			if err := tx.Model(&model.CartItem{}).
				Where("session_id = ? AND product_id = ? AND plan = ? AND quantity > ?", toSessionID, it.ProductID, it.Plan, it.Product.StockQuantity).
				Update("quantity", it.Product.StockQuantity).Error; err != nil {
				return err
			}
			moved++
		}

		return tx.Where("session_id = ?", fromSessionID).Delete(&model.CartItem{}).Error
	})
	if err != nil {
		logger.Error("Failed to merge cart sessions", err, map[string]interface{}{
			"from_session_id": fromSessionID,
			"to_session_id":   toSessionID,
		})
		return 0, err
	}
	return moved, nil
}

func upsertLine(tx *gorm.DB, sessionID, productID uint, plan model.SubscriptionPlan, quantity int) error {
	now := time.Now()
	line := model.CartItem{
		SessionID: sessionID,
		ProductID: productID,
		Plan:      plan,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "product_id"}, {Name: "plan"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": now,
		}),
	}).Omit("Session", "Product").Create(&line).Error
}
