package service

import (
	"context"
	"errors"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/internal/pricing"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidPlan       = errors.New("invalid subscription plan")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

// CartView is the priced content of a session's cart.
type CartView struct {
	Items []model.CartItem
	Count int
	Quote pricing.Quote
}

type CartService interface {
	GetItems(ctx context.Context, sessionID uint) ([]model.CartItem, error)
	GetCart(ctx context.Context, sessionID uint) (*CartView, error)
	Add(ctx context.Context, sessionID, productID uint, quantity int, plan model.SubscriptionPlan) (*model.CartItem, error)
	Update(ctx context.Context, sessionID, itemID uint, quantity int, plan model.SubscriptionPlan) (*model.CartItem, error)
	Remove(ctx context.Context, sessionID, itemID uint) error
	Clear(ctx context.Context, sessionID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetItems(ctx context.Context, sessionID uint) ([]model.CartItem, error) {
	items, err := s.cartRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to load cart", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return nil, err
	}
	return items, nil
}

func (s *cartService) GetCart(ctx context.Context, sessionID uint) (*CartView, error) {
	items, err := s.GetItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: items, Quote: pricing.Price(cartLines(items))}
	for _, it := range items {
		view.Count += it.Quantity
	}
	return view, nil
}

func (s *cartService) Add(ctx context.Context, sessionID, productID uint, quantity int, plan model.SubscriptionPlan) (*model.CartItem, error) {
	log := logger.FromContext(ctx)

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Add to cart failed: product not found", map[string]interface{}{
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if quantity > product.StockQuantity {
		log.Warn("Add to cart failed: insufficient stock", map[string]interface{}{
			"product_id": productID,
			"requested":  quantity,
			"available":  product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	item, err := s.cartRepo.AddOrIncrement(ctx, sessionID, productID, plan, quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStockExceeded):
			log.Warn("Add to cart failed: cart would exceed stock", map[string]interface{}{
				"product_id": productID,
				"available":  product.StockQuantity,
			})
			return nil, ErrInsufficientStock
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrProductNotFound
		}
		log.Error("Failed to add to cart", err, map[string]interface{}{
			"session_id": sessionID,
			"product_id": productID,
		})
		return nil, err
	}

	log.Info("Item added to cart", map[string]interface{}{
		"session_id":   sessionID,
		"cart_item_id": item.ID,
		"product_id":   productID,
		"plan":         plan,
		"quantity":     item.Quantity,
	})
	return item, nil
}

func (s *cartService) Update(ctx context.Context, sessionID, itemID uint, quantity int, plan model.SubscriptionPlan) (*model.CartItem, error) {
	log := logger.FromContext(ctx)

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if plan != "" && !plan.Valid() {
		return nil, ErrInvalidPlan
	}

	item, err := s.cartRepo.ChangeItem(ctx, sessionID, itemID, quantity, plan)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrCartItemNotFound
		case errors.Is(err, repository.ErrStockExceeded):
			log.Warn("Cart update failed: insufficient stock", map[string]interface{}{
				"cart_item_id": itemID,
				"quantity":     quantity,
			})
			return nil, ErrInsufficientStock
		}
		log.Error("Failed to update cart item", err, map[string]interface{}{
			"session_id":   sessionID,
			"cart_item_id": itemID,
		})
		return nil, err
	}

	log.Info("Cart item updated", map[string]interface{}{
		"session_id":   sessionID,
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
		"plan":         item.Plan,
	})
	return item, nil
}

// Remove deletes one line. A line that no longer exists is treated as
// already removed; a line that belongs to another session is not found.
func (s *cartService) Remove(ctx context.Context, sessionID, itemID uint) error {
	log := logger.FromContext(ctx)

	deleted, err := s.cartRepo.Delete(ctx, sessionID, itemID)
	if err != nil {
		return err
	}
	if deleted {
		log.Info("Cart item removed", map[string]interface{}{
			"session_id":   sessionID,
			"cart_item_id": itemID,
		})
		return nil
	}

	exists, err := s.cartRepo.ExistsByID(ctx, itemID)
	if err != nil {
		return err
	}
	if exists {
		log.Warn("Cart item belongs to another session", map[string]interface{}{
			"session_id":   sessionID,
			"cart_item_id": itemID,
		})
		return ErrCartItemNotFound
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, sessionID uint) error {
	if err := s.cartRepo.DeleteBySessionID(ctx, sessionID); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Cart cleared", map[string]interface{}{
		"session_id": sessionID,
	})
	return nil
}

func cartLines(items []model.CartItem) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.Product.Price, Plan: it.Plan, Quantity: it.Quantity}
	}
	return lines
}
