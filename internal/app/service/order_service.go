package service

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderSummary is what the shopper sees after a confirmed payment.
type OrderSummary struct {
	OrderID       uint              `json:"id"`
	Status        model.OrderStatus `json:"status"`
	InvoiceNumber string            `json:"invoice_number"`
	InvoiceURL    string            `json:"invoice_url,omitempty"`
	Date          time.Time         `json:"date"`
	Currency      string            `json:"currency"`
	Subtotal      float64           `json:"subtotal"`
	Tax           float64           `json:"tax"`
	Total         float64           `json:"total"`
	PaymentMethod string            `json:"payment_method"`
	Address       string            `json:"address"`
	Items         []model.OrderItem `json:"items"`
}

// SummarizeOrder builds the summary from a stored order.
func SummarizeOrder(o *model.Order) *OrderSummary {
	date := o.CreatedAt
	if o.ConfirmedAt != nil {
		date = *o.ConfirmedAt
	}
	return &OrderSummary{
		OrderID:       o.ID,
		Status:        o.Status,
		InvoiceNumber: o.InvoiceNumber,
		InvoiceURL:    o.InvoicePath,
		Date:          date,
		Currency:      o.Currency,
		Subtotal:      o.Subtotal,
		Tax:           o.TaxAmount,
		Total:         o.TotalAmount,
		PaymentMethod: o.PaymentSnapshot,
		Address:       o.AddressSnapshot,
		Items:         o.OrderItems,
	}
}

type OrderService interface {
	GetUserOrders(ctx context.Context, userID uint) ([]model.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID uint) (*model.Order, error)
	AbandonStale(ctx context.Context) (int64, error)
}

type orderService struct {
	orderRepo  repository.OrderRepository
	pendingTTL time.Duration
	now        func() time.Time
}

func NewOrderService(orderRepo repository.OrderRepository, pendingTTL time.Duration) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

func (s *orderService) GetUserOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Warn("Order not found", map[string]interface{}{
				"order_id": orderID,
				"user_id":  userID,
			})
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// AbandonStale moves pending orders older than the pending TTL to abandoned.
func (s *orderService) AbandonStale(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.orderRepo.AbandonStale(ctx, now.Add(-s.pendingTTL), now)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to abandon stale orders", err)
		return 0, err
	}
	if n > 0 {
		logger.FromContext(ctx).Info("Stale pending orders abandoned", map[string]interface{}{
			"count": n,
		})
	}
	return n, nil
}
