package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/internal/invoice"
	"github.com/sentinelshop/storefront-api/internal/pricing"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"github.com/sentinelshop/storefront-api/pkg/payment/stripe"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingAddress     = errors.New("address id is required")
	ErrMissingPayment     = errors.New("payment method id is required")
	ErrNoProviderCustomer = errors.New("user has no payment customer")
	ErrPaymentProvider    = errors.New("payment provider error")
)

// Metadata keys attached to every provider checkout session.
const (
	MetaOrderID   = "order_id"
	MetaSessionID = "session_id"
	MetaUserID    = "user_id"
	MetaGuest     = "guest"
	MetaAddressID = "address_id"
	MetaPaymentID = "payment_id"
)

// CheckoutRequest carries saved ids for users and full details for guests.
type CheckoutRequest struct {
	AddressID uint
	PaymentID uint
	Guest     *GuestCheckoutInput
}

type CheckoutSessionResult struct {
	ClientSecret      string `json:"clientSecret,omitempty"`
	URL               string `json:"url,omitempty"`
	OrderID           uint   `json:"orderId"`
	ProviderSessionID string `json:"sessionId"`
	AddressID         uint   `json:"addressId"`
	PaymentID         uint   `json:"paymentId"`
	GuestID           uint   `json:"guestId,omitempty"`
}

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, identity Identity, req CheckoutRequest) (*CheckoutSessionResult, error)
}

type checkoutService struct {
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	addressRepo repository.AddressRepository
	paymentRepo repository.PaymentMethodRepository
	guests      GuestPromotionService
	provider    PaymentProvider
	currency    string
}

func NewCheckoutService(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	addressRepo repository.AddressRepository,
	paymentRepo repository.PaymentMethodRepository,
	guests GuestPromotionService,
	provider PaymentProvider,
	currency string,
) CheckoutService {
	return &checkoutService{
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		addressRepo: addressRepo,
		paymentRepo: paymentRepo,
		guests:      guests,
		provider:    provider,
		currency:    currency,
	}
}

// checkoutParty is who pays and with what, after either branch.
type checkoutParty struct {
	user    *model.User
	address *model.Address
	method  *model.PaymentMethodInfo
	guest   bool
}

func (s *checkoutService) CreateCheckoutSession(ctx context.Context, identity Identity, req CheckoutRequest) (*CheckoutSessionResult, error) {
	log := logger.FromContext(ctx)
	sessionID := identity.SessionID()

	items, err := s.cartRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		log.Error("Failed to load cart for checkout", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return nil, err
	}
	if len(items) == 0 {
		log.Warn("Checkout rejected: empty cart", map[string]interface{}{
			"session_id": sessionID,
		})
		return nil, ErrEmptyCart
	}

	var party *checkoutParty
	if userID, ok := UserIDOf(identity); ok {
		party, err = s.resolveUser(ctx, userID, req)
	} else {
		party, err = s.promoteGuest(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	order, err := s.reserve(ctx, sessionID, party, items)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, s.sessionRequest(sessionID, party, order, items))
	if err != nil {
		log.Error("Provider checkout session failed, abandoning order", err, map[string]interface{}{
			"order_id": order.ID,
		})
		s.abandon(ctx, order.ID)
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}

	if err := s.orderRepo.AttachProviderSession(ctx, order.ID, session.ID); err != nil {
		log.Error("Failed to attach provider session to order", err, map[string]interface{}{
			"order_id":            order.ID,
			"provider_session_id": session.ID,
		})
		s.abandon(ctx, order.ID)
		return nil, err
	}

	log.Info("Checkout session created", map[string]interface{}{
		"order_id":            order.ID,
		"provider_session_id": session.ID,
		"user_id":             party.user.ID,
		"guest":               party.guest,
		"amount_minor":        order.AmountMinor,
	})

	result := &CheckoutSessionResult{
		ClientSecret:      session.ClientSecret,
		URL:               session.URL,
		OrderID:           order.ID,
		ProviderSessionID: session.ID,
		AddressID:         party.address.ID,
		PaymentID:         party.method.ID,
	}
	if party.guest {
		result.GuestID = party.user.ID
	}
	return result, nil
}

func (s *checkoutService) resolveUser(ctx context.Context, userID uint, req CheckoutRequest) (*checkoutParty, error) {
	log := logger.FromContext(ctx)

	if req.AddressID == 0 {
		return nil, ErrMissingAddress
	}
	if req.PaymentID == 0 {
		return nil, ErrMissingPayment
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	address, err := s.addressRepo.FindByIDForUser(ctx, req.AddressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Checkout rejected: address not found", map[string]interface{}{
				"user_id":    userID,
				"address_id": req.AddressID,
			})
			return nil, ErrAddressNotFound
		}
		return nil, err
	}

	method, err := s.paymentRepo.FindByIDForUser(ctx, req.PaymentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Checkout rejected: payment method not found", map[string]interface{}{
				"user_id":    userID,
				"payment_id": req.PaymentID,
			})
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}

	if user.StripeCustomerID == "" {
		log.Warn("Checkout rejected: user has no payment customer", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrNoProviderCustomer
	}

	if err := s.provider.AttachPaymentMethod(ctx, user.StripeCustomerID, method.StripePaymentID); err != nil {
		log.Error("Failed to attach saved card to payment customer", err, map[string]interface{}{
			"user_id":    userID,
			"payment_id": method.ID,
		})
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}

	return &checkoutParty{user: user, address: address, method: method}, nil
}

func (s *checkoutService) promoteGuest(ctx context.Context, req CheckoutRequest) (*checkoutParty, error) {
	if req.Guest == nil {
		return nil, ErrMissingGuestEmail
	}
	account, err := s.guests.Promote(ctx, *req.Guest)
	if err != nil {
		return nil, err
	}
	return &checkoutParty{
		user:    account.User,
		address: account.Address,
		method:  account.PaymentMethod,
		guest:   true,
	}, nil
}

// reserve writes the pending order that the provider session will point at.
func (s *checkoutService) reserve(ctx context.Context, sessionID uint, party *checkoutParty, items []model.CartItem) (*model.Order, error) {
	log := logger.FromContext(ctx)

	number, err := invoice.NewReservationNumber()
	if err != nil {
		log.Error("Failed to allocate reservation number", err)
		return nil, err
	}

	quote := pricing.Price(cartLines(items))
	order := &model.Order{
		UserID:          party.user.ID,
		SessionID:       sessionID,
		Status:          model.OrderStatusPending,
		Subtotal:        pricing.Float(quote.Subtotal),
		TaxAmount:       pricing.Float(quote.Tax),
		TotalAmount:     pricing.Float(quote.Total),
		AmountMinor:     pricing.ToMinorUnits(quote.Total),
		Currency:        s.currency,
		InvoiceNumber:   number,
		AddressID:       party.address.ID,
		PaymentMethodID: party.method.ID,
		AddressSnapshot: party.address.Snapshot(),
		PaymentSnapshot: party.method.Summary(),
		OrderItems:      orderItemsFromCart(items),
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		log.Error("Failed to create pending order", err, map[string]interface{}{
			"session_id": sessionID,
			"user_id":    party.user.ID,
		})
		return nil, err
	}
	return order, nil
}

func (s *checkoutService) sessionRequest(sessionID uint, party *checkoutParty, order *model.Order, items []model.CartItem) stripe.CheckoutSessionRequest {
	lineItems := make([]stripe.LineItem, 0, len(items)+1)
	for _, it := range items {
		lineItems = append(lineItems, stripe.LineItem{
			Name:       fmt.Sprintf("%s (%s)", it.Product.Name, it.Plan),
			UnitAmount: pricing.ToMinorUnits(pricing.PlanUnitPrice(it.Product.Price, it.Plan)),
			Quantity:   int64(it.Quantity),
		})
	}
	if taxMinor := order.AmountMinor - sumMinor(lineItems); taxMinor > 0 {
		lineItems = append(lineItems, stripe.LineItem{
			Name:       "Tax (20%)",
			UnitAmount: taxMinor,
			Quantity:   1,
		})
	}

	return stripe.CheckoutSessionRequest{
		CustomerID:        party.user.StripeCustomerID,
		PaymentMethodID:   party.method.StripePaymentID,
		LineItems:         lineItems,
		ClientReferenceID: strconv.FormatUint(uint64(order.ID), 10),
		Metadata: map[string]string{
			MetaOrderID:   strconv.FormatUint(uint64(order.ID), 10),
			MetaSessionID: strconv.FormatUint(uint64(sessionID), 10),
			MetaUserID:    strconv.FormatUint(uint64(party.user.ID), 10),
			MetaGuest:     strconv.FormatBool(party.guest),
			MetaAddressID: strconv.FormatUint(uint64(party.address.ID), 10),
			MetaPaymentID: strconv.FormatUint(uint64(party.method.ID), 10),
		},
	}
}

func (s *checkoutService) abandon(ctx context.Context, orderID uint) {
	if _, err := s.orderRepo.MarkAbandoned(ctx, orderID, time.Now()); err != nil {
		logger.FromContext(ctx).Error("Failed to abandon order", err, map[string]interface{}{
			"order_id": orderID,
		})
	}
}

func sumMinor(items []stripe.LineItem) int64 {
	var total int64
	for _, li := range items {
		total += li.UnitAmount * li.Quantity
	}
	return total
}

func orderItemsFromCart(items []model.CartItem) []model.OrderItem {
	out := make([]model.OrderItem, len(items))
	for i, it := range items {
		out[i] = model.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Product.Price,
			Plan:        it.Plan,
			LineTotal:   pricing.Float(pricing.LineTotal(it.Product.Price, it.Plan, it.Quantity)),
		}
	}
	return out
}
