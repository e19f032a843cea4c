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
	redislock "github.com/sentinelshop/storefront-api/pkg/redis"
	"gorm.io/gorm"
)

var (
	ErrMissingConfirmFields = errors.New("session_id, addressId and paymentId are required")
	ErrPaymentNotConfirmed  = errors.New("payment not confirmed")
	ErrOrderUserMissing     = errors.New("no user could be resolved for the order")
	ErrCheckoutNotFound     = errors.New("no order found for checkout session")
	ErrOrderNotPending      = errors.New("order is no longer pending")
	ErrCheckoutInProgress   = errors.New("checkout confirmation already in progress")
	ErrInvoiceGeneration    = errors.New("invoice generation failed")
)

// ConfirmRequest identifies a paid provider session and the address and
// payment method it was opened with. UserID comes from authentication,
// GuestID from the checkout response of a guest.
type ConfirmRequest struct {
	ProviderSessionID string
	AddressID         uint
	PaymentID         uint
	UserID            uint
	GuestID           uint
}

// Locker serialises confirmations of one provider session across instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// OrderNotifier is told about confirmed orders so live clients can update.
type OrderNotifier interface {
	OrderConfirmed(sessionID uint, summary *OrderSummary)
}

type ConfirmationService interface {
	Confirm(ctx context.Context, req ConfirmRequest) (*OrderSummary, error)
	HandleEvent(ctx context.Context, evt *stripe.Event) error
}

type confirmationService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	addressRepo repository.AddressRepository
	paymentRepo repository.PaymentMethodRepository
	provider    PaymentProvider
	renderer    *invoice.Renderer
	store       invoice.Store
	locker      Locker
	lockTTL     time.Duration
	notifier    OrderNotifier
	now         func() time.Time
	newNumber   func(time.Time) (string, error)
}

// maxInvoiceAttempts bounds how many fresh numbers are drawn when the
// generated one is already taken.
const maxInvoiceAttempts = 5

// ConfirmationDeps groups the collaborators of the confirmation service.
// Locker and Notifier are optional.
type ConfirmationDeps struct {
	OrderRepo   repository.OrderRepository
	CartRepo    repository.CartRepository
	SessionRepo repository.SessionRepository
	UserRepo    repository.UserRepository
	AddressRepo repository.AddressRepository
	PaymentRepo repository.PaymentMethodRepository
	Provider    PaymentProvider
	Renderer    *invoice.Renderer
	Store       invoice.Store
	Locker      Locker
	LockTTL     time.Duration
	Notifier    OrderNotifier
}

func NewConfirmationService(d ConfirmationDeps) ConfirmationService {
	lockTTL := d.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &confirmationService{
		orderRepo:   d.OrderRepo,
		cartRepo:    d.CartRepo,
		sessionRepo: d.SessionRepo,
		userRepo:    d.UserRepo,
		addressRepo: d.AddressRepo,
		paymentRepo: d.PaymentRepo,
		provider:    d.Provider,
		renderer:    d.Renderer,
		store:       d.Store,
		locker:      d.Locker,
		lockTTL:     lockTTL,
		notifier:    d.Notifier,
		now:         time.Now,
		newNumber:   invoice.NewNumber,
	}
}

func (s *confirmationService) Confirm(ctx context.Context, req ConfirmRequest) (*OrderSummary, error) {
	log := logger.FromContext(ctx).WithContext(map[string]interface{}{
		"provider_session_id": req.ProviderSessionID,
	})
	ctx = logger.NewContext(ctx, log)

	if req.ProviderSessionID == "" || req.AddressID == 0 || req.PaymentID == 0 {
		return nil, ErrMissingConfirmFields
	}

	if summary, err := s.alreadyConfirmed(ctx, req.ProviderSessionID); summary != nil || err != nil {
		return summary, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "checkout:confirm:"+req.ProviderSessionID, s.lockTTL)
		if err != nil {
			if errors.Is(err, redislock.ErrLockHeld) {
				log.Warn("Confirmation already in progress")
				return nil, ErrCheckoutInProgress
			}
			// without the lock the row lock and unique key still hold
			log.Warn("Confirmation lock unavailable, continuing", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer release()
			if summary, err := s.alreadyConfirmed(ctx, req.ProviderSessionID); summary != nil || err != nil {
				return summary, err
			}
		}
	}

	session, err := s.provider.GetCheckoutSession(ctx, req.ProviderSessionID)
	if err != nil {
		log.Error("Failed to retrieve provider session", err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}
	if !session.Paid() {
		log.Warn("Confirmation rejected: payment not completed", map[string]interface{}{
			"payment_status": session.PaymentStatus,
		})
		return nil, ErrPaymentNotConfirmed
	}

	order, err := s.findOrder(ctx, req.ProviderSessionID, session)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case model.OrderStatusConfirmed:
		return SummarizeOrder(order), nil
	case model.OrderStatusAbandoned:
		log.Warn("Paid session points at an abandoned order", map[string]interface{}{
			"order_id": order.ID,
		})
		return nil, ErrOrderNotPending
	}

	userID, err := s.resolveUser(ctx, req, session, order)
	if err != nil {
		return nil, err
	}

	cartSessionID := s.cartSession(ctx, session, userID, order)
	items, err := s.cartRepo.FindBySessionID(ctx, cartSessionID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if summary, err := s.alreadyConfirmed(ctx, req.ProviderSessionID); summary != nil || err != nil {
			return summary, err
		}
		log.Warn("Confirmation rejected: cart is empty", map[string]interface{}{
			"session_id": cartSessionID,
		})
		return nil, ErrEmptyCart
	}

	address, err := s.addressRepo.FindByIDForUser(ctx, req.AddressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	method, err := s.paymentRepo.FindByIDForUser(ctx, req.PaymentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}

	quote := pricing.Price(cartLines(items))
	amountMinor := pricing.ToMinorUnits(quote.Total)
	if session.AmountTotal != 0 && session.AmountTotal != amountMinor {
		log.Warn("Paid amount differs from cart total", map[string]interface{}{
			"order_id":     order.ID,
			"paid_minor":   session.AmountTotal,
			"amount_minor": amountMinor,
		})
	}

	now := s.now()
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	number, path, err := s.writeInvoice(ctx, invoice.Document{
		IssuedAt:       now,
		CustomerEmail:  user.Email,
		BillingAddress: address.Lines(),
		PaymentSummary: method.Summary(),
		Currency:       order.Currency,
		Lines:          invoiceLines(items),
		Subtotal:       quote.Subtotal,
		Tax:            quote.Tax,
		Total:          quote.Total,
	})
	if err != nil {
		return nil, err
	}

	confirmed, err := s.orderRepo.Confirm(ctx, repository.ConfirmParams{
		OrderID:         order.ID,
		UserID:          userID,
		InvoiceNumber:   number,
		InvoicePath:     path,
		Subtotal:        pricing.Float(quote.Subtotal),
		TaxAmount:       pricing.Float(quote.Tax),
		TotalAmount:     pricing.Float(quote.Total),
		AmountMinor:     amountMinor,
		AddressID:       address.ID,
		PaymentMethodID: method.ID,
		AddressSnapshot: address.Snapshot(),
		PaymentSnapshot: method.Summary(),
		Items:           orderItemsFromCart(items),
		ClearSessionID:  cartSessionID,
		ConfirmedAt:     now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotPending) {
			// a concurrent confirmation won
			if summary, err := s.alreadyConfirmed(ctx, req.ProviderSessionID); summary != nil || err != nil {
				return summary, err
			}
			return nil, ErrOrderNotPending
		}
		log.Error("Failed to confirm order", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return nil, err
	}

	summary := SummarizeOrder(confirmed)
	log.Info("Order confirmed", map[string]interface{}{
		"order_id":       confirmed.ID,
		"invoice_number": number,
		"user_id":        userID,
		"items":          len(confirmed.OrderItems),
		"amount_minor":   amountMinor,
	})

	if s.notifier != nil {
		s.notifier.OrderConfirmed(confirmed.SessionID, summary)
	}
	return summary, nil
}

// alreadyConfirmed returns the stored summary when the provider session
// has been confirmed before. Abandoned orders are reported as not pending.
func (s *confirmationService) alreadyConfirmed(ctx context.Context, providerSessionID string) (*OrderSummary, error) {
	order, err := s.orderRepo.FindByProviderSessionID(ctx, providerSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	switch order.Status {
	case model.OrderStatusConfirmed:
		logger.FromContext(ctx).Info("Checkout already confirmed, returning stored order", map[string]interface{}{
			"order_id": order.ID,
		})
		return SummarizeOrder(order), nil
	case model.OrderStatusAbandoned:
		return nil, ErrOrderNotPending
	}
	return nil, nil
}

// findOrder locates the reservation by provider session id, falling back to
// the order id in the session metadata.
func (s *confirmationService) findOrder(ctx context.Context, providerSessionID string, session *stripe.CheckoutSession) (*model.Order, error) {
	order, err := s.orderRepo.FindByProviderSessionID(ctx, providerSessionID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	orderID := metaUint(session.Metadata, MetaOrderID)
	if orderID == 0 {
		return nil, ErrCheckoutNotFound
	}
	order, err = s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckoutNotFound
		}
		return nil, err
	}
	if order.ProviderSessionID != nil && *order.ProviderSessionID != providerSessionID {
		return nil, ErrCheckoutNotFound
	}
	return order, nil
}

func (s *confirmationService) resolveUser(ctx context.Context, req ConfirmRequest, session *stripe.CheckoutSession, order *model.Order) (uint, error) {
	log := logger.FromContext(ctx)

	userID := req.UserID
	if userID == 0 {
		userID = req.GuestID
	}
	if userID == 0 {
		userID = metaUint(session.Metadata, MetaUserID)
	}
	if userID == 0 {
		log.Error("Order anomaly: no user for paid session", ErrOrderUserMissing, map[string]interface{}{
			"order_id": order.ID,
		})
		return 0, ErrOrderUserMissing
	}
	if userID != order.UserID {
		log.Error("Order anomaly: user does not own the order", ErrOrderUserMissing, map[string]interface{}{
			"order_id":      order.ID,
			"user_id":       userID,
			"order_user_id": order.UserID,
		})
		return 0, ErrOrderUserMissing
	}
	return userID, nil
}

// cartSession picks the session whose cart is being paid for.
func (s *confirmationService) cartSession(ctx context.Context, session *stripe.CheckoutSession, userID uint, order *model.Order) uint {
	if id := metaUint(session.Metadata, MetaSessionID); id != 0 {
		return id
	}
	if active, err := s.sessionRepo.FindLatestActiveByUser(ctx, userID, s.now()); err == nil {
		return active.ID
	}
	return order.SessionID
}

// writeInvoice assigns doc a number no order or stored invoice uses yet,
// then renders and stores it. A number taken in between by a concurrent
// confirmation is reported by the store and a fresh one is drawn.
func (s *confirmationService) writeInvoice(ctx context.Context, doc invoice.Document) (string, string, error) {
	log := logger.FromContext(ctx)

	for attempt := 1; attempt <= maxInvoiceAttempts; attempt++ {
		number, err := s.newNumber(doc.IssuedAt)
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrInvoiceGeneration, err)
		}
		taken, err := s.orderRepo.InvoiceNumberExists(ctx, number)
		if err != nil {
			return "", "", err
		}
		if taken {
			log.Warn("Invoice number already assigned, drawing another", map[string]interface{}{
				"invoice_number": number,
				"attempt":        attempt,
			})
			continue
		}

		doc.Number = number
		pdf, err := s.renderer.RenderBytes(doc)
		if err != nil {
			log.Error("Failed to render invoice", err, map[string]interface{}{
				"invoice_number": number,
			})
			return "", "", fmt.Errorf("%w: %w", ErrInvoiceGeneration, err)
		}
		path, err := s.store.Save(ctx, number, pdf)
		if errors.Is(err, invoice.ErrNumberTaken) {
			log.Warn("Invoice file already exists, drawing another number", map[string]interface{}{
				"invoice_number": number,
				"attempt":        attempt,
			})
			continue
		}
		if err != nil {
			log.Error("Failed to store invoice", err, map[string]interface{}{
				"invoice_number": number,
			})
			return "", "", fmt.Errorf("%w: %w", ErrInvoiceGeneration, err)
		}
		return number, path, nil
	}

	log.Error("No free invoice number", invoice.ErrNumberTaken, map[string]interface{}{
		"attempts": maxInvoiceAttempts,
	})
	return "", "", fmt.Errorf("%w: %w", ErrInvoiceGeneration, invoice.ErrNumberTaken)
}

// HandleEvent applies a verified webhook event. Completed and paid sessions
// are confirmed; expired sessions abandon their pending order.
func (s *confirmationService) HandleEvent(ctx context.Context, evt *stripe.Event) error {
	log := logger.FromContext(ctx)
	if evt.Session == nil {
		log.Debug("Ignoring webhook event", map[string]interface{}{
			"event_type": evt.Type,
		})
		return nil
	}

	switch evt.Type {
	case stripe.EventCheckoutCompleted:
		if !evt.Session.Paid() {
			log.Info("Checkout completed but not paid yet", map[string]interface{}{
				"provider_session_id": evt.Session.ID,
			})
			return nil
		}
		_, err := s.Confirm(ctx, ConfirmRequest{
			ProviderSessionID: evt.Session.ID,
			AddressID:         metaUint(evt.Session.Metadata, MetaAddressID),
			PaymentID:         metaUint(evt.Session.Metadata, MetaPaymentID),
			UserID:            metaUint(evt.Session.Metadata, MetaUserID),
		})
		return err

	case stripe.EventCheckoutExpired:
		order, err := s.findOrder(ctx, evt.Session.ID, evt.Session)
		if err != nil {
			if errors.Is(err, ErrCheckoutNotFound) {
				return nil
			}
			return err
		}
		abandoned, err := s.orderRepo.MarkAbandoned(ctx, order.ID, s.now())
		if err != nil {
			return err
		}
		if abandoned {
			log.Info("Order abandoned after checkout expiry", map[string]interface{}{
				"order_id":            order.ID,
				"provider_session_id": evt.Session.ID,
			})
		}
		return nil
	}
	return nil
}

func invoiceLines(items []model.CartItem) []invoice.Line {
	lines := make([]invoice.Line, len(items))
	for i, it := range items {
		lines[i] = invoice.Line{
			Description: it.Product.Name,
			Plan:        string(it.Plan),
			Quantity:    it.Quantity,
			UnitPrice:   pricing.PlanUnitPrice(it.Product.Price, it.Plan),
			Total:       pricing.LineTotal(it.Product.Price, it.Plan, it.Quantity),
		}
	}
	return lines
}

func metaUint(meta map[string]string, key string) uint {
	v, err := strconv.ParseUint(meta[key], 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
