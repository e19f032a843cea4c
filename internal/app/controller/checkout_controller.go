package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	apperrors "github.com/sentinelshop/storefront-api/internal/errors"
	"github.com/sentinelshop/storefront-api/internal/middleware"
	"github.com/sentinelshop/storefront-api/internal/websocket"
	"github.com/sentinelshop/storefront-api/pkg/payment/stripe"
)

// maxWebhookBody bounds webhook payloads read into memory.
const maxWebhookBody = 64 * 1024

type CheckoutController struct {
	checkoutService     service.CheckoutService
	confirmationService service.ConfirmationService
	hub                 *websocket.Hub
	upgrader            *gorillaws.Upgrader
	webhookSecret       string
}

func NewCheckoutController(
	checkoutService service.CheckoutService,
	confirmationService service.ConfirmationService,
	hub *websocket.Hub,
	upgrader *gorillaws.Upgrader,
	webhookSecret string,
) *CheckoutController {
	return &CheckoutController{
		checkoutService:     checkoutService,
		confirmationService: confirmationService,
		hub:                 hub,
		upgrader:            upgrader,
		webhookSecret:       webhookSecret,
	}
}

// GuestAddressRequest is the inline address of a guest checkout. Only the
// fields a shipping label needs are enforced, by the promotion service.
type GuestAddressRequest struct {
	FullName   string `json:"full_name" binding:"max=100"`
	Address1   string `json:"address1" binding:"max=200"`
	Address2   string `json:"address2" binding:"max=200"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	City       string `json:"city" binding:"max=100"`
	Country    string `json:"country" binding:"omitempty,len=2"`
}

func (r GuestAddressRequest) input() service.AddressInput {
	return service.AddressInput{
		FullName:   r.FullName,
		Address1:   r.Address1,
		Address2:   r.Address2,
		PostalCode: r.PostalCode,
		City:       r.City,
		Country:    r.Country,
	}
}

// GuestPaymentRequest is a card tokenised client-side. Brand, last4 and
// expiry are optional display fields.
type GuestPaymentRequest struct {
	CardName        string `json:"card_name" binding:"max=100"`
	StripePaymentID string `json:"stripe_payment_id"`
	Brand           string `json:"brand"`
	Last4           string `json:"last4" binding:"omitempty,len=4,numeric"`
	ExpMonth        int    `json:"exp_month" binding:"omitempty,min=1,max=12"`
	ExpYear         int    `json:"exp_year"`
}

func (r GuestPaymentRequest) input() service.PaymentMethodInput {
	return service.PaymentMethodInput{
		CardName:        r.CardName,
		StripePaymentID: r.StripePaymentID,
		Brand:           r.Brand,
		Last4:           r.Last4,
		ExpMonth:        r.ExpMonth,
		ExpYear:         r.ExpYear,
	}
}

// CheckoutSessionRequest carries either saved ids (registered users) or the
// guest's details. Missing guest fields are rejected by the promotion service.
type CheckoutSessionRequest struct {
	AddressID    uint                 `json:"addressId"`
	PaymentID    uint                 `json:"paymentId"`
	GuestEmail   string               `json:"guestEmail" binding:"omitempty,email"`
	GuestName    string               `json:"guestName"`
	GuestAddress *GuestAddressRequest `json:"guestAddress"`
	GuestPayment *GuestPaymentRequest `json:"guestPayment"`
}

func (r CheckoutSessionRequest) toService() service.CheckoutRequest {
	req := service.CheckoutRequest{
		AddressID: r.AddressID,
		PaymentID: r.PaymentID,
	}
	if r.GuestEmail == "" && r.GuestAddress == nil && r.GuestPayment == nil {
		return req
	}

	guest := &service.GuestCheckoutInput{
		Email: r.GuestEmail,
		Name:  r.GuestName,
	}
	if r.GuestAddress != nil {
		guest.Address = r.GuestAddress.input()
		if guest.Name == "" {
			guest.Name = r.GuestAddress.FullName
		}
	}
	if r.GuestPayment != nil {
		guest.Payment = r.GuestPayment.input()
		if guest.Name == "" {
			guest.Name = r.GuestPayment.CardName
		}
	}
	req.Guest = guest
	return req
}

// CreateSession reserves a pending order and opens a provider checkout
// POST /api/v1/checkout/session
func (ctrl *CheckoutController) CreateSession(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	var req CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid checkout request")
		return
	}

	result, err := ctrl.checkoutService.CreateCheckoutSession(c.Request.Context(), identity, req.toService())
	if err != nil {
		respondError(c, err, "create checkout session")
		return
	}

	log.Info("Checkout session opened", map[string]interface{}{
		"session_id": identity.SessionID(),
		"order_id":   result.OrderID,
	})
	c.JSON(http.StatusOK, result)
}

// Confirm finalises a paid checkout and returns the order summary
// GET /api/v1/checkout/confirm?session_id=&addressId=&paymentId=&guestId=
func (ctrl *CheckoutController) Confirm(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	req := service.ConfirmRequest{
		ProviderSessionID: c.Query("session_id"),
		AddressID:         queryUint(c, "addressId"),
		PaymentID:         queryUint(c, "paymentId"),
		GuestID:           queryUint(c, "guestId"),
	}
	if userID, ok := middleware.GetUserID(c); ok {
		req.UserID = userID
	}

	summary, err := ctrl.confirmationService.Confirm(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "confirm checkout")
		return
	}

	log.Info("Checkout confirmed", map[string]interface{}{
		"order_id":            summary.OrderID,
		"provider_session_id": req.ProviderSessionID,
	})
	c.JSON(http.StatusOK, summary)
}

// Webhook receives signed provider events
// POST /api/v1/checkout/webhook
func (ctrl *CheckoutController) Webhook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("Failed to read webhook body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unreadable body")
		return
	}

	evt, err := stripe.ParseEvent(payload, c.GetHeader("Stripe-Signature"), ctrl.webhookSecret)
	if err != nil {
		log.Warn("Rejected webhook", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.PaymentInvalidSignature, "Invalid webhook signature")
		return
	}

	if err := ctrl.confirmationService.HandleEvent(c.Request.Context(), evt); err != nil {
		// Permanent failures are acknowledged so the provider stops retrying.
		if permanentWebhookError(err) {
			log.Warn("Webhook event could not be applied", map[string]interface{}{
				"event_id":   evt.ID,
				"event_type": evt.Type,
				"error":      err.Error(),
			})
			c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
			return
		}
		log.Error("Webhook event failed", err, map[string]interface{}{
			"event_id":   evt.ID,
			"event_type": evt.Type,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "applied": true})
}

func permanentWebhookError(err error) bool {
	for _, target := range []error{
		service.ErrCheckoutNotFound,
		service.ErrOrderNotPending,
		service.ErrOrderUserMissing,
		service.ErrMissingConfirmFields,
		service.ErrAddressNotFound,
		service.ErrPaymentMethodNotFound,
		service.ErrEmptyCart,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Events streams order status for the caller's cart session
// GET /api/v1/checkout/events
func (ctrl *CheckoutController) Events(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"session_id": identity.SessionID(),
			"error":      err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, identity.SessionID())
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
