package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Client wraps the Stripe API calls used by checkout.
type Client struct {
	config Config
	api    *client.API
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.Currency = strings.ToLower(config.Currency)

	return &Client{
		config: config,
		api:    client.New(config.SecretKey, nil),
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// CreateCustomer registers a customer and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	if email == "" {
		return "", ErrInvalidRequest
	}

	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(email),
	}
	if name != "" {
		params.Name = stripeapi.String(name)
	}
	params.Context = ctx

	cust, err := c.api.Customers.New(params)
	if err != nil {
		return "", wrapError("create customer", err)
	}
	return cust.ID, nil
}

// AttachPaymentMethod attaches a tokenised card to the customer and makes it
// the customer's default. Attaching a card the customer already owns is a
// no-op at Stripe.
func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if customerID == "" || paymentMethodID == "" {
		return ErrInvalidRequest
	}

	attach := &stripeapi.PaymentMethodAttachParams{
		Customer: stripeapi.String(customerID),
	}
	attach.Context = ctx
	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, attach); err != nil {
		return wrapError("attach payment method", err)
	}

	update := &stripeapi.CustomerParams{
		InvoiceSettings: &stripeapi.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripeapi.String(paymentMethodID),
		},
	}
	update.Context = ctx
	if _, err := c.api.Customers.Update(customerID, update); err != nil {
		return wrapError("set default payment method", err)
	}
	return nil
}

// CreateCheckoutSession opens a payment-mode checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	if req.CustomerID == "" || len(req.LineItems) == 0 {
		return nil, ErrInvalidRequest
	}

	params := c.sessionParams(req)
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapError("create checkout session", err)
	}
	return fromAPI(sess), nil
}

func (c *Client) sessionParams(req CheckoutSessionRequest) *stripeapi.CheckoutSessionParams {
	params := &stripeapi.CheckoutSessionParams{
		Customer:           stripeapi.String(req.CustomerID),
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		UIMode:             stripeapi.String(c.config.UIMode),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripeapi.String(req.ClientReferenceID)
	}

	if c.config.UIMode == UIModeEmbedded {
		params.ReturnURL = stripeapi.String(c.config.ReturnURL)
	} else {
		params.SuccessURL = stripeapi.String(c.config.SuccessURL)
		params.CancelURL = stripeapi.String(c.config.CancelURL)
	}

	// cards attached through the API carry allow_redisplay "unspecified",
	// which Checkout hides unless asked to show it
	if req.PaymentMethodID != "" {
		params.SavedPaymentMethodOptions = &stripeapi.CheckoutSessionSavedPaymentMethodOptionsParams{
			AllowRedisplayFilters: stripeapi.StringSlice([]string{
				string(stripeapi.CheckoutSessionSavedPaymentMethodOptionsAllowRedisplayFilterAlways),
				string(stripeapi.CheckoutSessionSavedPaymentMethodOptionsAllowRedisplayFilterLimited),
				string(stripeapi.CheckoutSessionSavedPaymentMethodOptionsAllowRedisplayFilterUnspecified),
			}),
		}
		params.PaymentIntentData = &stripeapi.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetaPaymentMethod: req.PaymentMethodID},
		}
	}

	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency: stripeapi.String(c.config.Currency),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(li.Name),
				},
				UnitAmount: stripeapi.Int64(li.UnitAmount),
			},
			Quantity: stripeapi.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// GetCheckoutSession retrieves a session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if id == "" {
		return nil, ErrInvalidRequest
	}

	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, wrapError("retrieve checkout session", err)
	}
	return fromAPI(sess), nil
}

// ParseEvent verifies the Stripe-Signature header and decodes checkout
// session events. Other event types are returned with a nil Session.
func (c *Client) ParseEvent(payload []byte, signature string) (*Event, error) {
	return ParseEvent(payload, signature, c.config.WebhookSecret)
}

// ParseEvent is the client-free form of Client.ParseEvent.
func ParseEvent(payload []byte, signature, secret string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}

	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	out.Session = fromAPI(&sess)
	return out, nil
}

func fromAPI(s *stripeapi.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		ClientSecret:  s.ClientSecret,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out
}
