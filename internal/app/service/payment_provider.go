package service

import (
	"context"

	"github.com/sentinelshop/storefront-api/pkg/payment/stripe"
)

// PaymentProvider is the subset of the Stripe client used by checkout,
// confirmation and guest promotion.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

var _ PaymentProvider = (*stripe.Client)(nil)
