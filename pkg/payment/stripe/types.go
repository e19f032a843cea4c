package stripe

const (
	UIModeEmbedded = "embedded"
	UIModeHosted   = "hosted"

	// MetaPaymentMethod is set on the payment intent of a session opened
	// with a saved card.
	MetaPaymentMethod = "payment_method"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"

	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// LineItem is one priced row of a checkout session. UnitAmount is in minor
// currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSessionRequest is the input of CreateCheckoutSession.
type CheckoutSessionRequest struct {
	CustomerID string
	// PaymentMethodID is the saved card the session is paid with. It must
	// already be attached to CustomerID.
	PaymentMethodID string
	LineItems       []LineItem
	Metadata        map[string]string
	// ClientReferenceID ties the session to a local order
	ClientReferenceID string
}

// CheckoutSession is the subset of the Stripe session this service uses.
type CheckoutSession struct {
	ID            string
	ClientSecret  string
	URL           string
	Status        string
	PaymentStatus string
	CustomerID    string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// Paid reports whether Stripe considers the session paid.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Event is a verified webhook event about a checkout session.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}
