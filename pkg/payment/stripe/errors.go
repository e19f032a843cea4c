package stripe

import (
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v81"
)

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid stripe configuration")

	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProvider wraps any error reported by the Stripe API
	ErrProvider = errors.New("stripe api error")

	// ErrInvalidSignature is returned when a webhook payload fails verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// ProviderError carries the message Stripe returned, which is safe to show.
type ProviderError struct {
	Op         string
	Message    string
	Code       string
	StatusCode int
	err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe %s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.err}
}

func wrapError(op string, err error) error {
	var se *stripeapi.Error
	if errors.As(err, &se) {
		return &ProviderError{
			Op:         op,
			Message:    se.Msg,
			Code:       string(se.Code),
			StatusCode: se.HTTPStatusCode,
			err:        err,
		}
	}
	return &ProviderError{Op: op, Message: err.Error(), err: err}
}
