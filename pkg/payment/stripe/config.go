package stripe

// Config represents the configuration for the Stripe client
type Config struct {
	// SecretKey is the API secret key (sk_live_... or sk_test_...)
	SecretKey string

	// WebhookSecret verifies webhook signatures (whsec_...)
	WebhookSecret string

	// Currency is the ISO currency used for every line item
	Currency string

	// UIMode is "embedded" (client secret) or "hosted" (redirect URL)
	UIMode string

	// SuccessURL and CancelURL are used by hosted checkout
	SuccessURL string
	CancelURL  string

	// ReturnURL is used by embedded checkout
	ReturnURL string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SecretKey == "" || c.Currency == "" {
		return ErrInvalidConfig
	}
	switch c.UIMode {
	case UIModeEmbedded:
		if c.ReturnURL == "" {
			return ErrInvalidConfig
		}
	case UIModeHosted:
		if c.SuccessURL == "" || c.CancelURL == "" {
			return ErrInvalidConfig
		}
	default:
		return ErrInvalidConfig
	}
	return nil
}
