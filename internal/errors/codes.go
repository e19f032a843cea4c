package errors

// Error codes returned in the "error" field of every error body.
// Format: CATEGORY_DETAIL. Clients map these to their own copy.

const (
	// auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// authorization
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// generic resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// session
	SessionUnavailable = "SESSION_UNAVAILABLE"

	// catalog and cart
	ProductNotFound       = "PRODUCT_NOT_FOUND"
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK"
	CartInvalidPlan       = "CART_INVALID_PLAN"
	CartInvalidQuantity   = "CART_INVALID_QUANTITY"
	CartEmpty             = "CART_EMPTY"

	// checkout
	CheckoutMissingAddress     = "CHECKOUT_MISSING_ADDRESS"
	CheckoutMissingPayment     = "CHECKOUT_MISSING_PAYMENT"
	CheckoutMissingGuestEmail  = "CHECKOUT_MISSING_GUEST_EMAIL"
	CheckoutAddressNotFound    = "CHECKOUT_ADDRESS_NOT_FOUND"
	CheckoutPaymentNotFound    = "CHECKOUT_PAYMENT_NOT_FOUND"
	CheckoutNoProviderCustomer = "CHECKOUT_NO_PROVIDER_CUSTOMER"
	CheckoutOrderUserMissing   = "CHECKOUT_ORDER_USER_MISSING"
	CheckoutOrderNotFound      = "CHECKOUT_ORDER_NOT_FOUND"
	CheckoutInProgress         = "CHECKOUT_IN_PROGRESS"

	// payment provider
	PaymentNotConfirmed     = "PAYMENT_NOT_CONFIRMED"
	PaymentProviderFailed   = "PAYMENT_PROVIDER_FAILED"
	PaymentInvalidSignature = "PAYMENT_INVALID_SIGNATURE"

	// orders and invoices
	OrderNotFound         = "ORDER_NOT_FOUND"
	InvoiceGenerationFail = "INVOICE_GENERATION_FAILED"

	// internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
