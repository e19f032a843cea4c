package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	apperrors "github.com/sentinelshop/storefront-api/internal/errors"
	"github.com/sentinelshop/storefront-api/internal/middleware"
	"github.com/sentinelshop/storefront-api/pkg/payment/stripe"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors maps sentinel errors to their HTTP response. Order matters:
// the first match wins.
var serviceErrors = []errorMapping{
	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound},
	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound},
	{service.ErrInsufficientStock, http.StatusBadRequest, apperrors.CartInsufficientStock},
	{service.ErrInvalidPlan, http.StatusBadRequest, apperrors.CartInvalidPlan},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.CartInvalidQuantity},
	{service.ErrEmptyCart, http.StatusBadRequest, apperrors.CartEmpty},
	{service.ErrMissingAddress, http.StatusBadRequest, apperrors.CheckoutMissingAddress},
	{service.ErrMissingPayment, http.StatusBadRequest, apperrors.CheckoutMissingPayment},
	{service.ErrMissingGuestEmail, http.StatusBadRequest, apperrors.CheckoutMissingGuestEmail},
	{service.ErrInvalidAddress, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrAddressNotFound, http.StatusNotFound, apperrors.CheckoutAddressNotFound},
	{service.ErrPaymentMethodNotFound, http.StatusNotFound, apperrors.CheckoutPaymentNotFound},
	{service.ErrNoProviderCustomer, http.StatusBadRequest, apperrors.CheckoutNoProviderCustomer},
	{service.ErrMissingConfirmFields, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrPaymentNotConfirmed, http.StatusBadRequest, apperrors.PaymentNotConfirmed},
	{service.ErrOrderUserMissing, http.StatusBadRequest, apperrors.CheckoutOrderUserMissing},
	{service.ErrCheckoutNotFound, http.StatusNotFound, apperrors.CheckoutOrderNotFound},
	{service.ErrOrderNotPending, http.StatusConflict, apperrors.ResourceConflict},
	{service.ErrCheckoutInProgress, http.StatusConflict, apperrors.CheckoutInProgress},
	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound},
	{service.ErrInvoiceGeneration, http.StatusInternalServerError, apperrors.InvoiceGenerationFail},
}

// respondError writes the response for err. Unknown errors go through the
// storage error parser as 500s.
func respondError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	if errors.Is(err, service.ErrPaymentProvider) {
		msg := "The payment provider could not process the request"
		var pe *stripe.ProviderError
		if errors.As(err, &pe) && pe.Message != "" {
			msg = pe.Message
		}
		log.Error("Payment provider failure", err, map[string]interface{}{
			"context": context,
		})
		apperrors.BadGateway(c, apperrors.PaymentProviderFailed, msg)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				log.Error("Request failed", err, map[string]interface{}{"context": context})
			} else {
				log.Warn("Request rejected", map[string]interface{}{
					"context": context,
					"error":   err.Error(),
				})
			}
			apperrors.RespondWithError(c, m.status, m.code, capitalize(m.err.Error()))
			return
		}
	}

	log.Error("Unexpected error", err, map[string]interface{}{
		"context": context,
	})
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// identityOrAbort returns the session identity set by the session middleware.
func identityOrAbort(c *gin.Context) (service.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Error("Session identity missing from context", nil)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.SessionUnavailable, "Could not establish a session")
		return nil, false
	}
	return id, true
}

// userOrAbort returns the authenticated user id.
func userOrAbort(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}
