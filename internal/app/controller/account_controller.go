package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	apperrors "github.com/sentinelshop/storefront-api/internal/errors"
	"github.com/sentinelshop/storefront-api/internal/middleware"
)

type AccountController struct {
	accountService service.AccountService
}

func NewAccountController(accountService service.AccountService) *AccountController {
	return &AccountController{
		accountService: accountService,
	}
}

type AddressRequest struct {
	FullName   string `json:"fullName" binding:"required,max=100"`
	Address1   string `json:"address1" binding:"required,max=200"`
	Address2   string `json:"address2" binding:"max=200"`
	PostalCode string `json:"postalCode" binding:"required,max=20"`
	City       string `json:"city" binding:"required,max=100"`
	Country    string `json:"country" binding:"required,len=2"`
}

func (r AddressRequest) input() service.AddressInput {
	return service.AddressInput{
		FullName:   r.FullName,
		Address1:   r.Address1,
		Address2:   r.Address2,
		PostalCode: r.PostalCode,
		City:       r.City,
		Country:    r.Country,
	}
}

type PaymentMethodRequest struct {
	CardName        string `json:"cardName" binding:"required,max=100"`
	StripePaymentID string `json:"stripePaymentId" binding:"required"`
	Brand           string `json:"brand" binding:"required"`
	Last4           string `json:"last4" binding:"required,len=4"`
	ExpMonth        int    `json:"expMonth" binding:"required,min=1,max=12"`
	ExpYear         int    `json:"expYear" binding:"required"`
}

func (r PaymentMethodRequest) input() service.PaymentMethodInput {
	return service.PaymentMethodInput{
		CardName:        r.CardName,
		StripePaymentID: r.StripePaymentID,
		Brand:           r.Brand,
		Last4:           r.Last4,
		ExpMonth:        r.ExpMonth,
		ExpYear:         r.ExpYear,
	}
}

// ListAddresses GET /api/v1/addresses
func (ctrl *AccountController) ListAddresses(c *gin.Context) {
	userID, ok := userOrAbort(c)
	if !ok {
		return
	}

	addresses, err := ctrl.accountService.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "list addresses")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// CreateAddress POST /api/v1/addresses
func (ctrl *AccountController) CreateAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := userOrAbort(c)
	if !ok {
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid address request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid address")
		return
	}

	address, err := ctrl.accountService.CreateAddress(c.Request.Context(), userID, req.input())
	if err != nil {
		respondError(c, err, "create address")
		return
	}

	log.Info("Address created", map[string]interface{}{
		"user_id":    userID,
		"address_id": address.ID,
	})
	c.JSON(http.StatusCreated, gin.H{"address": address})
}

// ListPaymentMethods GET /api/v1/payment-methods
func (ctrl *AccountController) ListPaymentMethods(c *gin.Context) {
	userID, ok := userOrAbort(c)
	if !ok {
		return
	}

	methods, err := ctrl.accountService.ListPaymentMethods(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "list payment methods")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_methods": methods,
		"count":           len(methods),
	})
}

// CreatePaymentMethod POST /api/v1/payment-methods
func (ctrl *AccountController) CreatePaymentMethod(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := userOrAbort(c)
	if !ok {
		return
	}

	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid payment method request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid payment method")
		return
	}

	method, err := ctrl.accountService.CreatePaymentMethod(c.Request.Context(), userID, req.input())
	if err != nil {
		respondError(c, err, "create payment method")
		return
	}

	log.Info("Payment method created", map[string]interface{}{
		"user_id":   userID,
		"method_id": method.ID,
	})
	c.JSON(http.StatusCreated, gin.H{"payment_method": method})
}
