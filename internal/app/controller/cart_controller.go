package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	apperrors "github.com/sentinelshop/storefront-api/internal/errors"
	"github.com/sentinelshop/storefront-api/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID        uint                   `json:"productId" binding:"required"`
	Quantity         int                    `json:"quantity" binding:"required,gt=0"`
	SubscriptionType model.SubscriptionPlan `json:"subscriptionType"`
}

type UpdateCartRequest struct {
	Quantity         int                    `json:"quantity" binding:"required,gt=0"`
	SubscriptionType model.SubscriptionPlan `json:"subscriptionType"`
}

// GetCart returns the session's cart with its totals
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.GetCart(c.Request.Context(), identity.SessionID())
	if err != nil {
		respondError(c, err, "fetch cart")
		return
	}

	log.Debug("Cart fetched", map[string]interface{}{
		"session_id": identity.SessionID(),
		"count":      view.Count,
	})

	c.JSON(http.StatusOK, gin.H{
		"items":    view.Items,
		"count":    view.Count,
		"subtotal": view.Quote.Subtotal.InexactFloat64(),
		"tax":      view.Quote.Tax.InexactFloat64(),
		"total":    view.Quote.Total.InexactFloat64(),
	})
}

// AddToCart adds a product or merges it into an existing line
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid cart item")
		return
	}
	if req.SubscriptionType == "" {
		req.SubscriptionType = model.PlanMonthly
	}

	item, err := ctrl.cartService.Add(c.Request.Context(), identity.SessionID(), req.ProductID, req.Quantity, req.SubscriptionType)
	if err != nil {
		respondError(c, err, "add to cart")
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"session_id": identity.SessionID(),
		"product_id": req.ProductID,
		"quantity":   item.Quantity,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"item":    item,
	})
}

// UpdateCartItem changes quantity and plan of a line
// PUT /api/v1/cart/:id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid cart item")
		return
	}

	item, err := ctrl.cartService.Update(c.Request.Context(), identity.SessionID(), itemID, req.Quantity, req.SubscriptionType)
	if err != nil {
		respondError(c, err, "update cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
		"item":    item,
	})
}

// RemoveFromCart deletes a line
// DELETE /api/v1/cart/:id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.cartService.Remove(c.Request.Context(), identity.SessionID(), itemID); err != nil {
		respondError(c, err, "remove cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// ClearCart empties the session's cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.Clear(c.Request.Context(), identity.SessionID()); err != nil {
		respondError(c, err, "clear cart")
		return
	}

	log.Info("Cart cleared", map[string]interface{}{
		"session_id": identity.SessionID(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
