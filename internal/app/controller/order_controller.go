package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	"github.com/sentinelshop/storefront-api/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// GetOrders returns user's orders
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := userOrAbort(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "fetch orders")
		return
	}

	log.Info("Orders fetched successfully", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one order with its summary
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	userID, ok := userOrAbort(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err, "fetch order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"summary": service.SummarizeOrder(order),
	})
}

// AbandonStale runs the stale pending order sweep on demand
// POST /api/v1/admin/orders/abandon-stale
func (ctrl *OrderController) AbandonStale(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	n, err := ctrl.orderService.AbandonStale(c.Request.Context())
	if err != nil {
		respondError(c, err, "abandon stale orders")
		return
	}

	log.Info("Stale orders abandoned on demand", map[string]interface{}{
		"count": n,
	})
	c.JSON(http.StatusOK, gin.H{"abandoned": n})
}
