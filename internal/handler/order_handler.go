package handler

import (
	"errors"
	"net/http"

	"github.com/campusbites/orderline/internal/service"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/utils"
	"github.com/gin-gonic/gin"
)

// OrderHandler defines the HTTP handlers for the Ingress Gateway (§4.F).
type OrderHandler struct {
	orders service.OrderService
}

// NewOrderHandler creates a new OrderHandler instance.
func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder runs the admission-check/deduct/dispatch pipeline and
// responds 202 Accepted on success (spec.md §4.F).
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	principalID, err := utils.GetPrincipalIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
		return
	}

	var req service.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	fingerprint := c.GetHeader("Idempotency-Key")

	resp, err := h.orders.CreateOrder(c.Request.Context(), principalID, fingerprint, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOutOfStockCache):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		case errors.Is(err, service.ErrOutOfStockDB):
			c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
		case errors.Is(err, service.ErrUpstreamTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"detail": err.Error()})
		case errors.Is(err, service.ErrUpstreamUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetOrder returns the current status of an order for polling clients that
// do not use the SSE stream.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("order_id")

	resp, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
