package handler

import (
	"errors"
	"net/http"

	"github.com/campusbites/orderline/internal/service"
	"github.com/campusbites/orderline/internal/store"
	"github.com/gin-gonic/gin"
)

// StockHandler defines the HTTP handlers for the Stock service (§4.A, §4.B).
type StockHandler struct {
	stock service.StockService
}

// NewStockHandler creates a new StockHandler instance.
func NewStockHandler(stock service.StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

type deductItemRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int64  `json:"quantity" binding:"required,min=1"`
}

type deductRequest struct {
	OrderID     string              `json:"order_id" binding:"required"`
	PrincipalID uint64              `json:"principal_id"`
	Items       []deductItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Deduct is the Deduction Engine's HTTP surface, called by the gateway's
// StockClient (spec.md §4.B, §4.F step 3).
func (h *StockHandler) Deduct(c *gin.Context) {
	var req deductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	items := make([]service.DeductItemReq, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.DeductItemReq{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}

	results, err := h.stock.Deduct(c.Request.Context(), req.OrderID, req.PrincipalID, items)
	if err != nil {
		if errors.Is(err, service.ErrOutOfStock) {
			c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "deducted_items": results, "status": "deducted"})
}

// GetStock returns the current stock level for one menu item.
func (h *StockHandler) GetStock(c *gin.Context) {
	menuItemID := c.Param("menu_item_id")

	view, err := h.stock.GetStock(c.Request.Context(), menuItemID)
	if err != nil {
		if errors.Is(err, store.ErrInventoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListStock returns every menu item's current stock level.
func (h *StockHandler) ListStock(c *gin.Context) {
	views, err := h.stock.ListStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": views})
}
