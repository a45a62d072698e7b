package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/campusbites/orderline/internal/orderflow"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/utils"
	"github.com/gin-gonic/gin"
)

// OverrideHandler exposes the order state machine's manual-override
// interface (spec.md §4.G): advancing or reverting a single step along the
// linear chain, restricted to admin principals and never publishing.
type OverrideHandler struct {
	machine *orderflow.Machine
}

// NewOverrideHandler creates a new OverrideHandler instance.
func NewOverrideHandler(machine *orderflow.Machine) *OverrideHandler {
	return &OverrideHandler{machine: machine}
}

// Advance moves an order one step forward along the linear chain.
func (h *OverrideHandler) Advance(c *gin.Context) {
	h.override(c, h.machine.Advance)
}

// Revert moves an order one step backward along the linear chain.
func (h *OverrideHandler) Revert(c *gin.Context) {
	h.override(c, h.machine.Revert)
}

func (h *OverrideHandler) override(c *gin.Context, transition func(ctx context.Context, orderID string) error) {
	payload, err := utils.GetPayloadFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
		return
	}
	if !payload.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"detail": "manual override requires an admin principal"})
		return
	}

	orderID := c.Param("order_id")

	if err := transition(c.Request.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, orderflow.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		case errors.Is(err, store.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
