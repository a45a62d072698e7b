package handler

import (
	"net/http"

	"github.com/campusbites/orderline/internal/notify"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/gin-gonic/gin"
)

// NotifyHandler defines the HTTP handlers for the Notification Fan-out
// service (§4.I).
type NotifyHandler struct {
	publisher *notify.Publisher
	chaos     *notify.ChaosGate
	cache     cache.Cache
	streamCfg notify.StreamConfig
}

// NewNotifyHandler creates a new NotifyHandler instance.
func NewNotifyHandler(publisher *notify.Publisher, chaos *notify.ChaosGate, c cache.Cache, streamCfg notify.StreamConfig) *NotifyHandler {
	return &NotifyHandler{publisher: publisher, chaos: chaos, cache: c, streamCfg: streamCfg}
}

// Publish accepts {order_id, status, principal_id} and fans it out to the
// order's channel, returning immediately (spec.md §4.I Publish API).
func (h *NotifyHandler) Publish(c *gin.Context) {
	var update notify.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	channel, err := h.publisher.Publish(c.Request.Context(), update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

// Stream serves the long-lived SSE push for a given order_id.
func (h *NotifyHandler) Stream(c *gin.Context) {
	notify.Stream(c, h.cache, h.chaos, h.streamCfg, c.Param("order_id"))
}

type chaosRequest struct {
	Enabled bool `json:"enabled"`
}

// SetChaos is the operator-only endpoint for toggling fault injection
// (spec.md §6 GLOSSARY "Chaos flag").
func (h *NotifyHandler) SetChaos(c *gin.Context) {
	var req chaosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	var err error
	if req.Enabled {
		err = h.chaos.Enable(c.Request.Context())
	} else {
		err = h.chaos.Disable(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled})
}
