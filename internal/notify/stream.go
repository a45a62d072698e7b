package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/campusbites/orderline/pkg/cache"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// terminal statuses after which the stream closes gracefully (spec.md §4.I,
// §4.G; mirrors store.IsTerminal without importing the order store into
// this service).
var terminalStatuses = map[string]bool{"READY": true, "FAILED": true}

// StreamConfig parameterizes the long-lived push stream.
type StreamConfig struct {
	KeepAlive  time.Duration
	RetryMS    int
	PollWindow time.Duration
}

// Stream serves the server-push protocol for a single order_id (spec.md
// §4.I). It subscribes to "order:{order_id}", polling with a 1 s timeout;
// every message is framed as an order_update event, a terminal status
// closes the stream, a keepalive comment is sent on idle polls, and the
// chaos flag is rechecked on every iteration.
func Stream(c *gin.Context, cacheClient cache.Cache, chaos *ChaosGate, cfg StreamConfig, orderID string) {
	ctx := c.Request.Context()

	if chaos.Enabled(ctx) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "notification hub is unavailable (chaos mode active)"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := cacheClient.Subscribe(ctx, channelName(orderID))
	defer sub.Close()

	wroteInitial := false

	c.Stream(func(w io.Writer) bool {
		if !wroteInitial {
			fmt.Fprintf(w, ": connected to order %s\n\n", orderID)
			fmt.Fprintf(w, "retry: %d\n\n", cfg.RetryMS)
			wroteInitial = true
			return true
		}

		if ctx.Err() != nil {
			return false
		}

		if chaos.Enabled(ctx) {
			fmt.Fprint(w, "event: error\ndata: {\"detail\": \"service disrupted (chaos mode)\"}\n\n")
			return false
		}

		msg, err := sub.ReceiveTimeout(ctx, cfg.PollWindow)
		if err != nil {
			// Timeout (or transient error): no message this poll. Sleep the
			// keepalive interval before the next check, same as the
			// interval used by the hub this service was adapted from.
			fmt.Fprint(w, ": keepalive\n\n")
			select {
			case <-ctx.Done():
				return false
			case <-time.After(cfg.KeepAlive):
			}
			return true
		}

		payload, ok := msg.(*redis.Message)
		if !ok {
			// Subscription/unsubscription confirmation, not a data message.
			return true
		}

		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(payload.Payload), &decoded); err != nil {
			slog.Warn("failed to decode order update payload", "order_id", orderID, "error", err)
			decoded = map[string]interface{}{"raw": payload.Payload}
		}

		fmt.Fprintf(w, "event: order_update\ndata: %s\n\n", payload.Payload)

		status, _ := decoded["status"].(string)
		return !terminalStatuses[status]
	})
}
