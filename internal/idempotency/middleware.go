// Package idempotency implements the Idempotency Cache middleware
// (spec.md §4.E): replay a cached response for a known fingerprint, or
// run the handler once and capture its response for future replays.
package idempotency

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/campusbites/orderline/pkg/cache"
	"github.com/gin-gonic/gin"
)

const (
	keyPrefix    = "idempotent:"
	headerName   = "Idempotency-Key"
	replayHeader = "X-Idempotency-Replay"
)

type cachedResponse struct {
	Body       json.RawMessage `json:"body"`
	StatusCode int             `json:"status_code"`
}

// bodyCapture wraps gin.ResponseWriter to buffer the body written by the
// handler so it can be cached after the fact (spec.md §9 "Body
// re-presentation" — same buffer-once principle applied to responses).
type bodyCapture struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware applies idempotent replay to order creation (spec.md §4.E).
// Only requests carrying the Idempotency-Key header are affected; others
// pass straight through.
func Middleware(c cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fingerprint := ctx.GetHeader(headerName)
		if fingerprint == "" {
			ctx.Next()
			return
		}

		cacheKey := keyPrefix + fingerprint

		cached, err := c.Get(ctx.Request.Context(), cacheKey)
		if err != nil {
			slog.Warn("idempotency cache lookup failed, proceeding without replay", "error", err)
		} else if cached != "" {
			var resp cachedResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				ctx.Header(replayHeader, "true")
				ctx.Data(resp.StatusCode, "application/json", resp.Body)
				ctx.Abort()
				return
			}
		}

		capture := &bodyCapture{ResponseWriter: ctx.Writer, status: http.StatusOK}
		ctx.Writer = capture

		ctx.Next()

		// Only non-5xx responses are captured, so a failed handler can be
		// retried by the client with the same fingerprint (spec.md §4.E).
		if capture.status < http.StatusInternalServerError {
			toCache := cachedResponse{Body: json.RawMessage(capture.buf.Bytes()), StatusCode: capture.status}
			payload, err := json.Marshal(toCache)
			if err != nil {
				slog.Warn("failed to marshal idempotency cache entry", "error", err)
				return
			}
			if err := c.Set(ctx.Request.Context(), cacheKey, string(payload), ttl); err != nil {
				slog.Warn("failed to store idempotency cache entry", "error", err)
			}
		}
	}
}
