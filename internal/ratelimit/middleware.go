package ratelimit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	StudentID string `json:"student_id"`
}

// Middleware applies the sliding-window limiter to the login endpoint.
// It extracts the principal from the request body, falling back to the
// transport peer address, then re-presents the body to the handler
// (spec.md §4.D, §9 "Body re-presentation": buffer once, inject a
// re-readable view downstream, never read the socket twice).
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		key := extractPrincipalKey(bodyBytes, c.ClientIP())

		if err := limiter.CheckAndRecord(c.Request.Context(), key); err != nil {
			c.Header("Retry-After", strconv.Itoa(int(limiter.RetryAfter().Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "too many login attempts"})
			return
		}

		c.Next()
	}
}

func extractPrincipalKey(body []byte, fallback string) string {
	var parsed loginBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.StudentID != "" {
		return parsed.StudentID
	}
	return fallback
}
