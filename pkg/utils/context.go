package utils

import (
	"fmt"

	"github.com/campusbites/orderline/pkg/token"
	"github.com/gin-gonic/gin"
)

const AuthorizationPayloadKey = "authorization_payload"

// GetPrincipalIDFromContext retrieves the PrincipalID from the Gin context.
// It assumes AuthMiddleware has already set the authorization_payload.
func GetPrincipalIDFromContext(c *gin.Context) (uint64, error) {
	payload, exists := c.Get(AuthorizationPayloadKey)
	if !exists {
		return 0, fmt.Errorf("authorization payload not found in context")
	}

	claims, ok := payload.(*token.Payload)
	if !ok {
		return 0, fmt.Errorf("authorization payload is not of type token.Payload")
	}

	return claims.PrincipalID, nil
}

// GetPayloadFromContext retrieves the full token payload, e.g. to check
// IsAdmin before allowing a manual override (spec.md §4.G).
func GetPayloadFromContext(c *gin.Context) (*token.Payload, error) {
	payload, exists := c.Get(AuthorizationPayloadKey)
	if !exists {
		return nil, fmt.Errorf("authorization payload not found in context")
	}

	claims, ok := payload.(*token.Payload)
	if !ok {
		return nil, fmt.Errorf("authorization payload is not of type token.Payload")
	}

	return claims, nil
}
