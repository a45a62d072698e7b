package token

import (
	"time"
)

// Maker is the Token Authority's signing/verification contract (spec.md
// §4.J). Access and refresh tokens are created through distinct methods so
// callers cannot accidentally swap their durations or claims.
type Maker interface {
	// CreateAccessToken issues a short-lived access token for the principal.
	CreateAccessToken(principalID uint64, username string, isAdmin bool, duration time.Duration) (string, *Payload, error)

	// CreateRefreshToken issues a long-lived refresh token for the principal.
	CreateRefreshToken(principalID uint64, username string, isAdmin bool, duration time.Duration) (string, *Payload, error)

	// VerifyToken checks that the token is well-formed, unexpired, and of
	// the expected type, returning ErrWrongTokenType if it is not.
	VerifyToken(token string, expectedType TokenType) (*Payload, error)
}
