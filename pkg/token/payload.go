package token

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is malformed, uses an
	// unexpected signing method, or fails claim validation.
	ErrInvalidToken = errors.New("token is invalid")
	// ErrExpiredToken is returned when the token's expiry has passed.
	ErrExpiredToken = errors.New("token has expired")
	// ErrWrongTokenType is returned when a refresh token is presented where
	// an access token is required, or vice versa (spec.md §4.J).
	ErrWrongTokenType = errors.New("token is not of the expected type")
)

// TokenType discriminates access tokens from refresh tokens so a refresh
// token can never be accepted in place of an access token and vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Payload is the decoded body of a Token Authority JWT (spec.md §4.J).
// PrincipalID identifies the student/staff account the token was issued
// to; IsAdmin is carried only so the kitchen service doesn't need a second
// lookup to authorize the manual-override endpoints.
type Payload struct {
	ID          uuid.UUID `json:"id"`
	PrincipalID uint64    `json:"principal_id"`
	Username    string    `json:"username"`
	IsAdmin     bool      `json:"is_admin"`
	Type        TokenType `json:"type"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiredAt   time.Time `json:"expired_at"`
}

// NewPayload creates a new token payload with a fresh id and the given
// lifetime, for the given token type.
func NewPayload(principalID uint64, username string, isAdmin bool, tokenType TokenType, duration time.Duration) (*Payload, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Payload{
		ID:          id,
		PrincipalID: principalID,
		Username:    username,
		IsAdmin:     isAdmin,
		Type:        tokenType,
		IssuedAt:    now,
		ExpiredAt:   now.Add(duration),
	}, nil
}

// Valid checks whether the payload's expiry has passed. It satisfies the
// shape jwt-go expects from a custom claims validator.
func (payload *Payload) Valid() error {
	if time.Now().After(payload.ExpiredAt) {
		return ErrExpiredToken
	}
	return nil
}
