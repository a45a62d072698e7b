package token

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretKeySize = 32

// JWTMaker is a JSON Web Token maker.
type JWTMaker struct {
	secretKey string
}

// NewJWTMaker creates a new JWTMaker.
func NewJWTMaker(secretKey string) (Maker, error) {
	if len(secretKey) < minSecretKeySize {
		return nil, fmt.Errorf("invalid key size: must be at least %d characters", minSecretKeySize)
	}
	return &JWTMaker{secretKey: secretKey}, nil
}

func (maker *JWTMaker) createToken(principalID uint64, username string, isAdmin bool, tokenType TokenType, duration time.Duration) (string, *Payload, error) {
	payload, err := NewPayload(principalID, username, isAdmin, tokenType, duration)
	if err != nil {
		return "", payload, err
	}

	// Round-trip the payload through JSON so struct fields map onto jwt
	// claims without hand-maintaining a parallel claims type.
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", payload, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return "", payload, fmt.Errorf("failed to unmarshal payload into claims: %w", err)
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := jwtToken.SignedString([]byte(maker.secretKey))
	return signed, payload, err
}

// CreateAccessToken issues a short-lived access token for the principal.
func (maker *JWTMaker) CreateAccessToken(principalID uint64, username string, isAdmin bool, duration time.Duration) (string, *Payload, error) {
	return maker.createToken(principalID, username, isAdmin, TokenTypeAccess, duration)
}

// CreateRefreshToken issues a long-lived refresh token for the principal.
func (maker *JWTMaker) CreateRefreshToken(principalID uint64, username string, isAdmin bool, duration time.Duration) (string, *Payload, error) {
	return maker.createToken(principalID, username, isAdmin, TokenTypeRefresh, duration)
}

// VerifyToken checks if the token is valid, unexpired, and of expectedType.
func (maker *JWTMaker) VerifyToken(token string, expectedType TokenType) (*Payload, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, ErrInvalidToken
		}
		return []byte(maker.secretKey), nil
	}

	jwtToken, err := jwt.Parse(token, keyFunc)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	// jwt-go parses numbers as float64; round-trip through JSON to land
	// back on the Payload's native types.
	jsonBody, err := json.Marshal(claims)
	if err != nil {
		return nil, ErrInvalidToken
	}

	payload := &Payload{}
	if err := json.Unmarshal(jsonBody, payload); err != nil {
		return nil, ErrInvalidToken
	}

	if err := payload.Valid(); err != nil {
		return nil, err
	}

	if payload.Type != expectedType {
		return nil, ErrWrongTokenType
	}

	return payload, nil
}
