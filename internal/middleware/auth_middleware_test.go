package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusbites/orderline/pkg/token"
	"github.com/campusbites/orderline/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMaker is a hand-written stand-in for token.Maker.
type fakeMaker struct {
	verifyFn func(tokenStr string, expectedType token.TokenType) (*token.Payload, error)
}

func (f *fakeMaker) CreateAccessToken(principalID uint64, username string, isAdmin bool, duration time.Duration) (string, *token.Payload, error) {
	return "", nil, nil
}
func (f *fakeMaker) CreateRefreshToken(principalID uint64, username string, isAdmin bool, duration time.Duration) (string, *token.Payload, error) {
	return "", nil, nil
}
func (f *fakeMaker) VerifyToken(tokenStr string, expectedType token.TokenType) (*token.Payload, error) {
	return f.verifyFn(tokenStr, expectedType)
}

func newTestTokenMaker(t *testing.T) token.Maker {
	maker, err := token.NewJWTMaker("12345678901234567890123456789012")
	require.NoError(t, err)
	return maker
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	realTokenMaker := newTestTokenMaker(t)

	testPrincipalID := uint64(1)
	testUsername := "teststudent"
	validToken, validPayload, err := realTokenMaker.CreateAccessToken(testPrincipalID, testUsername, false, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		maker      token.Maker
		wantStatus int
		wantDetail string
		checkCtx   bool
	}{
		{
			name:       "NoAuthorizationHeader",
			authHeader: "",
			maker:      &fakeMaker{},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "authorization header is not provided",
		},
		{
			name:       "InvalidFormat_NoBearer",
			authHeader: "InvalidFormat",
			maker:      &fakeMaker{},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "invalid authorization header format",
		},
		{
			name:       "UnsupportedAuthorizationType",
			authHeader: "Basic token",
			maker:      &fakeMaker{},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "unsupported authorization type",
		},
		{
			name:       "InvalidToken",
			authHeader: "Bearer invalid_token",
			maker: &fakeMaker{verifyFn: func(tokenStr string, expectedType token.TokenType) (*token.Payload, error) {
				return nil, token.ErrInvalidToken
			}},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "unauthorized",
		},
		{
			name:       "ValidToken",
			authHeader: "Bearer " + validToken,
			maker: &fakeMaker{verifyFn: func(tokenStr string, expectedType token.TokenType) (*token.Payload, error) {
				assert.Equal(t, token.TokenTypeAccess, expectedType)
				return validPayload, nil
			}},
			wantStatus: http.StatusOK,
			checkCtx:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest("GET", "/orders", nil)

			if tt.authHeader != "" {
				c.Request.Header.Set("Authorization", tt.authHeader)
			}

			var contextPayload *token.Payload
			testHandler := func(c *gin.Context) {
				payload, exists := c.Get(utils.AuthorizationPayloadKey)
				if exists {
					contextPayload = payload.(*token.Payload)
				}
				c.Status(http.StatusOK)
			}

			handler := AuthMiddleware(tt.maker)
			handler(c)

			if !c.IsAborted() {
				testHandler(c)
			}

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				var respBody map[string]string
				err := json.Unmarshal(w.Body.Bytes(), &respBody)
				require.NoError(t, err)
				assert.Equal(t, tt.wantDetail, respBody["detail"])
			}
			if tt.checkCtx {
				require.NotNil(t, contextPayload)
				assert.Equal(t, testPrincipalID, contextPayload.PrincipalID)
				assert.Equal(t, testUsername, contextPayload.Username)
			}
		})
	}
}

func TestAuthMiddleware_PublicPathsBypassAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, path := range []string{"/", "/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest("GET", path, nil)

			handler := AuthMiddleware(&fakeMaker{})
			handler(c)
			c.Status(http.StatusOK)

			assert.False(t, c.IsAborted())
		})
	}
}

func TestAuthMiddleware_OptionsAlwaysPasses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodOptions, "/orders", nil)

	handler := AuthMiddleware(&fakeMaker{})
	handler(c)
	c.Status(http.StatusOK)

	assert.False(t, c.IsAborted())
}
