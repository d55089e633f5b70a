package jwt_test

import (
	"testing"
	"thakajabe/config"
	"thakajabe/infras/jwt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "booking-secret"

func sign(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return token
}

func accessClaims(expiresAt time.Time) jwt.Claims {
	return jwt.Claims{
		UserID:  "host-1",
		Role:    "host",
		TokenID: "token-1",
		Type:    jwt.AccessToken,
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
			Issuer:    "identity",
		},
	}
}

func newService() jwt.JWT {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = testSecret
	cfg.JWT.Issuer = "identity"

	return jwt.New(cfg)
}

func TestValidateToken(t *testing.T) {
	svc := newService()

	t.Run("valid token", func(t *testing.T) {
		token := sign(t, accessClaims(time.Now().Add(time.Hour)), testSecret)

		claims, err := svc.ValidateToken(token, jwt.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "host-1", claims.UserID)
		assert.Equal(t, "host", claims.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		token := sign(t, accessClaims(time.Now().Add(-time.Minute)), testSecret)

		_, err := svc.ValidateToken(token, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := sign(t, accessClaims(time.Now().Add(time.Hour)), "other")

		_, err := svc.ValidateToken(token, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := accessClaims(time.Now().Add(time.Hour))
		claims.Issuer = "someone-else"

		_, err := svc.ValidateToken(sign(t, claims, testSecret), jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := accessClaims(time.Now().Add(time.Hour))
		claims.Type = "refresh"

		_, err := svc.ValidateToken(sign(t, claims, testSecret), jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidClaim)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token", jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := jwt.ExtractTokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = jwt.ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = jwt.ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)

	_, err = jwt.ExtractTokenFromHeader("Bearer ")
	assert.Error(t, err)
}
