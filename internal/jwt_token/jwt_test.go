package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "paythru/pkg/domain-errors"
)

const (
	testKey      = "test-signing-key"
	testIssuer   = "test-issuer"
	testAudience = "test-audience"
)

var (
	userID    = uuid.New()
	expiresIn = time.Hour
	issuedAt  = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

func fixedService(opts ...Option) *JWTService {
	opts = append([]Option{WithNow(func() time.Time { return issuedAt })}, opts...)
	return NewJWTService(testKey, testIssuer, testAudience, opts...)
}

func assertUnauthorized(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	if msg != "" {
		assert.Contains(t, err.Error(), msg)
	}
}

func Test_GenerateAccessToken(t *testing.T) {
	svc := fixedService()
	token, err := svc.GenerateAccessToken(userID, " Ana@Example.com", expiresIn)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, issuedAt.Add(expiresIn).Equal(claims.ExpiresAt.Time))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := fixedService().ValidateToken("invalid-token-string")
	assertUnauthorized(t, err, "invalid token")
}

func Test_ValidateToken_Expiry(t *testing.T) {
	token, err := fixedService().GenerateAccessToken(userID, "ana@example.com", time.Minute)
	require.NoError(t, err)

	later := func() time.Time { return issuedAt.Add(2 * time.Minute) }

	_, err = NewJWTService(testKey, testIssuer, testAudience, WithNow(later)).ValidateToken(token)
	assertUnauthorized(t, err, "token has expired")

	_, err = NewJWTService(testKey, testIssuer, testAudience, WithNow(later), WithLeeway(5*time.Minute)).ValidateToken(token)
	assert.NoError(t, err, "leeway absorbs clock skew")
}

func Test_ValidateToken_WrongAudienceOrIssuer(t *testing.T) {
	svc := fixedService()
	for _, other := range []*JWTService{
		NewJWTService(testKey, testIssuer, "other-audience", WithNow(func() time.Time { return issuedAt })),
		NewJWTService(testKey, "other-issuer", testAudience, WithNow(func() time.Time { return issuedAt })),
	} {
		token, err := other.GenerateAccessToken(userID, "ana@example.com", expiresIn)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assertUnauthorized(t, err, "")
	}
}

func Test_ValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = fixedService().ValidateToken(token)
	assertUnauthorized(t, err, "invalid token")
}

func Test_ValidateToken_RequiresCaller(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = fixedService().ValidateToken(token)
	assertUnauthorized(t, err, "does not identify a caller")
}

func Test_Adapter(t *testing.T) {
	svc := fixedService()
	token, err := svc.GenerateAccessToken(userID, "ana@example.com", expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.UserID)

	_, err = NewJWTServiceAdapter(svc).ValidateToken("garbage")
	assert.Error(t, err)
}
