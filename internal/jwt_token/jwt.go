package jwttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "paythru/pkg/domain-errors"
)

// Claims are the access-token claims issued by the onboarding portal. Email
// identifies the caller for usage accounting; UserID is the fallback.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTService validates portal access tokens. It can also mint them, which the
// portal and tests use; the OCR endpoints only validate.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	leeway     time.Duration
	now        func() time.Time
}

type Option func(*JWTService)

// WithLeeway tolerates clock skew between the portal and this service.
func WithLeeway(d time.Duration) Option {
	return func(s *JWTService) {
		s.leeway = d
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

func NewJWTService(signingKey, issuer, audience string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken signs an HS256 token for userID and email. The email is
// stored lower-cased so usage keys do not depend on how the user typed it.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, email string, expiresIn time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID.String(),
		Email:  strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ValidateToken checks signature, issuer, audience and expiry, and requires
// the token to name a caller. Every failure carries CodeUnauthorized.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	case claims.Email == "" && claims.UserID == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token does not identify a caller")
	}
	return claims, nil
}
