package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"paythru/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID string
	Email  string
}

const bearerPrefix = "Bearer "

// OptionalAuth attaches the caller's identity when a valid bearer token is
// present. Requests without one continue anonymously; a token that is
// present but invalid is rejected so callers cannot silently fall into the
// shared anonymous allowance.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx, ok := authenticate(r.Context(), validator, logger, authHeader)
			if !ok {
				writeUnauthorized(w, r.Context(), logger, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, r.Context(), logger, "Missing or invalid Authorization header")
				return
			}
			ctx, ok := authenticate(r.Context(), validator, logger, authHeader)
			if !ok {
				writeUnauthorized(w, r.Context(), logger, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, validator JWTValidator, logger *slog.Logger, authHeader string) (context.Context, bool) {
	token, ok := strings.CutPrefix(authHeader, bearerPrefix)
	if !ok {
		logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
			"request_id", requestcontext.RequestID(ctx),
		)
		return ctx, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return ctx, false
	}
	ctx = requestcontext.WithUserID(ctx, claims.UserID)
	ctx = requestcontext.WithEmail(ctx, claims.Email)
	return ctx, true
}

func writeUnauthorized(w http.ResponseWriter, ctx context.Context, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
	if err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
