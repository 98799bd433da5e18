// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; handlers and services read them:
//
//	requestID := requestcontext.RequestID(ctx)
//	identity := requestcontext.Identity(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"
)

type (
	userIDKey      struct{}
	emailKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyEmail       = emailKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// UserID retrieves the authenticated user ID, or "" for anonymous callers.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return v
	}
	return ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// Email retrieves the authenticated caller's email, or "".
func Email(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyEmail).(string); ok {
		return v
	}
	return ""
}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextKeyEmail, email)
}

// Identity is the key usage is accounted against: the caller's email, else
// the user ID, else "" (anonymous).
func Identity(ctx context.Context) string {
	if email := Email(ctx); email != "" {
		return email
	}
	return UserID(ctx)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request-scoped time, or time.Now() when none was captured.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
