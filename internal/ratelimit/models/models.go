package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "paythru/pkg/domain-errors"
)

// AnonymousIdentity is the usage identity of callers without a bearer token.
// All of them share one allowance.
const AnonymousIdentity = "anonymous"

// UsageResult is the outcome of one check-and-increment against a caller's
// analysis allowance.
type UsageResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Degraded   bool      `json:"-"`                     // answered by the in-memory fallback
}

// Unlimited is returned when the limiter is bypassed.
func Unlimited(now time.Time) *UsageResult {
	return &UsageResult{Allowed: true, Limit: -1, Remaining: -1, ResetAt: now}
}

// NewUsageKey builds the store key for an identity. Identities are
// case-insensitive emails or user ids; empty means anonymous.
func NewUsageKey(identity string) string {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		identity = AnonymousIdentity
	}
	return "ocr_usage:" + SanitizeKeySegment(identity)
}

// RetryAfterSeconds rounds the time until resetAt up to whole seconds, never
// returning less than one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// DeniedMessage is shown to a caller whose allowance is spent.
func DeniedMessage(r *UsageResult, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("Has alcanzado el límite de %d análisis por hora. Vuelve después de %s.",
		r.Limit, r.ResetAt.In(loc).Format("02/01/2006 15:04:05"))
}

// ValidateLimit checks limiter settings.
func ValidateLimit(limit int, window time.Duration) error {
	if limit <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "usage limit must be positive")
	}
	if window <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "usage window must be positive")
	}
	return nil
}
