// Package usagelimit enforces the per-caller OCR analysis allowance.
package usagelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"paythru/internal/ratelimit/metrics"
	"paythru/internal/ratelimit/models"
	"paythru/internal/ratelimit/ports"
	"paythru/internal/ratelimit/store/usage"
	"paythru/pkg/platform/circuit"
)

type Store = ports.UsageStore

// Service implements ports.UsageLimiter. When the primary store keeps
// failing, checks are answered by an in-memory fallback until the primary
// recovers.
type Service struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	bypass   bool
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

var _ ports.UsageLimiter = (*Service)(nil)

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFallback replaces the in-memory fallback store.
func WithFallback(store Store) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// WithBypass lets every call through without counting. Used in development.
func WithBypass(bypass bool) Option {
	return func(s *Service) {
		s.bypass = bypass
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(primary Store, limit int, window time.Duration, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, errors.New("usage store is required")
	}
	if err := models.ValidateLimit(limit, window); err != nil {
		return nil, err
	}
	s := &Service{
		primary: primary,
		limit:   limit,
		window:  window,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		s.fallback = usage.NewInMemoryStore()
	}
	if s.breaker == nil {
		s.breaker = circuit.New("ocr_usage")
	}
	if s.bypass {
		s.logger.Info("ocr usage limiting disabled")
	}
	return s, nil
}

// CheckAndIncrement consumes one analysis from identity's allowance.
// An error is returned only when neither store can answer.
func (s *Service) CheckAndIncrement(ctx context.Context, identity string) (*models.UsageResult, error) {
	if s.bypass {
		s.observe("bypassed")
		return models.Unlimited(s.now()), nil
	}

	key := models.NewUsageKey(identity)
	res, err := s.primary.Increment(ctx, key, s.limit, s.window)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "usage limiter recovered, primary store in use")
			if s.metrics != nil {
				s.metrics.ClearDegraded()
			}
		}
		if !s.breaker.IsOpen() {
			return s.finish(ctx, res), nil
		}
	} else {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "usage limiter degraded, using in-memory fallback", "error", err)
			if s.metrics != nil {
				s.metrics.IncrementFallbackActivations()
			}
		}
		if !useFallback {
			return nil, fmt.Errorf("check usage: %w", err)
		}
	}

	res, err = s.fallback.Increment(ctx, key, s.limit, s.window)
	if err != nil {
		return nil, fmt.Errorf("check usage fallback: %w", err)
	}
	res.Degraded = true
	return s.finish(ctx, res), nil
}

func (s *Service) finish(ctx context.Context, res *models.UsageResult) *models.UsageResult {
	if res.Allowed {
		s.observe("allowed")
		return res
	}
	s.observe("denied")
	if s.metrics != nil {
		s.metrics.IncrementDenials()
	}
	s.logger.InfoContext(ctx, "ocr usage limit reached",
		"limit", res.Limit,
		"reset_at", res.ResetAt,
		"degraded", res.Degraded,
	)
	return res
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveCheck(outcome)
	}
}
