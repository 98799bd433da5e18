package usagelimit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"paythru/internal/ratelimit/metrics"
	"paythru/internal/ratelimit/models"
	"paythru/internal/ratelimit/store/usage"
	"paythru/pkg/platform/circuit"
	"paythru/pkg/platform/sentinel"
)

// flakyStore fails while down is set and otherwise delegates to memory.
type flakyStore struct {
	down   bool
	calls  int
	memory *usage.InMemoryStore
}

func (f *flakyStore) Increment(ctx context.Context, key string, limit int, window time.Duration) (*models.UsageResult, error) {
	f.calls++
	if f.down {
		return nil, sentinel.ErrUnavailable
	}
	return f.memory.Increment(ctx, key, limit, window)
}

func (f *flakyStore) Reset(ctx context.Context, key string) error {
	return f.memory.Reset(ctx, key)
}

type ServiceSuite struct {
	suite.Suite
	primary *flakyStore
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.primary = &flakyStore{memory: usage.NewInMemoryStore()}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	svc, err := New(s.primary, 2, time.Hour,
		WithMetrics(s.metrics),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
	)
	s.Require().NoError(err)
	s.service = svc
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestAllowanceIsPerIdentity() {
	for i := 0; i < 2; i++ {
		res, err := s.service.CheckAndIncrement(s.ctx, "ana@example.com")
		s.Require().NoError(err)
		s.True(res.Allowed)
	}

	res, err := s.service.CheckAndIncrement(s.ctx, "ANA@example.com")
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Positive(res.RetryAfter)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.UsageDenials))

	res, err = s.service.CheckAndIncrement(s.ctx, "")
	s.Require().NoError(err)
	s.True(res.Allowed, "anonymous callers have their own allowance")
}

func (s *ServiceSuite) TestFailureBelowThresholdIsReported() {
	s.primary.down = true

	_, err := s.service.CheckAndIncrement(s.ctx, "ana@example.com")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func (s *ServiceSuite) TestFallbackWhileOpenThenRecovery() {
	s.primary.down = true
	_, _ = s.service.CheckAndIncrement(s.ctx, "ana@example.com")

	res, err := s.service.CheckAndIncrement(s.ctx, "ana@example.com")
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.True(res.Degraded)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.FallbackActivations))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Degraded))

	s.primary.down = false
	res, err = s.service.CheckAndIncrement(s.ctx, "ana@example.com")
	s.Require().NoError(err)
	s.False(res.Degraded)
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.Degraded))
}

func TestBypass(t *testing.T) {
	primary := &flakyStore{memory: usage.NewInMemoryStore()}
	svc, err := New(primary, 1, time.Hour, WithBypass(true))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := svc.CheckAndIncrement(context.Background(), "ana@example.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	assert.Zero(t, primary.calls)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, 1, time.Hour)
	assert.Error(t, err)

	_, err = New(usage.NewInMemoryStore(), 0, time.Hour)
	assert.Error(t, err)

	_, err = New(usage.NewInMemoryStore(), 1, 0)
	assert.Error(t, err)
}
