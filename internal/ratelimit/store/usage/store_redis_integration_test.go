//go:build integration

package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"paythru/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestAllowsUpToLimitThenDenies() {
	for i := 0; i < testLimit; i++ {
		res, err := s.store.Increment(s.ctx, "ocr_usage:ana", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit-1-i, res.Remaining)
	}

	res, err := s.store.Increment(s.ctx, "ocr_usage:ana", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Greater(res.RetryAfter, 0)
	s.WithinDuration(time.Now().Add(testWindow), res.ResetAt, 5*time.Second)

	count, err := s.redis.Client.Get(s.ctx, "ocr_usage:ana").Int()
	s.Require().NoError(err)
	s.Equal(testLimit, count, "denied calls are not counted")
}

func (s *RedisStoreSuite) TestWindowExpiry() {
	window := 200 * time.Millisecond
	_, err := s.store.Increment(s.ctx, "ocr_usage:short", 1, window)
	s.Require().NoError(err)
	res, err := s.store.Increment(s.ctx, "ocr_usage:short", 1, window)
	s.Require().NoError(err)
	s.False(res.Allowed)

	s.Eventually(func() bool {
		res, err := s.store.Increment(s.ctx, "ocr_usage:short", 1, window)
		return err == nil && res.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisStoreSuite) TestReset() {
	_, err := s.store.Increment(s.ctx, "ocr_usage:reset", 1, testWindow)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "ocr_usage:reset"))

	res, err := s.store.Increment(s.ctx, "ocr_usage:reset", 1, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
