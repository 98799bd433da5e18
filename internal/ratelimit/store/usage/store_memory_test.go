package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 5
	testWindow = time.Hour
)

type InMemoryStoreSuite struct {
	suite.Suite
	now   time.Time
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore(WithNow(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestIncrement() {
	s.Run("first call opens a window", func() {
		res, err := s.store.Increment(s.ctx, "k:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit-1, res.Remaining)
		s.Equal(s.now.Add(testWindow), res.ResetAt)
	})

	s.Run("calls up to the limit are allowed", func() {
		for i := 0; i < testLimit; i++ {
			res, err := s.store.Increment(s.ctx, "k:limit", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(res.Allowed)
			s.Equal(testLimit-1-i, res.Remaining)
		}
	})

	s.Run("call over the limit is denied with the window reset", func() {
		for i := 0; i < testLimit; i++ {
			_, err := s.store.Increment(s.ctx, "k:over", testLimit, testWindow)
			s.Require().NoError(err)
		}
		s.now = s.now.Add(10 * time.Minute)
		res, err := s.store.Increment(s.ctx, "k:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining)
		s.Equal(50*60, res.RetryAfter)
	})

	s.Run("window end starts a fresh allowance", func() {
		for i := 0; i < testLimit+1; i++ {
			_, err := s.store.Increment(s.ctx, "k:reset", testLimit, testWindow)
			s.Require().NoError(err)
		}
		s.now = s.now.Add(testWindow)
		res, err := s.store.Increment(s.ctx, "k:reset", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit-1, res.Remaining)
	})

	s.Run("keys are independent", func() {
		for i := 0; i < testLimit; i++ {
			_, _ = s.store.Increment(s.ctx, "k:a", testLimit, testWindow)
		}
		res, err := s.store.Increment(s.ctx, "k:b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *InMemoryStoreSuite) TestResetAndSweep() {
	for i := 0; i < testLimit; i++ {
		_, _ = s.store.Increment(s.ctx, "k:gone", testLimit, testWindow)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "k:gone"))
	res, err := s.store.Increment(s.ctx, "k:gone", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)

	s.now = s.now.Add(2 * testWindow)
	s.Equal(1, s.store.Sweep())
}

func (s *InMemoryStoreSuite) TestConcurrentIncrementsNeverExceedLimit() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.Increment(s.ctx, "k:race", testLimit, testWindow)
			s.NoError(err)
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
