package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now time.Time
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *BreakerSuite) breaker(opts ...Option) *Breaker {
	opts = append([]Option{WithClock(func() time.Time { return s.now })}, opts...)
	return New("ledger", opts...)
}

func (s *BreakerSuite) fail(b *Breaker, n int) {
	for range n {
		b.RecordFailure()
	}
}

func (s *BreakerSuite) succeed(b *Breaker, n int) {
	for range n {
		b.RecordSuccess()
	}
}

func (s *BreakerSuite) TestNewBreakerIsClosed() {
	b := s.breaker()
	s.Equal("ledger", b.Name())
	s.Equal(StateClosed, b.State())
	s.True(b.Allow())
}

func (s *BreakerSuite) TestFailureThreshold() {
	b := s.breaker(WithFailureThreshold(3))

	s.Run("below threshold stays closed", func() {
		s.fail(b, 2)
		s.False(b.IsOpen())
	})

	s.Run("threshold failure opens once", func() {
		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.True(change.Opened)

		useFallback, change = b.RecordFailure()
		s.True(useFallback)
		s.False(change.Opened, "already open")
	})
}

func (s *BreakerSuite) TestCountersReset() {
	s.Run("success clears failures while closed", func() {
		b := s.breaker(WithFailureThreshold(3))
		s.fail(b, 2)
		b.RecordSuccess()
		s.fail(b, 2)
		s.False(b.IsOpen())
		s.fail(b, 1)
		s.True(b.IsOpen())
	})

	s.Run("failure clears successes while open", func() {
		b := s.breaker(WithFailureThreshold(1), WithSuccessThreshold(3))
		s.fail(b, 1)
		s.succeed(b, 2)
		b.RecordFailure()
		s.succeed(b, 2)
		s.True(b.IsOpen())

		usePrimary, change := b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.Equal(StateClosed, b.State())
	})
}

func (s *BreakerSuite) TestCooldownGatesProbes() {
	b := s.breaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()
	s.False(b.Allow())

	s.now = s.now.Add(59 * time.Second)
	s.False(b.Allow())

	s.now = s.now.Add(time.Second)
	s.True(b.Allow(), "probe allowed once cooldown elapsed")

	b.RecordFailure()
	s.False(b.Allow(), "failed probe restarts the cooldown")
}

func (s *BreakerSuite) TestReset() {
	b := s.breaker(WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	s.Equal(StateClosed, b.State())
	s.True(b.Allow())
}
