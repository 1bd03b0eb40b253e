package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type InMemoryLockoutStoreSuite struct {
	suite.Suite
	store *InMemoryLockoutStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryLockoutStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLockoutStoreSuite))
}

func (s *InMemoryLockoutStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryLockoutStoreSuite) TestGetMissing() {
	record, err := s.store.Get(s.ctx, "unknown")
	s.NoError(err)
	s.Nil(record)
}

func (s *InMemoryLockoutStoreSuite) TestRecordFailure() {
	cutoff := s.now.Add(-time.Hour)

	s.Run("first failure starts a window", func() {
		record, err := s.store.RecordFailure(s.ctx, "k", s.now, cutoff)
		s.Require().NoError(err)
		s.Equal(1, record.FailureCount)
		s.Equal(s.now, record.WindowStart)
	})

	s.Run("failures inside the window accumulate", func() {
		later := s.now.Add(time.Minute)
		record, err := s.store.RecordFailure(s.ctx, "k", later, cutoff)
		s.Require().NoError(err)
		s.Equal(2, record.FailureCount)
		s.Equal(s.now, record.WindowStart)
		s.Equal(later, record.LastFailureAt)
	})

	s.Run("window at or before cutoff restarts", func() {
		later := s.now.Add(2 * time.Hour)
		record, err := s.store.RecordFailure(s.ctx, "k", later, s.now)
		s.Require().NoError(err)
		s.Equal(1, record.FailureCount)
		s.Equal(later, record.WindowStart)
	})
}

func (s *InMemoryLockoutStoreSuite) TestReturnedRecordsAreCopies() {
	record, err := s.store.RecordFailure(s.ctx, "k", s.now, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	record.ApplyLock(time.Hour, s.now)

	stored, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Nil(stored.LockedUntil)

	s.Require().NoError(s.store.Update(s.ctx, record))
	stored, err = s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.NotNil(stored.LockedUntil)
}

func (s *InMemoryLockoutStoreSuite) TestDeleteExpired() {
	_, err := s.store.RecordFailure(s.ctx, "old", s.now, s.now)
	s.Require().NoError(err)
	_, err = s.store.RecordFailure(s.ctx, "fresh", s.now.Add(time.Hour), s.now)
	s.Require().NoError(err)

	n, err := s.store.DeleteExpired(s.ctx, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	record, err := s.store.Get(s.ctx, "fresh")
	s.Require().NoError(err)
	s.NotNil(record)
}
