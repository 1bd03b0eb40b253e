//go:build integration

package lockout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"volunteerhub/internal/ratelimit/models"
	"volunteerhub/internal/ratelimit/store/lockout"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/testutil/containers"
)

type PostgresLockoutStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *lockout.PostgresStore
	now      time.Time
}

func TestPostgresLockoutStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLockoutStoreSuite))
}

func (s *PostgresLockoutStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = lockout.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresLockoutStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "check_in_lockouts"))
}

func (s *PostgresLockoutStoreSuite) key() string {
	return models.LockoutKey(id.NewEventID(), id.NewUserID())
}

func (s *PostgresLockoutStoreSuite) TestGetMissing() {
	record, err := s.store.Get(context.Background(), s.key())
	s.Require().NoError(err)
	s.Nil(record)
}

func (s *PostgresLockoutStoreSuite) TestRecordFailureCountsWithinWindow() {
	ctx := context.Background()
	key := s.key()
	cutoff := s.now.Add(-15 * time.Minute)

	for i := range 3 {
		record, err := s.store.RecordFailure(ctx, key, s.now.Add(time.Duration(i)*time.Minute), cutoff)
		s.Require().NoError(err)
		s.Equal(i+1, record.FailureCount)
		s.True(record.WindowStart.Equal(s.now))
	}

	later := s.now.Add(20 * time.Minute)
	record, err := s.store.RecordFailure(ctx, key, later, later.Add(-15*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, record.FailureCount, "window restarted")
	s.True(record.WindowStart.Equal(later))
}

// TestConcurrentFailuresAreAllCounted checks the upsert never loses an increment.
func (s *PostgresLockoutStoreSuite) TestConcurrentFailuresAreAllCounted() {
	ctx := context.Background()
	key := s.key()
	cutoff := s.now.Add(-15 * time.Minute)

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.RecordFailure(ctx, key, s.now, cutoff)
			s.NoError(err)
		}()
	}
	wg.Wait()

	record, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Equal(workers, record.FailureCount)
}

func (s *PostgresLockoutStoreSuite) TestUpdateAndClear() {
	ctx := context.Background()
	key := s.key()
	record, err := s.store.RecordFailure(ctx, key, s.now, s.now.Add(-time.Hour))
	s.Require().NoError(err)

	record.ApplyLock(15*time.Minute, s.now)
	s.Require().NoError(s.store.Update(ctx, record))

	stored, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.True(stored.IsLockedAt(s.now.Add(time.Minute)))
	s.False(stored.IsLockedAt(s.now.Add(15 * time.Minute)))

	s.Require().NoError(s.store.Clear(ctx, key))
	stored, err = s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Nil(stored)
}

func (s *PostgresLockoutStoreSuite) TestDeleteExpiredKeepsActiveLocks() {
	ctx := context.Background()
	stale, locked := s.key(), s.key()

	_, err := s.store.RecordFailure(ctx, stale, s.now, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	record, err := s.store.RecordFailure(ctx, locked, s.now, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	record.ApplyLock(time.Hour, s.now)
	s.Require().NoError(s.store.Update(ctx, record))

	n, err := s.store.DeleteExpired(ctx, s.now.Add(30*time.Minute))
	s.Require().NoError(err)
	s.EqualValues(1, n)

	kept, err := s.store.Get(ctx, locked)
	s.Require().NoError(err)
	s.NotNil(kept)
}
