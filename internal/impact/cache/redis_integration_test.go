//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"volunteerhub/internal/impact/cache"
	"volunteerhub/internal/impact/models"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = cache.NewRedis(s.redis.Client.Client, cache.WithTTL(time.Second))
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	want := models.VolunteerImpact{
		VolunteerID:     id.NewUserID(),
		TotalHours:      7.5,
		EventsCompleted: 3,
		EventsMissed:    1,
		AttendanceRate:  75,
		ImpactScore:     225,
		ComputedAt:      time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	key := "volunteer:" + want.VolunteerID.String()

	var miss models.VolunteerImpact
	found, err := s.cache.Get(ctx, key, &miss)
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(s.cache.Set(ctx, key, want))

	var got models.VolunteerImpact
	found, err = s.cache.Get(ctx, key, &got)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(want.VolunteerID, got.VolunteerID)
	s.InDelta(want.TotalHours, got.TotalHours, 1e-9)
	s.Equal(want.ImpactScore, got.ImpactScore)
	s.True(want.ComputedAt.Equal(got.ComputedAt))
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "org:expiring", models.OrgAnalytics{TotalEvents: 2}))

	ttl, err := s.redis.Client.TTL(ctx, "impact:org:expiring").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
	s.LessOrEqual(ttl, time.Second)

	s.Eventually(func() bool {
		var got models.OrgAnalytics
		found, err := s.cache.Get(ctx, "org:expiring", &got)
		return err == nil && !found
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RedisCacheSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "org:gone", models.OrgAnalytics{TotalEvents: 1}))
	s.Require().NoError(s.cache.Delete(ctx, "org:gone"))

	var got models.OrgAnalytics
	found, err := s.cache.Get(ctx, "org:gone", &got)
	s.Require().NoError(err)
	s.False(found)
}
