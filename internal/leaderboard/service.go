// Package leaderboard ranks users by their best band in each module.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/errors"
	"github.com/victornm/bandscore/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
	defaultLimit    = 100
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string

	// Limit is the number of entries GetLeaderboard returns. Defaults to 100.
	Limit int
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
	limit  int
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
		limit:  c.Limit,
	}
	if s.limit <= 0 {
		s.limit = defaultLimit
	}

	event.On(s.eb, s.UpdateLeaderboard)

	return s
}

type GetLeaderboardRequest struct {
	Module domain.Module
}

// GetLeaderboard returns the best users of a module, highest band first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	if !req.Module.Valid() {
		return nil, errors.InvalidArgument("unknown module %q", req.Module)
	}
	m := req.Module.Group()

	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(m), 0, int64(s.limit-1)).Result()
	if err != nil {
		return nil, errors.Unavailable(err, "get leaderboard: module=%s", m)
	}

	if len(res) == 0 {
		return nil, errors.NotFound("leaderboard not found: module=%s", m)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			UserID: z.Member.(string),
			Band:   band.Score(z.Score),
		})
	}

	return &domain.Leaderboard{
		Module:  m,
		Entries: entries,
	}, nil
}

// UpdateLeaderboard records the band of a graded submission. A user's entry only
// ever moves up.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventSubmissionGraded) error {
	rec := e.Record
	m := rec.Module.Group()

	if err := s.redis.ZAddGT(ctx, s.getLeaderboardKey(m), redis.Z{
		Score:  float64(rec.Band),
		Member: rec.UserID,
	}).Err(); err != nil {
		return errors.Unavailable(err, "update leaderboard: module=%s", m)
	}

	return s.schedulePublishLeaderboard(ctx, m, rec.CreateTime)
}

// schedulePublishLeaderboard publishes at most one leaderboard.updated per module
// and publish interval, across every instance sharing the redis.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, m domain.Module, at time.Time) error {
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(m), at.UnixMilli(), publishInterval).Result()
	if err != nil {
		return errors.Unavailable(err, "schedule leaderboard publish: module=%s", m)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, m)
}

func (s *Service) publishLeaderboard(ctx context.Context, m domain.Module) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{Module: m})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: module=%s: %w", m, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey(m domain.Module) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, m)
}

func (s *Service) getLeaderboardTimeKey(m domain.Module) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, m)
}
