package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/bandscore/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	SubmissionGraded struct {
		Score    ScoreRecord `json:"score"`
		Feedback string      `json:"feedback"`
		Streak   Streak      `json:"streak"`
	}
)

// PublishSubmissionGraded notifies the user who made the submission.
func (a *API) PublishSubmissionGraded(ctx context.Context, e domain.EventSubmissionGraded) error {
	rec := newScoreRecord(e.Record)
	rec.Details = nil

	return a.publishNotification(ctx, e.Record.UserID, e.Name(), SubmissionGraded{
		Score:    rec,
		Feedback: e.Feedback,
		Streak:   newStreak(e.Streak),
	})
}

// PublishLeaderboardUpdated notifies every user on the leaderboard.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := newLeaderboard(e.Leaderboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.UserID, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
