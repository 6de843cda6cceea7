// Package practice grades submissions and keeps the learner's progress up to date.
package practice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/errors"
	"github.com/victornm/bandscore/internal/event"
	"github.com/victornm/bandscore/internal/grading"
	"github.com/victornm/bandscore/internal/progress"
	"github.com/victornm/bandscore/internal/streak"
	"github.com/victornm/bandscore/internal/telemetry"
)

// AnswerKeys provides the answer key of a test.
type AnswerKeys interface {
	GetTest(ctx context.Context, testID string) (*domain.Test, error)
}

// Scores is the score record log.
type Scores interface {
	InsertScore(ctx context.Context, rec *domain.ScoreRecord) error
	ListScores(ctx context.Context, userID string) ([]domain.ScoreRecord, error)
}

// Streaks stores streak states. Advance must be atomic per user.
type Streaks interface {
	Get(ctx context.Context, userID string) (streak.State, error)
	Advance(ctx context.Context, userID string, today streak.Day) (streak.State, error)
}

type Config struct {
	EventBus   *event.Bus
	AnswerKeys AnswerKeys
	Scores     Scores
	Streaks    Streaks

	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	eb      *event.Bus
	keys    AnswerKeys
	scores  Scores
	streaks Streaks
	now     func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:      c.EventBus,
		keys:    c.AnswerKeys,
		scores:  c.Scores,
		streaks: c.Streaks,
		now:     c.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type SubmitRequest struct {
	TestID     string
	UserID     string
	Topic      string
	Difficulty string
	Accent     string
	Answers    grading.Answers
}

type SubmitResponse struct {
	Record   domain.ScoreRecord
	Result   grading.Result
	Tier     band.Tier
	Feedback string
	Streak   streak.State
}

// Review is the per-question outcome kept with a score record.
type Review struct {
	QuestionID string  `json:"question_id"`
	Correct    bool    `json:"correct"`
	Partial    float64 `json:"partial,omitempty"`
	Expected   string  `json:"expected"`
	Submitted  string  `json:"submitted"`
}

// Submit grades the answers of a user for a test, records the score and extends
// the user's streak.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.UserID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}

	t, err := s.keys.GetTest(ctx, req.TestID)
	if err != nil {
		return nil, err
	}

	res := grading.Grade(t.Questions, req.Answers)
	for _, w := range res.Warnings {
		slog.WarnContext(ctx, "practice: malformed question graded as incorrect",
			"test", t.TestID,
			"question", w.QuestionID,
			"reason", w.Reason,
		)
	}

	b := band.FromRawCount(res.Raw(), res.TotalQuestions)

	details, err := json.Marshal(reviewOf(res))
	if err != nil {
		return nil, fmt.Errorf("practice: marshal review: %w", err)
	}

	now := s.now().UTC()
	rec := domain.ScoreRecord{
		UserID:         req.UserID,
		TestID:         t.TestID,
		Module:         t.Module,
		Band:           b,
		RawScore:       res.Raw(),
		TotalQuestions: res.TotalQuestions,
		Topic:          firstNonEmpty(req.Topic, t.Topic),
		Difficulty:     firstNonEmpty(req.Difficulty, t.Difficulty),
		Accent:         req.Accent,
		CreateTime:     now,
		Details:        details,
	}

	st, err := s.record(ctx, &rec, res.Warnings)
	if err != nil {
		return nil, err
	}

	resp := &SubmitResponse{
		Record:   rec,
		Result:   res,
		Tier:     band.TierOf(b),
		Feedback: band.Feedback(b),
		Streak:   st,
	}

	return resp, nil
}

// RecordScoreRequest carries a band graded outside this service, e.g. by an
// examiner for writing or speaking.
type RecordScoreRequest struct {
	UserID         string
	TestID         string
	Module         domain.Module
	Band           band.Score
	RawScore       int
	TotalQuestions int
	Topic          string
	Difficulty     string
	Accent         string

	// Details is an optional per-question review, as JSON.
	Details json.RawMessage
}

type RecordScoreResponse struct {
	Record   domain.ScoreRecord
	Tier     band.Tier
	Feedback string
	Streak   streak.State
}

// RecordScore appends an externally graded band to the user's history and extends
// the user's streak.
func (s *Service) RecordScore(ctx context.Context, req RecordScoreRequest) (*RecordScoreResponse, error) {
	switch {
	case req.UserID == "":
		return nil, errors.InvalidArgument("user id is required")
	case !req.Module.Valid():
		return nil, errors.InvalidArgument("unknown module %q", req.Module)
	case !req.Band.Valid():
		return nil, errors.InvalidArgument("invalid band %v: must be 0 to 9 in steps of 0.5", float64(req.Band))
	case req.RawScore < 0 || req.TotalQuestions < 0 || req.RawScore > req.TotalQuestions:
		return nil, errors.InvalidArgument("invalid raw score %d of %d", req.RawScore, req.TotalQuestions)
	case len(req.Details) > 0 && !json.Valid(req.Details):
		return nil, errors.InvalidArgument("details must be valid JSON")
	}

	rec := domain.ScoreRecord{
		UserID:         req.UserID,
		TestID:         req.TestID,
		Module:         req.Module,
		Band:           req.Band,
		RawScore:       req.RawScore,
		TotalQuestions: req.TotalQuestions,
		Topic:          req.Topic,
		Difficulty:     req.Difficulty,
		Accent:         req.Accent,
		CreateTime:     s.now().UTC(),
		Details:        req.Details,
	}

	st, err := s.record(ctx, &rec, nil)
	if err != nil {
		return nil, err
	}

	return &RecordScoreResponse{
		Record:   rec,
		Tier:     band.TierOf(rec.Band),
		Feedback: band.Feedback(rec.Band),
		Streak:   st,
	}, nil
}

// record saves rec, advances the streak on the record's day and announces the
// new score. ScoreID is filled in on success.
func (s *Service) record(ctx context.Context, rec *domain.ScoreRecord, warnings []grading.Warning) (streak.State, error) {
	if err := s.scores.InsertScore(ctx, rec); err != nil {
		return streak.State{}, fmt.Errorf("practice: insert score: %w", err)
	}

	// The score is already recorded: a streak failure must not fail the request.
	st, err := s.streaks.Advance(ctx, rec.UserID, streak.DayOf(rec.CreateTime))
	if err != nil {
		slog.ErrorContext(ctx, "practice: advance streak failed", "user", rec.UserID, "error", err)
	}

	feedback := band.Feedback(rec.Band)
	telemetry.ObserveSubmission(string(rec.Module.Group()), string(band.TierOf(rec.Band)), float64(rec.Band), warningReasons(warnings))

	s.eb.Publish(ctx, domain.EventSubmissionGraded{
		Record:   *rec,
		Streak:   st,
		Feedback: feedback,
		Warnings: warnings,
	})

	return st, nil
}

type Stats struct {
	progress.Summary
	Streak int `json:"streak"`
}

// GetStats summarizes every record of a user together with the current streak.
func (s *Service) GetStats(ctx context.Context, userID string) (*Stats, error) {
	if userID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}

	var (
		records []domain.ScoreRecord
		st      streak.State
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		records, err = s.scores.ListScores(ctx, userID)
		return err
	})
	eg.Go(func() (err error) {
		st, err = s.streaks.Get(ctx, userID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("practice: get stats user=%s: %w", userID, err)
	}

	return &Stats{
		Summary: progress.Summarize(records),
		Streak:  streak.Current(streak.DayOf(s.now()), st),
	}, nil
}

func reviewOf(res grading.Result) []Review {
	out := make([]Review, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		out = append(out, Review{
			QuestionID: o.QuestionID,
			Correct:    o.Correct,
			Partial:    o.Partial,
			Expected:   o.Expected,
			Submitted:  o.Submitted,
		})
	}
	return out
}

func warningReasons(ws []grading.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Reason)
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
