package practice_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/errors"
	"github.com/victornm/bandscore/internal/event"
	"github.com/victornm/bandscore/internal/grading"
	"github.com/victornm/bandscore/internal/practice"
	"github.com/victornm/bandscore/internal/streak"
)

func TestService_Submit(t *testing.T) {
	type testCase struct {
		arrange func(t *testing.T) (*practice.Service, *fakeScores, practice.SubmitRequest)
		assert  func(t *testing.T, resp *practice.SubmitResponse, scores *fakeScores, err error)
	}

	tests := map[string]testCase{
		"13 of 16 correct": {
			arrange: func(t *testing.T) (*practice.Service, *fakeScores, practice.SubmitRequest) {
				s, scores := makeService(t, day(2024, 1, 10))
				return s, scores, practice.SubmitRequest{
					TestID:  "t1",
					UserID:  "u1",
					Answers: answers(16, 13),
				}
			},
			assert: func(t *testing.T, resp *practice.SubmitResponse, scores *fakeScores, err error) {
				require.NoError(t, err)
				assert.Equal(t, 13, resp.Result.Raw())
				assert.Equal(t, band.Score(7.5), resp.Record.Band)
				assert.Equal(t, band.TierGood, resp.Tier)
				assert.Equal(t, band.Feedback(7.5), resp.Feedback)
				assert.Equal(t, streak.State{Count: 1, LastActive: "2024-01-10"}, resp.Streak)

				recs := scores.all()
				require.Len(t, recs, 1)
				assert.Equal(t, "u1", recs[0].UserID)
				assert.Equal(t, domain.ModuleListening, recs[0].Module)
				assert.Equal(t, 16, recs[0].TotalQuestions)
				assert.Equal(t, "campus", recs[0].Topic)

				var review []practice.Review
				require.NoError(t, json.Unmarshal(recs[0].Details, &review))
				assert.Len(t, review, 16)
			},
		},
		"missing user": {
			arrange: func(t *testing.T) (*practice.Service, *fakeScores, practice.SubmitRequest) {
				s, scores := makeService(t, day(2024, 1, 10))
				return s, scores, practice.SubmitRequest{TestID: "t1"}
			},
			assert: func(t *testing.T, resp *practice.SubmitResponse, scores *fakeScores, err error) {
				require.True(t, errors.HasCode(err, errors.CodeInvalidArgument))
				assert.Empty(t, scores.all())
			},
		},
		"unknown test": {
			arrange: func(t *testing.T) (*practice.Service, *fakeScores, practice.SubmitRequest) {
				s, scores := makeService(t, day(2024, 1, 10))
				return s, scores, practice.SubmitRequest{TestID: "nope", UserID: "u1"}
			},
			assert: func(t *testing.T, resp *practice.SubmitResponse, scores *fakeScores, err error) {
				require.True(t, errors.HasCode(err, errors.CodeNotFound))
				assert.Empty(t, scores.all())
			},
		},
		"request topic overrides test topic": {
			arrange: func(t *testing.T) (*practice.Service, *fakeScores, practice.SubmitRequest) {
				s, scores := makeService(t, day(2024, 1, 10))
				return s, scores, practice.SubmitRequest{
					TestID:  "t1",
					UserID:  "u1",
					Topic:   "travel",
					Accent:  "british",
					Answers: answers(16, 0),
				}
			},
			assert: func(t *testing.T, resp *practice.SubmitResponse, scores *fakeScores, err error) {
				require.NoError(t, err)
				assert.Equal(t, "travel", resp.Record.Topic)
				assert.Equal(t, "british", resp.Record.Accent)
				assert.Equal(t, band.Score(0), resp.Record.Band)
				assert.Equal(t, band.TierLimited, resp.Tier)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, scores, req := tc.arrange(t)
			resp, err := s.Submit(context.Background(), req)
			tc.assert(t, resp, scores, err)
		})
	}
}

func TestService_Submit_PublishesEvent(t *testing.T) {
	eb := event.NewBus()
	got := make(chan domain.EventSubmissionGraded, 1)
	event.On(eb, func(ctx context.Context, e domain.EventSubmissionGraded) error {
		got <- e
		return nil
	})

	s := practice.NewService(practice.Config{
		EventBus:   eb,
		AnswerKeys: fakeKeys{"t1": listeningTest(16)},
		Scores:     &fakeScores{},
		Streaks:    makeStreaks(t),
		Now:        func() time.Time { return day(2024, 1, 10) },
	})

	resp, err := s.Submit(context.Background(), practice.SubmitRequest{TestID: "t1", UserID: "u1", Answers: answers(16, 16)})
	require.NoError(t, err)
	eb.Stop()

	select {
	case e := <-got:
		assert.Equal(t, resp.Record.ScoreID, e.Record.ScoreID)
		assert.Equal(t, band.Score(9), e.Record.Band)
		assert.Equal(t, 1, e.Streak.Count)
	default:
		t.Fatal("submission.graded not published")
	}
}

func TestService_RecordScore(t *testing.T) {
	valid := func() practice.RecordScoreRequest {
		return practice.RecordScoreRequest{
			UserID:         "u1",
			Module:         domain.ModuleWriting,
			Band:           6.5,
			TotalQuestions: 2,
			RawScore:       2,
			Topic:          "environment",
			Details:        json.RawMessage(`{"task_1":6.0,"task_2":7.0}`),
		}
	}

	tests := map[string]struct {
		arrange func() practice.RecordScoreRequest
		code    errors.Code
	}{
		"writing band": {
			arrange: valid,
		},
		"speaking band without details": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.Module, req.Band, req.Details = domain.ModuleSpeaking, 0, nil
				req.RawScore, req.TotalQuestions = 0, 0
				return req
			},
		},
		"missing user": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.UserID = ""
				return req
			},
			code: errors.CodeInvalidArgument,
		},
		"unknown module": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.Module = "grammar"
				return req
			},
			code: errors.CodeInvalidArgument,
		},
		"band off the half steps": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.Band = 6.3
				return req
			},
			code: errors.CodeInvalidArgument,
		},
		"band above nine": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.Band = 9.5
				return req
			},
			code: errors.CodeInvalidArgument,
		},
		"raw score above total": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.RawScore = 3
				return req
			},
			code: errors.CodeInvalidArgument,
		},
		"details not json": {
			arrange: func() practice.RecordScoreRequest {
				req := valid()
				req.Details = json.RawMessage(`{task_1`)
				return req
			},
			code: errors.CodeInvalidArgument,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, scores := makeService(t, day(2024, 1, 10))
			req := tt.arrange()

			resp, err := s.RecordScore(context.Background(), req)
			if tt.code != 0 {
				require.True(t, errors.HasCode(err, tt.code), "got %v", err)
				assert.Empty(t, scores.all())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, req.Band, resp.Record.Band)
			assert.Equal(t, band.TierOf(req.Band), resp.Tier)
			assert.Equal(t, streak.State{Count: 1, LastActive: "2024-01-10"}, resp.Streak)

			recs := scores.all()
			require.Len(t, recs, 1)
			assert.Equal(t, req.Module, recs[0].Module)
			assert.Equal(t, []byte(req.Details), recs[0].Details)
		})
	}
}

func TestService_RecordScore_CountsTowardsStats(t *testing.T) {
	ctx := context.Background()
	eb := event.NewBus()
	got := make(chan domain.EventSubmissionGraded, 2)
	event.On(eb, func(ctx context.Context, e domain.EventSubmissionGraded) error {
		got <- e
		return nil
	})

	s := practice.NewService(practice.Config{
		EventBus:   eb,
		AnswerKeys: fakeKeys{},
		Scores:     &fakeScores{},
		Streaks:    makeStreaks(t),
		Now:        func() time.Time { return day(2024, 1, 10) },
	})

	_, err := s.RecordScore(ctx, practice.RecordScoreRequest{UserID: "u1", Module: domain.ModuleWriting, Band: 6.5})
	require.NoError(t, err)
	_, err = s.RecordScore(ctx, practice.RecordScoreRequest{UserID: "u1", Module: domain.ModuleSpeaking, Band: 7.0})
	require.NoError(t, err)
	eb.Stop()
	require.Len(t, got, 2)

	st, err := s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Modules[domain.ModuleWriting].Count)
	assert.Equal(t, 6.5, st.Modules[domain.ModuleWriting].Latest)
	assert.Equal(t, 1, st.Modules[domain.ModuleSpeaking].Count)
	assert.Equal(t, 7.0, st.Modules[domain.ModuleSpeaking].Best)
	assert.Equal(t, 2, st.Overall.TotalTests)
	assert.Equal(t, 1, st.Streak)
}

func TestService_GetStats(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 1, 10)
	s, scores := makeService(t, now)

	st, err := s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Streak)
	assert.Equal(t, 0, st.Overall.TotalTests)
	assert.Len(t, st.Modules, len(domain.Modules))

	_, err = s.Submit(ctx, practice.SubmitRequest{TestID: "t1", UserID: "u1", Answers: answers(16, 13)})
	require.NoError(t, err)
	_, err = s.Submit(ctx, practice.SubmitRequest{TestID: "t2", UserID: "u1", Answers: answers(16, 16)})
	require.NoError(t, err)
	require.Len(t, scores.all(), 2)

	st, err = s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 2, st.Overall.TotalTests)
	assert.Equal(t, 9.0, st.Overall.BestBand)
	assert.Equal(t, 1, st.Modules[domain.ModuleListening].Count)
	assert.Equal(t, 1, st.Modules[domain.ModuleReading].Count)
	assert.Equal(t, 9.0, st.Modules[domain.ModuleReading].Latest)
}

func TestService_GetStats_StreakBroken(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 1, 10)
	clock := &now

	streaks := makeStreaks(t)
	s := practice.NewService(practice.Config{
		EventBus:   event.NewBus(),
		AnswerKeys: fakeKeys{"t1": listeningTest(16)},
		Scores:     &fakeScores{},
		Streaks:    streaks,
		Now:        func() time.Time { return *clock },
	})

	_, err := s.Submit(ctx, practice.SubmitRequest{TestID: "t1", UserID: "u1", Answers: answers(16, 1)})
	require.NoError(t, err)

	*clock = day(2024, 1, 11)
	st, err := s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)

	*clock = day(2024, 1, 12)
	st, err = s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Streak)
}

func makeService(t *testing.T, now time.Time) (*practice.Service, *fakeScores) {
	t.Helper()

	scores := &fakeScores{}
	reading := listeningTest(16)
	reading.TestID = "t2"
	reading.Module = domain.ModuleReadingPractice

	s := practice.NewService(practice.Config{
		EventBus:   event.NewBus(),
		AnswerKeys: fakeKeys{"t1": listeningTest(16), "t2": reading},
		Scores:     scores,
		Streaks:    makeStreaks(t),
		Now:        func() time.Time { return now },
	})
	return s, scores
}

func makeStreaks(t *testing.T) *streak.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	return streak.NewRedisStore(streak.Config{
		Redis:  redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Prefix: "test",
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

// listeningTest has n multiple choice questions whose correct option is 0.
func listeningTest(n int) domain.Test {
	qs := make([]grading.Question, n)
	for i := range qs {
		qs[i] = grading.Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Type:    grading.TypeMultipleChoice,
			Options: []string{"A", "B", "C"},
			Answer:  grading.ChoiceKey(0),
		}
	}
	return domain.Test{TestID: "t1", Module: domain.ModuleListening, Topic: "campus", Questions: qs}
}

// answers answers n questions, the first correct of them right.
func answers(n, correct int) grading.Answers {
	a := make(grading.Answers, n)
	for i := 0; i < n; i++ {
		if i < correct {
			a[fmt.Sprintf("q%d", i+1)] = 0
		} else {
			a[fmt.Sprintf("q%d", i+1)] = 1
		}
	}
	return a
}

type fakeKeys map[string]domain.Test

func (f fakeKeys) GetTest(_ context.Context, testID string) (*domain.Test, error) {
	t, ok := f[testID]
	if !ok {
		return nil, errors.NotFound("test not found: test=%s", testID)
	}
	return &t, nil
}

type fakeScores struct {
	mu      sync.Mutex
	records []domain.ScoreRecord
}

func (f *fakeScores) InsertScore(_ context.Context, rec *domain.ScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec.ScoreID = fmt.Sprintf("s%d", len(f.records)+1)
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeScores) ListScores(_ context.Context, userID string) ([]domain.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.ScoreRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScores) all() []domain.ScoreRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ScoreRecord(nil), f.records...)
}
