// Package api is the HTTP JSON surface of the service and its pub/sub notifications.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/bandscore/internal/answerkey"
	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/errors"
	"github.com/victornm/bandscore/internal/event"
	"github.com/victornm/bandscore/internal/leaderboard"
	"github.com/victornm/bandscore/internal/practice"
)

type Config struct {
	HTTP         gin.IRouter
	EventBus     *event.Bus
	AnswerKeys   AnswerKeys
	Scores       Scores
	Practice     *practice.Service
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
}

type AnswerKeys interface {
	PutTest(ctx context.Context, req answerkey.PutTestRequest) (*domain.Test, error)
}

type Scores interface {
	ListRecentScores(ctx context.Context, userID string, m domain.Module) ([]domain.ScoreRecord, error)
	DeleteScore(ctx context.Context, userID, scoreID string) error
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	keys   AnswerKeys
	scores Scores
	ps     *practice.Service
	ls     *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		keys:   c.AnswerKeys,
		scores: c.Scores,
		ps:     c.Practice,
		ls:     c.Leaderboard,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.HTTP.Group("/v1")
	v1.PUT("/tests/:test_id", a.PutTest)
	v1.POST("/tests/:test_id/submissions", a.SubmitAnswers)
	v1.GET("/users/:user_id/stats", a.GetStats)
	v1.POST("/users/:user_id/scores", a.RecordScore)
	v1.GET("/users/:user_id/scores/:module", a.ListRecentScores)
	v1.DELETE("/users/:user_id/scores/:score_id", a.DeleteScore)
	v1.GET("/leaderboards/:module", a.GetLeaderboard)

	// Register event handlers
	event.On(c.EventBus, a.PublishSubmissionGraded)
	event.On(c.EventBus, a.PublishLeaderboardUpdated)

	return a
}

func (a *API) PutTest(c *gin.Context) {
	var req PutTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.InvalidArgument("invalid request body: %v", err))
		return
	}

	t, err := a.keys.PutTest(c.Request.Context(), answerkey.PutTestRequest{
		TestID:     c.Param("test_id"),
		Module:     domain.Module(req.Module),
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Questions:  req.Questions,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PutTestResponse{
		TestID:    t.TestID,
		Module:    string(t.Module),
		Questions: len(t.Questions),
	})
}

func (a *API) SubmitAnswers(c *gin.Context) {
	var req SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.InvalidArgument("invalid request body: %v", err))
		return
	}

	resp, err := a.ps.Submit(c.Request.Context(), practice.SubmitRequest{
		TestID:     c.Param("test_id"),
		UserID:     req.UserID,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Accent:     req.Accent,
		Answers:    req.Answers,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newSubmitAnswersResponse(resp))
}

func (a *API) RecordScore(c *gin.Context) {
	var req RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.InvalidArgument("invalid request body: %v", err))
		return
	}

	resp, err := a.ps.RecordScore(c.Request.Context(), practice.RecordScoreRequest{
		UserID:         c.Param("user_id"),
		TestID:         req.TestID,
		Module:         domain.Module(req.Module),
		Band:           band.Score(*req.Band),
		RawScore:       req.RawScore,
		TotalQuestions: req.TotalQuestions,
		Topic:          req.Topic,
		Difficulty:     req.Difficulty,
		Accent:         req.Accent,
		Details:        req.Details,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RecordScoreResponse{
		Score:    newScoreRecord(resp.Record),
		Tier:     string(resp.Tier),
		Feedback: resp.Feedback,
		Streak:   newStreak(resp.Streak),
	})
}

func (a *API) GetStats(c *gin.Context) {
	st, err := a.ps.GetStats(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, st)
}

func (a *API) ListRecentScores(c *gin.Context) {
	m := domain.Module(c.Param("module"))
	if !m.Valid() {
		writeError(c, errors.InvalidArgument("unknown module %q", m))
		return
	}

	recs, err := a.scores.ListRecentScores(c.Request.Context(), c.Param("user_id"), m)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ListScoresResponse{Scores: make([]ScoreRecord, 0, len(recs))}
	for _, r := range recs {
		resp.Scores = append(resp.Scores, newScoreRecord(r))
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) DeleteScore(c *gin.Context) {
	if err := a.scores.DeleteScore(c.Request.Context(), c.Param("user_id"), c.Param("score_id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) GetLeaderboard(c *gin.Context) {
	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		Module: domain.Module(c.Param("module")),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newLeaderboard(*l))
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"route", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
