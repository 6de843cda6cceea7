package api

import (
	"encoding/json"
	"time"

	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/grading"
	"github.com/victornm/bandscore/internal/practice"
	"github.com/victornm/bandscore/internal/streak"
)

type (
	PutTestRequest struct {
		Module     string             `json:"module" binding:"required"`
		Topic      string             `json:"topic"`
		Difficulty string             `json:"difficulty"`
		Questions  []grading.Question `json:"questions" binding:"required"`
	}

	PutTestResponse struct {
		TestID    string `json:"test_id"`
		Module    string `json:"module"`
		Questions int    `json:"questions"`
	}

	SubmitAnswersRequest struct {
		UserID     string          `json:"user_id" binding:"required"`
		Topic      string          `json:"topic"`
		Difficulty string          `json:"difficulty"`
		Accent     string          `json:"accent"`
		Answers    grading.Answers `json:"answers"`
	}

	SubmitAnswersResponse struct {
		ScoreID        string    `json:"score_id"`
		Module         string    `json:"module"`
		Band           string    `json:"band"`
		Tier           string    `json:"tier"`
		Feedback       string    `json:"feedback"`
		TotalCorrect   int       `json:"total_correct"`
		TotalPartial   float64   `json:"total_partial"`
		TotalQuestions int       `json:"total_questions"`
		Outcomes       []Outcome `json:"outcomes"`
		Warnings       []Warning `json:"warnings,omitempty"`
		Streak         Streak    `json:"streak"`
	}

	RecordScoreRequest struct {
		Module         string          `json:"module" binding:"required"`
		Band           *float64        `json:"band" binding:"required"`
		TestID         string          `json:"test_id"`
		RawScore       int             `json:"raw_score"`
		TotalQuestions int             `json:"total_questions"`
		Topic          string          `json:"topic"`
		Difficulty     string          `json:"difficulty"`
		Accent         string          `json:"accent"`
		Details        json.RawMessage `json:"detailed_results"`
	}

	RecordScoreResponse struct {
		Score    ScoreRecord `json:"score"`
		Tier     string      `json:"tier"`
		Feedback string      `json:"feedback"`
		Streak   Streak      `json:"streak"`
	}

	Outcome struct {
		QuestionID string  `json:"question_id"`
		Type       string  `json:"type"`
		Correct    bool    `json:"correct"`
		Answered   bool    `json:"answered"`
		Partial    float64 `json:"partial"`
		Similarity float64 `json:"similarity,omitempty"`
		Expected   string  `json:"expected"`
		Submitted  string  `json:"submitted"`
	}

	Warning struct {
		QuestionID string `json:"question_id"`
		Reason     string `json:"reason"`
	}

	Streak struct {
		Count      int    `json:"count"`
		LastActive string `json:"last_active"`
	}

	ScoreRecord struct {
		ScoreID        string          `json:"score_id"`
		TestID         string          `json:"test_id"`
		Module         string          `json:"module"`
		Band           string          `json:"band"`
		RawScore       int             `json:"raw_score"`
		TotalQuestions int             `json:"total_questions"`
		Topic          string          `json:"topic,omitempty"`
		Difficulty     string          `json:"difficulty,omitempty"`
		Accent         string          `json:"accent,omitempty"`
		CreateTime     time.Time       `json:"create_time"`
		Details        json.RawMessage `json:"details,omitempty"`
	}

	ListScoresResponse struct {
		Scores []ScoreRecord `json:"scores"`
	}

	Leaderboard struct {
		Module  string             `json:"module"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		UserID string `json:"user_id"`
		Band   string `json:"band"`
	}
)

func newSubmitAnswersResponse(r *practice.SubmitResponse) SubmitAnswersResponse {
	resp := SubmitAnswersResponse{
		ScoreID:        r.Record.ScoreID,
		Module:         string(r.Record.Module),
		Band:           r.Record.Band.String(),
		Tier:           string(r.Tier),
		Feedback:       r.Feedback,
		TotalCorrect:   r.Result.TotalCorrect,
		TotalPartial:   r.Result.TotalPartial,
		TotalQuestions: r.Result.TotalQuestions,
		Outcomes:       make([]Outcome, 0, len(r.Result.Outcomes)),
		Warnings:       newWarnings(r.Result.Warnings),
		Streak:         newStreak(r.Streak),
	}

	for _, o := range r.Result.Outcomes {
		resp.Outcomes = append(resp.Outcomes, Outcome{
			QuestionID: o.QuestionID,
			Type:       string(o.Type),
			Correct:    o.Correct,
			Answered:   o.Answered,
			Partial:    o.Partial,
			Similarity: o.Similarity,
			Expected:   o.Expected,
			Submitted:  o.Submitted,
		})
	}

	return resp
}

func newWarnings(ws []grading.Warning) []Warning {
	if len(ws) == 0 {
		return nil
	}

	out := make([]Warning, 0, len(ws))
	for _, w := range ws {
		out = append(out, Warning{QuestionID: w.QuestionID, Reason: w.Reason})
	}
	return out
}

func newStreak(st streak.State) Streak {
	return Streak{Count: st.Count, LastActive: string(st.LastActive)}
}

func newScoreRecord(r domain.ScoreRecord) ScoreRecord {
	return ScoreRecord{
		ScoreID:        r.ScoreID,
		TestID:         r.TestID,
		Module:         string(r.Module),
		Band:           r.Band.String(),
		RawScore:       r.RawScore,
		TotalQuestions: r.TotalQuestions,
		Topic:          r.Topic,
		Difficulty:     r.Difficulty,
		Accent:         r.Accent,
		CreateTime:     r.CreateTime,
		Details:        r.Details,
	}
}

func newLeaderboard(l domain.Leaderboard) Leaderboard {
	data := Leaderboard{
		Module:  string(l.Module),
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for _, entry := range l.Entries {
		data.Entries = append(data.Entries, LeaderboardEntry{
			UserID: entry.UserID,
			Band:   entry.Band.String(),
		})
	}

	return data
}
