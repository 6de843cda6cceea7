package domain

import (
	"github.com/victornm/bandscore/internal/grading"
	"github.com/victornm/bandscore/internal/streak"
)

const (
	EventNameSubmissionGraded   = "submission.graded"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

// EventSubmissionGraded is published once a submission is graded and recorded.
type EventSubmissionGraded struct {
	Record   ScoreRecord
	Streak   streak.State
	Feedback string
	Warnings []grading.Warning
}

func (EventSubmissionGraded) Name() string { return EventNameSubmissionGraded }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
