package domain

import (
	"time"

	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/grading"
)

// Module is a section of the proficiency test.
type Module string

const (
	ModuleListening       Module = "listening"
	ModuleReading         Module = "reading"
	ModuleReadingPractice Module = "reading_practice"
	ModuleReadingFull     Module = "reading_full"
	ModuleWriting         Module = "writing"
	ModuleSpeaking        Module = "speaking"
)

// Modules are the modules summaries are reported for. Practice and full reading
// tests are reported under ModuleReading.
var Modules = []Module{ModuleListening, ModuleReading, ModuleWriting, ModuleSpeaking}

// Group returns the module m is reported under.
func (m Module) Group() Module {
	switch m {
	case ModuleReadingPractice, ModuleReadingFull:
		return ModuleReading
	default:
		return m
	}
}

// Valid reports whether m is a known module.
func (m Module) Valid() bool {
	switch m {
	case ModuleListening, ModuleReading, ModuleReadingPractice, ModuleReadingFull, ModuleWriting, ModuleSpeaking:
		return true
	default:
		return false
	}
}

// Test is an answer key: the questions of one reading or listening test.
type Test struct {
	TestID     string
	Module     Module
	Topic      string
	Difficulty string
	Questions  []grading.Question
	CreateTime time.Time
}

// ScoreRecord is one completed test of a user. Records are append-only.
type ScoreRecord struct {
	ScoreID        string
	UserID         string
	TestID         string
	Module         Module
	Band           band.Score
	RawScore       int
	TotalQuestions int
	Topic          string
	Difficulty     string
	Accent         string
	CreateTime     time.Time

	// Details is the per-question review, as JSON.
	Details []byte
}

// LeaderboardEntry is the best band of a user within a module.
type LeaderboardEntry struct {
	UserID string
	Band   band.Score
}

// Leaderboard is sorted by band in descending order.
type Leaderboard struct {
	Module  Module
	Entries []LeaderboardEntry
}
