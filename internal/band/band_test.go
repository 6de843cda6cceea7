package band_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victornm/bandscore/internal/band"
)

func TestFromRawCount(t *testing.T) {
	tests := map[string]struct {
		correct, total int
		want           band.Score
	}{
		"35 of 40":                {correct: 35, total: 40, want: 8.0},
		"39 of 40":                {correct: 39, total: 40, want: 9.0},
		"40 of 40":                {correct: 40, total: 40, want: 9.0},
		"38 of 40":                {correct: 38, total: 40, want: 8.5},
		"30 of 40":                {correct: 30, total: 40, want: 7.0},
		"23 of 40":                {correct: 23, total: 40, want: 6.0},
		"none right":              {correct: 0, total: 40, want: 0},
		"one right":               {correct: 1, total: 40, want: 1.0},
		"practice set 7 of 8":     {correct: 7, total: 8, want: 8.0},
		"half point rounds up":    {correct: 13, total: 16, want: 7.5},
		"more correct than asked": {correct: 45, total: 40, want: 9.0},
		"negative count":          {correct: -3, total: 40, want: 0},
		"zero questions":          {correct: 5, total: 0, want: 0},
		"negative total":          {correct: 5, total: -10, want: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, band.FromRawCount(tt.correct, tt.total))
		})
	}
}

func TestRescale_RoundHalfUp(t *testing.T) {
	tests := map[string]struct {
		correct, total int
		want           int
	}{
		"exact":                 {correct: 5, total: 10, want: 20},
		"7 of 8 is 35":          {correct: 7, total: 8, want: 35},
		"32.5 rounds to 33":     {correct: 13, total: 16, want: 33},
		"2.5 rounds to 3":       {correct: 1, total: 16, want: 3},
		"13.33 rounds down":     {correct: 1, total: 3, want: 13},
		"26.67 rounds up":       {correct: 2, total: 3, want: 27},
		"clamped to total":      {correct: 9, total: 8, want: 40},
		"large half rounds up":  {correct: 33_000_000_000, total: 80_000_000_000, want: 17},
		"large just below half": {correct: 32_999_999_999, total: 80_000_000_000, want: 16},
		"large odd total":       {correct: 625_000_000, total: 2_000_000_001, want: 12},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, band.Rescale(tt.correct, tt.total))
		})
	}
}

func TestFromRawCount_Monotonic(t *testing.T) {
	for _, total := range []int{1, 3, 8, 13, 16, 20, 40, 60} {
		prev := band.Score(-1)
		for correct := -2; correct <= total+2; correct++ {
			got := band.FromRawCount(correct, total)
			assert.GreaterOrEqual(t, got, prev, "band decreased at %d/%d", correct, total)
			assert.Contains(t, band.Bands(), got)
			prev = got
		}
	}
}

func TestTierOf(t *testing.T) {
	tests := map[string]struct {
		in   band.Score
		want band.Tier
	}{
		"top":                {in: 9.0, want: band.TierExcellent},
		"excellent boundary": {in: 8.0, want: band.TierExcellent},
		"just below":         {in: 7.5, want: band.TierGood},
		"good boundary":      {in: 7.0, want: band.TierGood},
		"competent boundary": {in: 6.0, want: band.TierCompetent},
		"modest boundary":    {in: 5.0, want: band.TierModest},
		"limited":            {in: 4.5, want: band.TierLimited},
		"zero":               {in: 0, want: band.TierLimited},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, band.TierOf(tt.in))
			assert.NotEmpty(t, band.Feedback(tt.in))
		})
	}

	assert.NotEqual(t, band.Feedback(8.0), band.Feedback(7.5))
}

func TestScore_String(t *testing.T) {
	assert.Equal(t, "6.5", band.Score(6.5).String())
	assert.Equal(t, "9.0", band.Score(9).String())
}

func TestScore_Valid(t *testing.T) {
	tests := map[string]struct {
		in   band.Score
		want bool
	}{
		"zero":          {in: 0, want: true},
		"half step":     {in: 6.5, want: true},
		"whole":         {in: 7, want: true},
		"top":           {in: 9, want: true},
		"quarter":       {in: 6.25, want: false},
		"off the steps": {in: 6.3, want: false},
		"above nine":    {in: 9.5, want: false},
		"negative":      {in: -0.5, want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Valid())
		})
	}

	for _, s := range band.Bands() {
		assert.True(t, s.Valid(), "band %v", s)
	}
}
