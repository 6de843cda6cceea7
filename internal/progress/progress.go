// Package progress folds a user's score history into summary statistics.
package progress

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/domain"
)

// RecentN is how many of the latest bands a module summary carries.
const RecentN = 5

type ModuleSummary struct {
	Count   int       `json:"count"`
	Average float64   `json:"average"`
	Best    float64   `json:"best"`
	Latest  float64   `json:"latest"`
	Recent  []float64 `json:"recent_scores"`
}

type Overall struct {
	TotalTests  int     `json:"total_tests"`
	AverageBand float64 `json:"average_band"`
	BestBand    float64 `json:"best_band"`

	// Estimated is the average band rounded to the nearest half band.
	Estimated band.Score `json:"estimated_band"`
}

type Summary struct {
	Modules map[domain.Module]ModuleSummary `json:"modules"`
	Overall Overall                         `json:"overall"`
}

// Summarize folds records, in any order, into a Summary. Every module of
// domain.Modules is present; modules without records are all zeros.
// Averages and bests are rounded to one decimal, half away from zero.
func Summarize(records []domain.ScoreRecord) Summary {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b domain.ScoreRecord) int {
		return b.CreateTime.Compare(a.CreateTime)
	})

	byModule := make(map[domain.Module][]band.Score, len(domain.Modules))
	all := make([]band.Score, 0, len(sorted))
	for _, r := range sorted {
		g := r.Module.Group()
		byModule[g] = append(byModule[g], r.Band)
		all = append(all, r.Band)
	}

	s := Summary{Modules: make(map[domain.Module]ModuleSummary, len(domain.Modules))}
	for _, m := range domain.Modules {
		s.Modules[m] = summarizeModule(byModule[m])
	}

	s.Overall = Overall{TotalTests: len(all)}
	if len(all) > 0 {
		avg := average(all)
		s.Overall.AverageBand = round1(avg)
		s.Overall.BestBand = round1(best(all))
		s.Overall.Estimated = band.Score(avg.Mul(decimal.NewFromInt(2)).Round(0).Div(decimal.NewFromInt(2)).InexactFloat64())
	}

	return s
}

// bands must be ordered newest first.
func summarizeModule(bands []band.Score) ModuleSummary {
	ms := ModuleSummary{
		Count:  len(bands),
		Recent: make([]float64, 0, RecentN),
	}
	if len(bands) == 0 {
		return ms
	}

	ms.Average = round1(average(bands))
	ms.Best = round1(best(bands))
	ms.Latest = round1(decimal.NewFromFloat(float64(bands[0])))
	for _, b := range bands[:min(RecentN, len(bands))] {
		ms.Recent = append(ms.Recent, round1(decimal.NewFromFloat(float64(b))))
	}

	return ms
}

func average(bands []band.Score) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range bands {
		sum = sum.Add(decimal.NewFromFloat(float64(b)))
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(bands))), 8)
}

func best(bands []band.Score) decimal.Decimal {
	return decimal.NewFromFloat(float64(slices.Max(bands)))
}

func round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}
