// Package band converts raw correct-answer counts into band scores.
package band

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Score is a band score. Values produced by this package are always table entries.
type Score float64

func (s Score) String() string {
	return strconv.FormatFloat(float64(s), 'f', 1, 64)
}

// Valid reports whether s is on the 0 to 9 scale in half band steps.
func (s Score) Valid() bool {
	return s >= 0 && s <= 9 && math.Mod(float64(s)*2, 1) == 0
}

// NativeTotal is the question count the conversion table is defined for.
const NativeTotal = 40

type step struct {
	minRaw int
	band   Score
}

// table is ordered by descending minRaw. Each half band costs more raw
// answers the higher it is.
var table = []step{
	{39, 9.0},
	{37, 8.5},
	{35, 8.0},
	{32, 7.5},
	{30, 7.0},
	{26, 6.5},
	{23, 6.0},
	{18, 5.5},
	{16, 5.0},
	{13, 4.5},
	{10, 4.0},
	{8, 3.5},
	{6, 3.0},
	{4, 2.5},
	{3, 2.0},
	{1, 1.0},
	{0, 0.0},
}

// FromRawCount returns the band for correct answers out of total questions.
// Counts are first rescaled onto NativeTotal, see Rescale. Out-of-range input is
// clamped, never rejected.
func FromRawCount(correct, total int) Score {
	return lookup(Rescale(correct, total))
}

// Rescale maps correct/total onto NativeTotal, rounding half up, and clamps the
// result into [0, NativeTotal]. A non-positive total yields 0.
func Rescale(correct, total int) int {
	if total <= 0 {
		return 0
	}
	correct = min(max(correct, 0), total)
	if total == NativeTotal {
		return correct
	}

	// floor(correct*40/total + 1/2) as the exact quotient (2*correct*40 + total) / (2*total).
	num := decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(2 * NativeTotal)).
		Add(decimal.NewFromInt(int64(total)))
	q, _ := num.QuoRem(decimal.NewFromInt(int64(total)).Mul(decimal.NewFromInt(2)), 0)

	n := int(q.IntPart())
	return min(max(n, 0), NativeTotal)
}

func lookup(raw int) Score {
	for _, s := range table {
		if raw >= s.minRaw {
			return s.band
		}
	}
	return 0
}

// Bands lists every band the table can produce, ascending.
func Bands() []Score {
	out := make([]Score, 0, len(table))
	for i := len(table) - 1; i >= 0; i-- {
		out = append(out, table[i].band)
	}
	return out
}
