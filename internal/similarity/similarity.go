// Package similarity scores how close two short free-text answers are.
// It only tolerates near-miss typing; there is no stemming or synonym support.
package similarity

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Normalize case-folds s and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}

// Similarity returns 1 - distance/max(1, longest) over the normalized inputs,
// clamped into [0, 1]. Lengths are measured in runes.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return 1
	}

	longest := max(1, utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	s := 1 - float64(Distance(a, b))/float64(longest)
	if s < 0 {
		return 0
	}
	return s
}

// Distance is the Levenshtein distance between a and b: single-rune insertions,
// deletions and substitutions each cost 1. Transpositions are not special-cased.
func Distance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	row := make([]int, len(br)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ar); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			next := min(row[j]+1, row[j-1]+1, diag+cost)
			diag, row[j] = row[j], next
		}
	}

	return row[len(br)]
}
