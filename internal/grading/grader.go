// Package grading compares submitted answers against an answer key.
//
// Grade is total: malformed questions and malformed answers are graded as
// incorrect instead of failing the whole submission. Questions that could not be
// graded because of bad content are reported as warnings so the caller can flag
// them to whoever produced the answer key.
package grading

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/victornm/bandscore/internal/similarity"
)

const (
	// FullCreditSimilarity is the similarity from which a free-text answer counts as correct.
	FullCreditSimilarity = 0.8

	// PartialCreditSimilarity is the similarity from which a free-text answer earns partial credit.
	PartialCreditSimilarity = 0.5

	// MaxPartialCredit caps the partial credit of a single question.
	MaxPartialCredit = 0.5
)

// Warning reasons.
const (
	ReasonMissingAnswerKey = "missing correct answer"
	ReasonUnknownType      = "unknown question type"
	ReasonKeyTypeMismatch  = "correct answer does not match question type"
)

// Warning flags a question that was graded incorrect because of bad content.
type Warning struct {
	QuestionID string
	Reason     string
}

// Outcome is the grading of a single question.
type Outcome struct {
	QuestionID string
	Type       Type
	Correct    bool
	Answered   bool
	Expected   string
	Submitted  string

	// Partial is in [0, MaxPartialCredit] and only set for incorrect free-text answers.
	Partial float64

	// Similarity is only set for free-text answers.
	Similarity float64
}

// Result is the grading of a whole submission. It is never modified once returned.
type Result struct {
	Outcomes       []Outcome
	Warnings       []Warning
	TotalCorrect   int
	TotalPartial   float64
	TotalQuestions int
}

// Raw is the raw correct-answer count used for band conversion.
// Partial credit is reported separately and does not count towards it.
func (r Result) Raw() int {
	return r.TotalCorrect
}

// Grade grades answers against questions, in question order.
func Grade(questions []Question, answers Answers) Result {
	res := Result{
		Outcomes:       make([]Outcome, 0, len(questions)),
		TotalQuestions: len(questions),
	}

	for _, q := range questions {
		o, w := gradeOne(q, answers[q.ID])
		if w != "" {
			res.Warnings = append(res.Warnings, Warning{QuestionID: q.ID, Reason: w})
		}

		if o.Correct {
			res.TotalCorrect++
		}
		res.TotalPartial += o.Partial
		res.Outcomes = append(res.Outcomes, o)
	}

	return res
}

func gradeOne(q Question, submitted any) (Outcome, string) {
	o := Outcome{
		QuestionID: q.ID,
		Type:       q.Type,
		Answered:   answered(submitted),
	}
	if o.Answered {
		o.Submitted = render(submitted)
	}

	if !q.Type.Valid() {
		return o, ReasonUnknownType
	}
	if q.Answer == nil {
		return o, ReasonMissingAnswerKey
	}

	switch {
	case q.Type == TypeMultipleChoice:
		k, ok := q.Answer.(ChoiceKey)
		if !ok {
			return o, ReasonKeyTypeMismatch
		}
		o.Expected = expectedChoice(q, int(k))
		if o.Answered {
			o.Correct = gradeChoice(q, int(k), submitted)
		}

	case q.Type == TypeTrueFalseNotGiven:
		k, ok := q.Answer.(TFNGKey)
		if !ok {
			return o, ReasonKeyTypeMismatch
		}
		o.Expected = string(k)
		if o.Answered {
			o.Correct = gradeExact(string(k), submitted)
		}

	case q.Type.FreeText():
		k, ok := q.Answer.(TextKey)
		if !ok {
			return o, ReasonKeyTypeMismatch
		}
		o.Expected = string(k)
		if o.Answered {
			o.Correct, o.Partial, o.Similarity = gradeText(string(k), submitted)
		}

	case q.Type == TypeMatchingHeadings, q.Type == TypeMatching:
		k, ok := q.Answer.(LabelKey)
		if !ok {
			return o, ReasonKeyTypeMismatch
		}
		o.Expected = string(k)
		if o.Answered {
			o.Correct = gradeExact(string(k), submitted)
		}

	case q.Type == TypeMultiSelect:
		k, ok := q.Answer.(SetKey)
		if !ok {
			return o, ReasonKeyTypeMismatch
		}
		o.Expected = strings.Join(k, ", ")
		if o.Answered {
			o.Correct = gradeSet(k, submitted)
		}
	}

	return o, ""
}

func gradeChoice(q Question, key int, submitted any) bool {
	n, ok := toInt(submitted)
	if !ok || n < 0 {
		return false
	}
	if len(q.Options) > 0 && n >= len(q.Options) {
		return false
	}
	return n == key
}

func gradeExact(key string, submitted any) bool {
	s, ok := toText(submitted)
	if !ok {
		return false
	}
	return similarity.Normalize(s) == similarity.Normalize(key)
}

func gradeText(key string, submitted any) (correct bool, partial, sim float64) {
	s, ok := toText(submitted)
	if !ok {
		return false, 0, 0
	}
	if similarity.Normalize(s) == similarity.Normalize(key) {
		return true, 0, 1
	}

	sim = similarity.Similarity(key, s)
	if sim >= FullCreditSimilarity {
		return true, 0, sim
	}
	return false, PartialCredit(sim), sim
}

// PartialCredit maps a similarity in [PartialCreditSimilarity, FullCreditSimilarity)
// linearly onto [0, MaxPartialCredit]. Outside that band it is 0.
func PartialCredit(sim float64) float64 {
	if sim < PartialCreditSimilarity || sim >= FullCreditSimilarity {
		return 0
	}
	p := (sim - PartialCreditSimilarity) / (FullCreditSimilarity - PartialCreditSimilarity) * MaxPartialCredit
	return min(p, MaxPartialCredit)
}

func gradeSet(key SetKey, submitted any) bool {
	got, ok := toSet(submitted)
	if !ok {
		return false
	}
	return slices.Equal(normalizeSet(key), normalizeSet(got))
}

func normalizeSet(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = similarity.Normalize(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func expectedChoice(q Question, k int) string {
	if k >= 0 && k < len(q.Options) {
		return q.Options[k]
	}
	return strconv.Itoa(k)
}

func answered(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func render(v any) string {
	if s, ok := toText(v); ok {
		return s
	}
	if items, ok := toSet(v); ok {
		return strings.Join(items, ", ")
	}
	return fmt.Sprint(v)
}
