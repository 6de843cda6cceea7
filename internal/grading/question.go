package grading

// Type is the declared type of a question. The set is closed.
type Type string

const (
	TypeMultipleChoice     Type = "multiple_choice"
	TypeTrueFalseNotGiven  Type = "true_false_not_given"
	TypeFillInTheBlank     Type = "fill_in_the_blank"
	TypeShortAnswer        Type = "short_answer"
	TypeFormCompletion     Type = "form_completion"
	TypeNoteCompletion     Type = "note_completion"
	TypeSentenceCompletion Type = "sentence_completion"
	TypeMatchingHeadings   Type = "matching_headings"
	TypeMatching           Type = "matching"
	TypeMultiSelect        Type = "multi_select"
)

// Types lists every known question type.
var Types = []Type{
	TypeMultipleChoice,
	TypeTrueFalseNotGiven,
	TypeFillInTheBlank,
	TypeShortAnswer,
	TypeFormCompletion,
	TypeNoteCompletion,
	TypeSentenceCompletion,
	TypeMatchingHeadings,
	TypeMatching,
	TypeMultiSelect,
}

// Valid reports whether t is one of the known question types.
func (t Type) Valid() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

// FreeText reports whether answers of this type earn similarity based credit.
func (t Type) FreeText() bool {
	switch t {
	case TypeFillInTheBlank, TypeShortAnswer, TypeFormCompletion, TypeNoteCompletion, TypeSentenceCompletion:
		return true
	default:
		return false
	}
}

// Key is the correct answer of a question. It is one of ChoiceKey, TFNGKey,
// TextKey, LabelKey, SetKey or InvalidKey.
type Key interface {
	isKey()
}

// ChoiceKey is the zero-based index of the correct option.
type ChoiceKey int

// TFNGKey is one of the tokens "True", "False" or "Not Given".
type TFNGKey string

// TextKey is the expected free-text answer.
type TextKey string

// LabelKey is the expected label drawn from a finite set, e.g. a heading number.
type LabelKey string

// SetKey is the full set of options that must be selected.
type SetKey []string

// InvalidKey is a stored correct answer, as compact JSON, whose shape does not
// fit the question type. It never matches any answer.
type InvalidKey []byte

func (ChoiceKey) isKey()  {}
func (TFNGKey) isKey()    {}
func (TextKey) isKey()    {}
func (LabelKey) isKey()   {}
func (SetKey) isKey()     {}
func (InvalidKey) isKey() {}

const (
	TokenTrue     = "True"
	TokenFalse    = "False"
	TokenNotGiven = "Not Given"
)

// Question is one gradable item of a test.
type Question struct {
	ID      string
	Type    Type
	Options []string

	// Answer is nil when the content generator produced no correct answer.
	Answer Key
}

// Answers maps question ids to the raw submitted values. Values are whatever the
// client sent: strings, numbers, booleans or lists.
type Answers map[string]any
