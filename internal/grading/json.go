package grading

import (
	"bytes"
	"encoding/json"
)

type questionJSON struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	var (
		v   any
		err error
	)
	switch k := q.Answer.(type) {
	case ChoiceKey:
		v = int(k)
	case TFNGKey:
		v = string(k)
	case TextKey:
		v = string(k)
	case LabelKey:
		v = string(k)
	case SetKey:
		v = []string(k)
	case InvalidKey:
		v = json.RawMessage(k)
	}

	raw := json.RawMessage("null")
	if v != nil {
		if raw, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}

	return json.Marshal(questionJSON{
		ID:            q.ID,
		Type:          q.Type,
		Options:       q.Options,
		CorrectAnswer: raw,
	})
}

// UnmarshalJSON decodes the correct answer according to the question type.
// A correct answer of the wrong shape decodes to an InvalidKey: the question stays
// loadable and is graded as malformed.
func (q *Question) UnmarshalJSON(b []byte) error {
	var j questionJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}

	*q = Question{
		ID:      j.ID,
		Type:    j.Type,
		Options: j.Options,
		Answer:  decodeKey(j.Type, j.CorrectAnswer),
	}
	return nil
}

func decodeKey(t Type, raw json.RawMessage) Key {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	invalid := invalidKey(raw)

	var v any
	if err := dec.Decode(&v); err != nil {
		return invalid
	}

	switch {
	case t == TypeMultipleChoice:
		if n, ok := toInt(v); ok {
			return ChoiceKey(n)
		}
	case t == TypeTrueFalseNotGiven:
		if s, ok := v.(string); ok {
			return TFNGKey(s)
		}
		if b, ok := v.(bool); ok {
			s, _ := toText(b)
			return TFNGKey(s)
		}
	case t.FreeText():
		if _, isList := v.([]any); !isList {
			if s, ok := toText(v); ok {
				return TextKey(s)
			}
		}
	case t == TypeMatchingHeadings, t == TypeMatching:
		if _, isList := v.([]any); !isList {
			if s, ok := toText(v); ok {
				return LabelKey(s)
			}
		}
	case t == TypeMultiSelect:
		if items, ok := v.([]any); ok {
			if set, ok := toSet(items); ok {
				return SetKey(set)
			}
		}
	}

	return invalid
}

func invalidKey(raw json.RawMessage) InvalidKey {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return InvalidKey(raw)
	}
	return InvalidKey(buf.Bytes())
}
