package grading

import (
	"errors"
	"fmt"
	"sort"
)

// Kind identifies the question flavor. Values match the stored payloads.
type Kind string

const (
	// KindMultipleChoice marks a question answered by an option index.
	KindMultipleChoice Kind = "opcion_multiple"
	// KindTrueFalse marks a boolean question.
	KindTrueFalse Kind = "verdadero_falso"
	// KindShortAnswer marks a free-text question graded by a teacher.
	KindShortAnswer Kind = "respuesta_corta"
)

// ErrInvalidQuestionSet indicates the question payload is neither a
// sequence nor a mapping, or a recognized container key holds a
// non-list value. Malformed individual questions never raise; they are
// simply excluded from automatic scoring.
var ErrInvalidQuestionSet = errors.New("question set must be a list or an object")

// correctAnswerKeys are the legacy field names that may carry an
// explicit correct answer, highest priority first. The first present
// key wins even when its value is falsy (false, 0, "").
var correctAnswerKeys = []string{"respuesta_correcta", "correct_answer", "answer", "respuesta", "correcta"}

// Option is one selectable choice of a multiple-choice question.
type Option struct {
	Text    string
	Correct bool
}

// Question is a single entry of a quiz after shape normalization. The
// legacy payload tolerance lives entirely in ParseQuestionSet; the rest
// of the engine only ever sees this form.
type Question struct {
	// Index is the question position and keys the student answer
	// ("pregunta_{index}").
	Index  int
	Kind   Kind
	Prompt string
	// Options is populated for option-based questions.
	Options []Option
	// Correct holds the expected answer, or nil when the question is
	// not auto-gradable. For option-based questions without an explicit
	// answer field this is the index of the option flagged correct.
	Correct interface{}
}

// Gradable reports whether the question can be scored automatically.
func (q Question) Gradable() bool {
	return q.Kind != KindShortAnswer && q.Correct != nil
}

// AnswerKey returns the submitted-answer key for the question position.
func AnswerKey(index int) string {
	return fmt.Sprintf("pregunta_%d", index)
}

// ParseQuestionSet converts a polymorphic question payload into an
// ordered question list. Accepted shapes, in order of preference:
//
//	["...questions..."]
//	{"preguntas": [...]}
//	{"items": [...]}
//	{"<any-key>": {...question...}, ...}  (values, sorted by key)
//
// Anything else fails with ErrInvalidQuestionSet.
func ParseQuestionSet(payload interface{}) ([]Question, error) {
	entries, err := questionEntries(payload)
	if err != nil {
		return nil, err
	}

	questions := make([]Question, 0, len(entries))
	for i, entry := range entries {
		questions = append(questions, parseQuestion(i, entry))
	}

	return questions, nil
}

func questionEntries(payload interface{}) ([]interface{}, error) {
	switch v := payload.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		for _, key := range []string{"preguntas", "items"} {
			raw, ok := v[key]
			if !ok {
				continue
			}
			list, ok := raw.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a list", ErrInvalidQuestionSet, key)
			}
			return list, nil
		}

		// Raw mapping of arbitrary keys: take the values. Keys are
		// sorted so the derived question indexes are stable.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		entries := make([]interface{}, 0, len(keys))
		for _, key := range keys {
			entries = append(entries, v[key])
		}
		return entries, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidQuestionSet, payload)
	}
}

func parseQuestion(index int, entry interface{}) Question {
	question := Question{Index: index}

	fields, ok := entry.(map[string]interface{})
	if !ok {
		// Unknown shape: keeps its position but never counts.
		return question
	}

	if kind, ok := fields["tipo"].(string); ok {
		question.Kind = Kind(kind)
	}
	if prompt, ok := fields["enunciado"].(string); ok {
		question.Prompt = prompt
	}
	question.Options = parseOptions(fields["opciones"])

	// Short answers are graded by a teacher, never automatically.
	if question.Kind == KindShortAnswer {
		return question
	}

	for _, key := range correctAnswerKeys {
		if value, present := fields[key]; present {
			question.Correct = value
			break
		}
	}

	// Current shape: the correct option carries a `correcta` flag and
	// the submitted answer is the option index.
	if question.Correct == nil {
		for idx, option := range question.Options {
			if option.Correct {
				question.Correct = idx
				break
			}
		}
	}

	return question
}

func parseOptions(raw interface{}) []Option {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	options := make([]Option, 0, len(list))
	for _, entry := range list {
		option := Option{}
		if fields, ok := entry.(map[string]interface{}); ok {
			if text, ok := fields["texto"].(string); ok {
				option.Text = text
			}
			if correct, ok := fields["correcta"].(bool); ok {
				option.Correct = correct
			}
		} else if text, ok := entry.(string); ok {
			option.Text = text
		}
		options = append(options, option)
	}
	return options
}
