package grading

// AnswerSet maps "pregunta_{i}" keys to the value the student
// submitted for that question. Values keep whatever type the transport
// delivered: string, number or boolean.
type AnswerSet map[string]interface{}

// Item pairs one question with the student's submitted answer. It is
// the unit the scorer consumes.
type Item struct {
	Question  Question
	Submitted interface{}
	// Correct mirrors Question.Correct and is nil when the question
	// cannot be graded automatically.
	Correct interface{}
	// Countable is true when both a submitted and a correct answer
	// exist, i.e. the item participates in the score denominator.
	Countable bool
}

// Normalize joins a parsed question list with an answer set into
// gradable items. Questions without a usable correct answer and
// questions the student skipped stay in the output but are marked
// non-countable.
func Normalize(questions []Question, answers AnswerSet) []Item {
	items := make([]Item, 0, len(questions))
	for _, question := range questions {
		submitted, ok := answers[AnswerKey(question.Index)]
		if !ok {
			submitted = nil
		}

		var correct interface{}
		if question.Kind != KindShortAnswer {
			correct = question.Correct
		}

		items = append(items, Item{
			Question:  question,
			Submitted: submitted,
			Correct:   correct,
			Countable: submitted != nil && correct != nil,
		})
	}
	return items
}
