package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw string) interface{} {
	t.Helper()
	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestParseQuestionSetAcceptsList(t *testing.T) {
	payload := decodeJSON(t, `[
		{"tipo": "opcion_multiple", "enunciado": "Capital de Peru", "respuesta_correcta": "Lima"},
		{"tipo": "verdadero_falso", "enunciado": "El cielo es azul", "respuesta_correcta": true}
	]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, KindMultipleChoice, questions[0].Kind)
	require.Equal(t, "Lima", questions[0].Correct)
	require.Equal(t, true, questions[1].Correct)
}

func TestParseQuestionSetAcceptsWrappedContainers(t *testing.T) {
	for _, key := range []string{"preguntas", "items"} {
		payload := decodeJSON(t, `{"`+key+`": [{"tipo": "verdadero_falso", "respuesta_correcta": false}]}`)
		questions, err := ParseQuestionSet(payload)
		require.NoError(t, err, key)
		require.Len(t, questions, 1, key)
		require.Equal(t, false, questions[0].Correct, key)
	}
}

func TestParseQuestionSetAcceptsRawMapSortedByKey(t *testing.T) {
	payload := decodeJSON(t, `{
		"q2": {"tipo": "opcion_multiple", "respuesta_correcta": "b"},
		"q1": {"tipo": "opcion_multiple", "respuesta_correcta": "a"}
	}`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, "a", questions[0].Correct)
	require.Equal(t, "b", questions[1].Correct)
}

func TestParseQuestionSetRejectsScalars(t *testing.T) {
	_, err := ParseQuestionSet("not a question set")
	require.ErrorIs(t, err, ErrInvalidQuestionSet)

	_, err = ParseQuestionSet(decodeJSON(t, `{"preguntas": "oops"}`))
	require.ErrorIs(t, err, ErrInvalidQuestionSet)
}

func TestParseQuestionSetEmptyPayload(t *testing.T) {
	questions, err := ParseQuestionSet(nil)
	require.NoError(t, err)
	require.Empty(t, questions)
}

func TestCorrectAnswerKeyPriority(t *testing.T) {
	payload := decodeJSON(t, `[{
		"tipo": "opcion_multiple",
		"respuesta_correcta": "primera",
		"correct_answer": "segunda",
		"answer": "tercera"
	}]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Equal(t, "primera", questions[0].Correct)
}

func TestCorrectAnswerKeyFalsyValueStillWins(t *testing.T) {
	// A present key wins even with a falsy value; lower-priority keys
	// must not be consulted.
	payload := decodeJSON(t, `[{
		"tipo": "verdadero_falso",
		"respuesta_correcta": false,
		"correct_answer": true
	}]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Equal(t, false, questions[0].Correct)
	require.True(t, questions[0].Gradable())
}

func TestOptionFlagYieldsIndexAsCorrectAnswer(t *testing.T) {
	payload := decodeJSON(t, `[{
		"tipo": "opcion_multiple",
		"enunciado": "Elige",
		"opciones": [
			{"texto": "uno", "correcta": false},
			{"texto": "dos", "correcta": true},
			{"texto": "tres", "correcta": false}
		]
	}]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Equal(t, 1, questions[0].Correct)
	require.Len(t, questions[0].Options, 3)
	require.Equal(t, "dos", questions[0].Options[1].Text)
}

func TestShortAnswerNeverAutoGraded(t *testing.T) {
	payload := decodeJSON(t, `[{
		"tipo": "respuesta_corta",
		"enunciado": "Explica",
		"respuesta_correcta": "cualquier cosa"
	}]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Nil(t, questions[0].Correct)
	require.False(t, questions[0].Gradable())
}

func TestMalformedQuestionKeepsPosition(t *testing.T) {
	payload := decodeJSON(t, `[
		"just a string",
		{"tipo": "verdadero_falso", "respuesta_correcta": true}
	]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.False(t, questions[0].Gradable())
	require.Equal(t, 1, questions[1].Index)
	require.Equal(t, "pregunta_1", AnswerKey(questions[1].Index))
}

func TestPlainStringOptions(t *testing.T) {
	payload := decodeJSON(t, `[{
		"tipo": "opcion_multiple",
		"opciones": ["rojo", "verde"],
		"respuesta_correcta": "verde"
	}]`)

	questions, err := ParseQuestionSet(payload)
	require.NoError(t, err)
	require.Equal(t, []Option{{Text: "rojo"}, {Text: "verde"}}, questions[0].Options)
	require.Equal(t, "verde", questions[0].Correct)
}
