package grading

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Score grades normalized items and returns an integer in [0, 100].
//
// Each countable item is compared in two passes: first as trimmed,
// case-insensitive strings, then by raw equality (which covers numeric
// and boolean submissions whose textual forms differ). The result is
// round(100 * correct / countable) with halves rounding away from zero
// (math.Round); the rule matters at the approval threshold boundary,
// so it is fixed here rather than left to the caller. Zero countable
// items yield 0 — never a division by zero.
func Score(items []Item) int {
	countable := 0
	correct := 0

	for _, item := range items {
		if !item.Countable {
			continue
		}
		countable++
		if answerMatches(item.Submitted, item.Correct) {
			correct++
		}
	}

	if countable == 0 {
		return 0
	}

	score := int(math.Round(100 * float64(correct) / float64(countable)))
	return clampScore(score)
}

func answerMatches(submitted, correct interface{}) bool {
	if canonical(submitted) == canonical(correct) {
		return true
	}
	return reflect.DeepEqual(submitted, correct)
}

// canonical renders an answer the way legacy payloads compare them:
// lowercased, surrounding whitespace dropped, numbers without a
// trailing ".0" so an index submitted as JSON number 1 equals the
// stored option index 1.
func canonical(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strings.ToLower(strconv.FormatFloat(v, 'f', -1, 64))
	case nil:
		return ""
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
