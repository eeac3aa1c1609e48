package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCorrect(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name   string
		q      Q
		answer string
		want   bool
	}{
		// choice types
		{name: "mcq lowercase", q: Q{Type: TypeMCQ, CorrectAnswer: "B"}, answer: "b", want: true},
		{name: "mcq padded", q: Q{Type: TypeMCQ, CorrectAnswer: "B"}, answer: " b ", want: true},
		{name: "mcq wrong letter", q: Q{Type: TypeMCQ, CorrectAnswer: "B"}, answer: "c", want: false},
		{name: "matching", q: Q{Type: TypeMatching, CorrectAnswer: "d"}, answer: "D", want: true},
		{name: "map label", q: Q{Type: TypeMapLabeling, CorrectAnswer: "G"}, answer: "g", want: true},
		{name: "choice has no fuzzy hyphen", q: Q{Type: TypeMCQ, CorrectAnswer: "a-b"}, answer: "a b", want: false},
		{name: "choice has no variants", q: Q{Type: TypeMatching, CorrectAnswer: "grey"}, answer: "gray", want: false},

		// empty answers
		{name: "empty answer", q: Q{Type: TypeMCQ, CorrectAnswer: "A"}, answer: "", want: false},
		{name: "blank answer", q: Q{Type: TypeFillBlank, CorrectAnswer: "x"}, answer: "   \t", want: false},
		{name: "empty vs empty key", q: Q{Type: TypeFillBlank, CorrectAnswer: ""}, answer: "", want: false},
		{name: "empty vs empty choice key", q: Q{Type: TypeMCQ, CorrectAnswer: ""}, answer: " ", want: false},

		// word limit
		{name: "within limit", q: Q{Type: TypeFillBlank, CorrectAnswer: "blue car", WordLimit: 2}, answer: "blue car", want: true},
		{name: "over limit", q: Q{Type: TypeFillBlank, CorrectAnswer: "blue car", WordLimit: 2}, answer: "the blue car", want: false},
		{name: "over limit even if key is long", q: Q{Type: TypeFillBlank, CorrectAnswer: "the blue car", WordLimit: 2}, answer: "the blue car", want: false},
		{name: "limit counts collapsed whitespace", q: Q{Type: TypeFillBlank, CorrectAnswer: "blue car", WordLimit: 2}, answer: "  blue \t  car ", want: true},
		{name: "zero means unlimited", q: Q{Type: TypeFillBlank, CorrectAnswer: "a very long answer indeed"}, answer: "A very long answer indeed", want: true},

		// normalization
		{name: "case and spacing", q: Q{Type: TypeFillBlank, CorrectAnswer: "Monday"}, answer: "  MONDAY ", want: true},
		{name: "inner whitespace", q: Q{Type: TypeTableCompletion, CorrectAnswer: "train station"}, answer: "train   station", want: true},

		// hyphens
		{name: "hyphen vs space", q: Q{Type: TypeSentenceCompletion, CorrectAnswer: "check-in"}, answer: "check in", want: true},
		{name: "space vs hyphen", q: Q{Type: TypeSentenceCompletion, CorrectAnswer: "check in"}, answer: "check-in", want: true},
		{name: "hyphen not removed", q: Q{Type: TypeSentenceCompletion, CorrectAnswer: "check-in"}, answer: "checkin", want: false},

		// spelling variants
		{name: "us to uk", q: Q{Type: TypeTableCompletion, CorrectAnswer: "colour"}, answer: "color", want: true},
		{name: "uk to us", q: Q{Type: TypeTableCompletion, CorrectAnswer: "color"}, answer: "colour", want: true},
		{name: "variant inside phrase", q: Q{Type: TypeFillBlank, CorrectAnswer: "city centre"}, answer: "City Center", want: true},
		{name: "aluminium", q: Q{Type: TypeFillBlank, CorrectAnswer: "aluminium"}, answer: "aluminum", want: true},
		{name: "substring substitution fires inside words", q: Q{Type: TypeFillBlank, CorrectAnswer: "entyre"}, answer: "entire", want: true},

		// alternatives
		{name: "alternative second", q: Q{Type: TypeFillBlank, CorrectAnswer: "grey|gray"}, answer: "gray", want: true},
		{name: "alternative first", q: Q{Type: TypeFillBlank, CorrectAnswer: "grey|gray"}, answer: "GREY", want: true},
		{name: "alternative miss", q: Q{Type: TypeFillBlank, CorrectAnswer: "grey|gray"}, answer: "green", want: false},
		{name: "alternative padded", q: Q{Type: TypeFillBlank, CorrectAnswer: " bus | coach "}, answer: "coach", want: true},
		{name: "alternative with variant", q: Q{Type: TypeFillBlank, CorrectAnswer: "stage|theatre"}, answer: "theater", want: true},

		// unknown types fall through to text matching
		{name: "unknown type", q: Q{Type: "short_answer", CorrectAnswer: "check-in"}, answer: "check in", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.IsCorrect(tc.q, tc.answer))
		})
	}
}

func TestWithSpellingVariants(t *testing.T) {
	q := Q{Type: TypeFillBlank, CorrectAnswer: "lift"}

	assert.False(t, NewMatcher().IsCorrect(q, "elevator"))

	m := NewMatcher(WithSpellingVariants([]VariantPair{{US: "elevator", UK: "lift"}}))
	assert.True(t, m.IsCorrect(q, "elevator"))
	// the replacement table drops the defaults
	assert.False(t, m.IsCorrect(Q{Type: TypeFillBlank, CorrectAnswer: "colour"}, "color"))
}

func TestWithSpellingVariantsCopiesTable(t *testing.T) {
	pairs := []VariantPair{{US: "truck", UK: "lorry"}}
	m := NewMatcher(WithSpellingVariants(pairs))
	pairs[0] = VariantPair{US: "x", UK: "y"}

	assert.True(t, m.IsCorrect(Q{Type: TypeFillBlank, CorrectAnswer: "lorry"}, "truck"))
}

func TestDefaultSpellingVariants(t *testing.T) {
	assert.Len(t, DefaultSpellingVariants, 33)
	for _, p := range DefaultSpellingVariants {
		assert.NotEmpty(t, p.US)
		assert.NotEmpty(t, p.UK)
	}
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 1, WordCount(" one "))
	assert.Equal(t, 3, WordCount("one\ttwo \n three"))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b", collapseSpaces("a \t\n b"))
	assert.Equal(t, " a ", collapseSpaces("  a  "))
}

func TestQuestionTypes(t *testing.T) {
	for _, typ := range []string{TypeMCQ, TypeMatching, TypeMapLabeling} {
		assert.True(t, IsChoiceBased(typ), typ)
		assert.False(t, IsTextBased(typ), typ)
	}
	for _, typ := range []string{TypeFillBlank, TypeSentenceCompletion, TypeTableCompletion} {
		assert.True(t, IsTextBased(typ), typ)
		assert.True(t, ValidType(typ), typ)
	}
	assert.False(t, ValidType("essay"))
}
