package exam

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// threeQuestionTest is a short test: mcq, one-word blank, and a sentence
// completion with alternatives.
func threeQuestionTest(id string) Test {
	return Test{
		ID:       id,
		Title:    "Short listening",
		IsActive: true,
		Parts: []Part{{
			Number: 1, Title: "Part 1", Instructions: "Listen", AudioPath: "audio/p1.mp3",
			Questions: []Question{
				{Number: 1, PartNumber: 1, Type: "mcq", Text: "Q1", OptionA: "x", OptionB: "y", OptionC: "z", CorrectAnswer: "a"},
				{Number: 2, PartNumber: 1, Type: "fill_blank", Text: "Q2", WordLimit: 1, CorrectAnswer: "Monday"},
				{Number: 3, PartNumber: 1, Type: "sentence_completion", Text: "Q3", CorrectAnswer: "colour|color"},
			},
		}},
		CreatedAt: fixedNow,
	}
}

// fortyQuestionTest has four parts of ten mcq questions, all answered "A".
func fortyQuestionTest(id string) Test {
	t := Test{ID: id, Title: "Full listening", IsActive: true, CreatedAt: fixedNow}
	n := 1
	for p := 1; p <= PartCount; p++ {
		part := Part{Number: p, Title: fmt.Sprintf("Part %d", p), Instructions: "Listen", AudioPath: fmt.Sprintf("audio/p%d.mp3", p)}
		for i := 0; i < 10; i++ {
			part.Questions = append(part.Questions, Question{
				Number: n, PartNumber: p, Type: "mcq", Text: fmt.Sprintf("Q%d", n),
				OptionA: "a", OptionB: "b", OptionC: "c", CorrectAnswer: "A",
			})
			n++
		}
		t.Parts = append(t.Parts, part)
	}
	return t
}

// answersFor answers the first correct questions of a forty-question test
// correctly and the rest wrongly.
func answersFor(correct int) map[string]string {
	out := map[string]string{}
	for n := 1; n <= 40; n++ {
		if n <= correct {
			out[fmt.Sprint(n)] = "a"
		} else {
			out[fmt.Sprint(n)] = "b"
		}
	}
	return out
}

func newAttempt(id, testID, userID string) Attempt {
	return Attempt{
		ID:              id,
		TestID:          testID,
		UserID:          userID,
		Answers:         map[string]string{},
		StartedAt:       fixedNow,
		TimeRemaining:   TotalTimeSec,
		CurrentPart:     1,
		PartAudioPlayed: newAudioFlags(),
	}
}

func seed(t *testing.T, s Store, tests ...Test) {
	t.Helper()
	for _, tt := range tests {
		require.NoError(t, s.PutTest(context.Background(), tt))
	}
}

func intPtr(v int) *int { return &v }
