package exam

import (
	"fmt"
	"strings"

	"github.com/mind-engage/ielts-listening/internal/grading"
)

// DefaultWordLimit applies to text questions authored without a limit.
const DefaultWordLimit = 3

// PrepareTest checks an authored test and fills derived fields: part
// numbers, global question numbers in part order, default question type
// and word limits.
func PrepareTest(t *Test) error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title", "required")
	}
	if len(t.Parts) != PartCount {
		return invalid("parts", "exactly %d parts are required, got %d", PartCount, len(t.Parts))
	}
	next := 1
	for pi := range t.Parts {
		p := &t.Parts[pi]
		p.Number = pi + 1
		field := fmt.Sprintf("parts[%d]", pi)
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Instructions) == "" {
			return invalid(field, "title and instructions are required")
		}
		if strings.TrimSpace(p.AudioPath) == "" {
			return invalid(field+".audio_path", "audio file is required")
		}
		if len(p.Questions) == 0 {
			return invalid(field+".questions", "at least one question is required")
		}
		for qi := range p.Questions {
			q := &p.Questions[qi]
			qf := fmt.Sprintf("%s.questions[%d]", field, qi)
			if q.Type == "" {
				q.Type = grading.TypeMCQ
			}
			if !grading.ValidType(q.Type) {
				return invalid(qf+".question_type", "unknown type %q", q.Type)
			}
			if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
				return invalid(qf, "question_text and correct_answer are required")
			}
			if (q.Type == grading.TypeMCQ || q.Type == grading.TypeMatching) &&
				(q.OptionA == "" || q.OptionB == "" || q.OptionC == "") {
				return invalid(qf, "options A, B and C are required")
			}
			switch {
			case !grading.IsTextBased(q.Type):
				q.WordLimit = 0
			case q.WordLimit < 0:
				return invalid(qf+".word_limit", "must be positive")
			case q.WordLimit == 0:
				q.WordLimit = DefaultWordLimit
			}
			q.Number = next
			q.PartNumber = p.Number
			next++
		}
	}
	return nil
}
