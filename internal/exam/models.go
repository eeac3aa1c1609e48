package exam

import (
	"time"

	"github.com/mind-engage/ielts-listening/internal/grading"
)

const (
	// TotalTimeSec is the time budget of one listening attempt.
	TotalTimeSec = 1800
	// PartCount is the number of parts in a listening test.
	PartCount = 4
)

type Question struct {
	Number        int    `json:"question_number"`
	PartNumber    int    `json:"part_number"`
	Type          string `json:"question_type"` // mcq, fill_blank, sentence_completion, matching, table_completion, map_labeling
	Text          string `json:"question_text,omitempty"`
	OptionA       string `json:"option_a,omitempty"`
	OptionB       string `json:"option_b,omitempty"`
	OptionC       string `json:"option_c,omitempty"`
	OptionD       string `json:"option_d,omitempty"`
	WordLimit     int    `json:"word_limit,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// GradingView is the subset the matcher needs.
func (q Question) GradingView() grading.Q {
	return grading.Q{Type: q.Type, CorrectAnswer: q.CorrectAnswer, WordLimit: q.WordLimit}
}

type Part struct {
	Number       int        `json:"part_number"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	AudioPath    string     `json:"audio_path,omitempty"`
	ImagePath    string     `json:"image_path,omitempty"`
	AudioURL     string     `json:"audio_url,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Questions    []Question `json:"questions"`
}

type Test struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	Parts       []Part    `json:"parts"`
	CreatedAt   time.Time `json:"created_at"`
}

// Questions flattens all parts, ordered by question number.
func (t Test) Questions() []Question {
	out := make([]Question, 0, 40)
	for _, p := range t.Parts {
		out = append(out, p.Questions...)
	}
	sortQuestions(out)
	return out
}

// WithoutAnswers returns a copy safe to show while an attempt is open.
func (t Test) WithoutAnswers() Test {
	parts := make([]Part, len(t.Parts))
	for i, p := range t.Parts {
		qs := make([]Question, len(p.Questions))
		copy(qs, p.Questions)
		for j := range qs {
			qs[j].CorrectAnswer = ""
		}
		p.Questions = qs
		parts[i] = p
	}
	t.Parts = parts
	return t
}

type TestSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	IsActive      bool      `json:"is_active"`
	PartCount     int       `json:"parts_count"`
	QuestionCount int       `json:"questions_count"`
	AttemptCount  int       `json:"attempts_count,omitempty"` // all users; staff listings only
	CreatedAt     time.Time `json:"created_at"`
	Attempts      []Attempt `json:"attempts,omitempty"` // viewer's submitted attempts
}

// Attempt is one user's run through a test. CorrectCount, BandScore and
// SubmittedAt stay nil until the attempt is submitted.
type Attempt struct {
	ID              string            `json:"id"`
	TestID          string            `json:"test_id"`
	UserID          string            `json:"user_id"`
	Answers         map[string]string `json:"answers"` // question number -> answer
	CorrectCount    *int              `json:"correct_count"`
	TotalQuestions  int               `json:"total_questions,omitempty"`
	BandScore       *float64          `json:"band_score"`
	StartedAt       time.Time         `json:"started_at"`
	SubmittedAt     *time.Time        `json:"submitted_at"`
	TimeRemaining   int               `json:"time_remaining"`
	CurrentPart     int               `json:"current_part"`
	PartAudioPlayed map[string]bool   `json:"part_audio_played"`
}

func (a Attempt) Submitted() bool { return a.SubmittedAt != nil }

// ProgressUpdate carries a partial update; nil fields are left unchanged.
type ProgressUpdate struct {
	Answers       map[string]string
	TimeRemaining *int
	CurrentPart   *int
}

// Finalization is written once, when an attempt is submitted.
type Finalization struct {
	Answers        map[string]string
	CorrectCount   int
	TotalQuestions int
	BandScore      float64
	SubmittedAt    time.Time
	TimeRemaining  int
}

func newAudioFlags() map[string]bool {
	return map[string]bool{"1": false, "2": false, "3": false, "4": false}
}
