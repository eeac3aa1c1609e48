package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/ielts-listening/internal/grading"
	"github.com/mind-engage/ielts-listening/internal/scoring"
)

// Event types published by the service.
const EventAttemptSubmitted = "AttemptSubmitted"

// Publisher receives domain events after the state change has committed.
type Publisher interface {
	Publish(ctx context.Context, typ, key string, data any) error
}

// MediaStore removes part recordings and images that no test refers to
// any more. storage.BlobStore satisfies it.
type MediaStore interface {
	Delete(key string) error
}

type Option func(*Service)

func WithMatcher(m *grading.Matcher) Option { return func(s *Service) { s.matcher = m } }
func WithScale(sc scoring.Scale) Option     { return func(s *Service) { s.scale = sc } }
func WithPublisher(p Publisher) Option      { return func(s *Service) { s.events = p } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithMediaStore(m MediaStore) Option    { return func(s *Service) { s.media = m } }

// WithRescaleToFullTest maps the raw count of a shorter or longer test onto
// the scale's full length before the band lookup.
func WithRescaleToFullTest(b bool) Option { return func(s *Service) { s.rescale = b } }

// Service runs listening attempts: start, autosave, audio flags, submission
// and grading. It keeps no per-attempt state; the Store serializes writes.
type Service struct {
	store   Store
	matcher *grading.Matcher
	scale   scoring.Scale
	events  Publisher
	media   MediaStore
	now     func() time.Time
	rescale bool
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		matcher: grading.NewMatcher(),
		scale:   scoring.IELTSListening,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start resumes the user's open attempt on the test or begins a new one.
func (s *Service) Start(ctx context.Context, testID, userID string) (Attempt, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Attempt{}, err
	}
	if !t.IsActive {
		return Attempt{}, notFound("test", testID)
	}
	a := Attempt{
		ID:              uuid.NewString(),
		TestID:          testID,
		UserID:          userID,
		Answers:         map[string]string{},
		StartedAt:       s.now(),
		TimeRemaining:   TotalTimeSec,
		CurrentPart:     1,
		PartAudioPlayed: newAudioFlags(),
	}
	out, created, err := s.store.OpenAttempt(ctx, a)
	if err != nil {
		return Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	if !created {
		log.Printf("attempt %s resumed (test=%s user=%s)", out.ID, testID, userID)
	}
	return out, nil
}

// SaveProgress overwrites whichever fields u carries.
func (s *Service) SaveProgress(ctx context.Context, attemptID, userID string, u ProgressUpdate) (Attempt, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Submitted() {
		return Attempt{}, ErrAlreadySubmitted
	}
	if u.CurrentPart != nil && !validPart(*u.CurrentPart) {
		return Attempt{}, invalid("current_part", "must be between 1 and %d, got %d", PartCount, *u.CurrentPart)
	}
	if u.TimeRemaining != nil && *u.TimeRemaining < 0 {
		return Attempt{}, invalid("time_remaining", "must not be negative")
	}
	return s.store.UpdateProgress(ctx, attemptID, u)
}

// MarkAudioPlayed records that a part's recording has been played. The
// flag is advisory; replay is blocked by the client.
func (s *Service) MarkAudioPlayed(ctx context.Context, attemptID, userID string, part int) (Attempt, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return Attempt{}, err
	}
	if !validPart(part) {
		return Attempt{}, invalid("part_number", "must be between 1 and %d, got %d", PartCount, part)
	}
	if a.Submitted() {
		return Attempt{}, ErrAlreadySubmitted
	}
	return s.store.MarkAudioPlayed(ctx, attemptID, part)
}

// SubmitRequest holds the final answers. Nil Answers grades the answers
// saved so far; nil TimeRemaining records zero.
type SubmitRequest struct {
	Answers       map[string]string
	TimeRemaining *int
}

type SubmitResult struct {
	Attempt        Attempt `json:"attempt"`
	TotalQuestions int     `json:"total_questions"`
	CorrectCount   int     `json:"correct_count"`
	BandScore      float64 `json:"band_score"`
}

// Submit grades every question of the test and finalizes the attempt.
// Either the whole grade is stored or the attempt stays open.
func (s *Service) Submit(ctx context.Context, attemptID, userID string, req SubmitRequest) (SubmitResult, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if a.Submitted() {
		return SubmitResult{}, ErrAlreadySubmitted
	}
	if req.TimeRemaining != nil && *req.TimeRemaining < 0 {
		return SubmitResult{}, invalid("time_remaining", "must not be negative")
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load test for attempt %s: %w", attemptID, err)
	}

	answers := req.Answers
	if answers == nil {
		answers = a.Answers
	}
	questions := t.Questions()
	correct := s.Grade(questions, answers)
	band := s.BandScore(correct, len(questions))

	remaining := 0
	if req.TimeRemaining != nil {
		remaining = *req.TimeRemaining
	}
	out, err := s.store.Finalize(ctx, attemptID, Finalization{
		Answers:        answers,
		CorrectCount:   correct,
		TotalQuestions: len(questions),
		BandScore:      band,
		SubmittedAt:    s.now(),
		TimeRemaining:  remaining,
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadySubmitted) {
			log.Printf("submit attempt %s: %v", attemptID, err)
		}
		return SubmitResult{}, err
	}

	res := SubmitResult{Attempt: out, TotalQuestions: len(questions), CorrectCount: correct, BandScore: band}
	if s.events != nil {
		if err := s.events.Publish(ctx, EventAttemptSubmitted, attemptID, res); err != nil {
			log.Printf("publish %s for attempt %s: %v", EventAttemptSubmitted, attemptID, err)
		}
	}
	return res, nil
}

// Grade counts the questions whose answer is accepted. Questions are
// looked up by their number; missing answers count as wrong.
func (s *Service) Grade(questions []Question, answers map[string]string) int {
	n := 0
	for _, q := range questions {
		if s.matcher.IsCorrect(q.GradingView(), answers[strconv.Itoa(q.Number)]) {
			n++
		}
	}
	return n
}

// BandScore converts correct out of total into a band.
func (s *Service) BandScore(correct, total int) float64 {
	if s.rescale {
		correct = scoring.Rescale(correct, total, s.scale.FullLength())
	}
	return s.scale.BandScoreFor(correct)
}

// GetTest returns an active test without answer keys.
func (s *Service) GetTest(ctx context.Context, testID string) (Test, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Test{}, err
	}
	if !t.IsActive {
		return Test{}, notFound("test", testID)
	}
	return t.WithoutAnswers(), nil
}

// ListTests returns active tests, each with the viewer's submitted attempts.
func (s *Service) ListTests(ctx context.Context, userID string, opts ListOpts) ([]TestSummary, error) {
	opts.ActiveOnly = true
	tests, err := s.store.ListTests(ctx, opts)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].AttemptCount = 0
	}
	if userID == "" || len(tests) == 0 {
		return tests, nil
	}
	done, err := s.store.ListAttempts(ctx, AttemptListOpts{UserID: userID, SubmittedOnly: true})
	if err != nil {
		return nil, err
	}
	byTest := make(map[string][]Attempt, len(tests))
	for _, a := range done {
		byTest[a.TestID] = append(byTest[a.TestID], a)
	}
	for i := range tests {
		tests[i].Attempts = byTest[tests[i].ID]
	}
	return tests, nil
}

// ListAllTests lists every test, inactive ones included, for staff.
func (s *Service) ListAllTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	opts.ActiveOnly = false
	return s.store.ListTests(ctx, opts)
}

// FullTest returns a test with its answer keys whatever its status, for staff.
func (s *Service) FullTest(ctx context.Context, testID string) (Test, error) {
	return s.store.GetTest(ctx, testID)
}

// ListAttempts returns the user's submitted attempts, newest first.
func (s *Service) ListAttempts(ctx context.Context, userID string, limit, offset int) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, AttemptListOpts{UserID: userID, SubmittedOnly: true, Limit: limit, Offset: offset})
}

type AttemptDetail struct {
	Attempt Attempt `json:"attempt"`
	Test    Test    `json:"test"`
}

// AttemptDetail returns an attempt with its test. Answer keys are only
// included once the attempt is submitted.
func (s *Service) AttemptDetail(ctx context.Context, attemptID, userID string) (AttemptDetail, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return AttemptDetail{}, err
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return AttemptDetail{}, err
	}
	if !a.Submitted() {
		t = t.WithoutAnswers()
	}
	return AttemptDetail{Attempt: a, Test: t}, nil
}

// TestResults lists submitted attempts of one test, for staff.
func (s *Service) TestResults(ctx context.Context, testID string, limit, offset int) ([]Attempt, error) {
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, AttemptListOpts{TestID: testID, SubmittedOnly: true, Limit: limit, Offset: offset})
}

// PutTest validates, numbers and stores a test authored by staff. A
// replaced test keeps its creation time, and media it no longer refers to
// is removed.
func (s *Service) PutTest(ctx context.Context, t Test) (Test, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := PrepareTest(&t); err != nil {
		return Test{}, err
	}
	old, err := s.store.GetTest(ctx, t.ID)
	switch {
	case err == nil:
		t.CreatedAt = old.CreatedAt
	case errors.Is(err, ErrNotFound):
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
	default:
		return Test{}, err
	}
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	s.removeMedia(mediaKeys(old), mediaKeys(t))
	return t, nil
}

// DeleteTest removes a test, its attempts and its media.
func (s *Service) DeleteTest(ctx context.Context, testID string) error {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTest(ctx, testID); err != nil {
		return err
	}
	s.removeMedia(mediaKeys(t), nil)
	return nil
}

// removeMedia deletes keys in drop that are not in keep. Failures are
// logged; the test row is already committed.
func (s *Service) removeMedia(drop, keep []string) {
	if s.media == nil {
		return
	}
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	for _, k := range drop {
		if kept[k] {
			continue
		}
		if err := s.media.Delete(k); err != nil {
			log.Printf("remove media %s: %v", k, err)
		}
	}
}

// mediaKeys lists the stored audio and image keys of t. External URLs are
// not ours to delete.
func mediaKeys(t Test) []string {
	var out []string
	for _, p := range t.Parts {
		for _, k := range []string{p.AudioPath, p.ImagePath} {
			if k != "" && !strings.Contains(k, "://") {
				out = append(out, k)
			}
		}
	}
	return out
}

func (s *Service) owned(ctx context.Context, attemptID, userID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, fmt.Errorf("attempt %s: %w", attemptID, ErrUnauthorized)
	}
	return a, nil
}

func validPart(n int) bool { return n >= 1 && n <= PartCount }

func partKey(n int) string { return strconv.Itoa(n) }
