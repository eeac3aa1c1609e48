package exam

import "context"

type ListOpts struct {
	ActiveOnly bool
	Search     string // case-insensitive substring of the title
	Limit      int
	Offset     int
}

type AttemptListOpts struct {
	TestID        string
	UserID        string
	SubmittedOnly bool
	Limit         int
	Offset        int
}

// Store persists tests and attempts. Implementations must make every
// attempt write conditional on the attempt still being open, so that a
// finalized attempt can never be overwritten.
type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error) // full test, answer keys included
	ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error)
	DeleteTest(ctx context.Context, id string) error

	// OpenAttempt returns the caller's in-progress attempt for a.TestID, or
	// stores a as a new one. created reports which happened.
	OpenAttempt(ctx context.Context, a Attempt) (out Attempt, created bool, err error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)

	// UpdateProgress, MarkAudioPlayed and Finalize fail with
	// ErrAlreadySubmitted when submitted_at is already set.
	UpdateProgress(ctx context.Context, id string, u ProgressUpdate) (Attempt, error)
	MarkAudioPlayed(ctx context.Context, id string, part int) (Attempt, error)
	Finalize(ctx context.Context, id string, f Finalization) (Attempt, error)
}
