package exam

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	tests    map[string]Test
	attempts map[string]Attempt
}

// NewInMemoryStore is a Store for tests and single-process dev runs.
func NewInMemoryStore() Store {
	return &memoryStore{
		tests:    map[string]Test{},
		attempts: map[string]Attempt{},
	}
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, notFound("test", id)
	}
	return t, nil
}

func (m *memoryStore) ListTests(_ context.Context, opts ListOpts) ([]TestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(opts.Search))
	attempts := map[string]int{}
	for _, a := range m.attempts {
		attempts[a.TestID]++
	}
	out := make([]TestSummary, 0, len(m.tests))
	for _, t := range m.tests {
		if opts.ActiveOnly && !t.IsActive {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) {
			continue
		}
		n := 0
		for _, p := range t.Parts {
			n += len(p.Questions)
		}
		out = append(out, TestSummary{
			ID: t.ID, Title: t.Title, Description: t.Description, IsActive: t.IsActive,
			PartCount: len(t.Parts), QuestionCount: n, AttemptCount: attempts[t.ID], CreatedAt: t.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return notFound("test", id)
	}
	delete(m.tests, id)
	for k, a := range m.attempts {
		if a.TestID == id {
			delete(m.attempts, k)
		}
	}
	return nil
}

func (m *memoryStore) OpenAttempt(_ context.Context, a Attempt) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[a.TestID]; !ok {
		return Attempt{}, false, notFound("test", a.TestID)
	}
	for _, cur := range m.attempts {
		if cur.TestID == a.TestID && cur.UserID == a.UserID && !cur.Submitted() {
			return cloneAttempt(cur), false, nil
		}
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return cloneAttempt(a), true, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, notFound("attempt", id)
	}
	return cloneAttempt(a), nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.SubmittedOnly && !a.Submitted() {
			continue
		}
		out = append(out, cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return page(out, opts.Limit, opts.Offset), nil
}

// update applies fn to an open attempt under the write lock.
func (m *memoryStore) update(id string, fn func(a *Attempt)) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, notFound("attempt", id)
	}
	if a.Submitted() {
		return Attempt{}, ErrAlreadySubmitted
	}
	a = cloneAttempt(a)
	fn(&a)
	m.attempts[id] = a
	return cloneAttempt(a), nil
}

func (m *memoryStore) UpdateProgress(_ context.Context, id string, u ProgressUpdate) (Attempt, error) {
	return m.update(id, func(a *Attempt) {
		if u.Answers != nil {
			a.Answers = cloneAnswers(u.Answers)
		}
		if u.TimeRemaining != nil {
			a.TimeRemaining = *u.TimeRemaining
		}
		if u.CurrentPart != nil {
			a.CurrentPart = *u.CurrentPart
		}
	})
}

func (m *memoryStore) MarkAudioPlayed(_ context.Context, id string, part int) (Attempt, error) {
	return m.update(id, func(a *Attempt) {
		if a.PartAudioPlayed == nil {
			a.PartAudioPlayed = newAudioFlags()
		}
		a.PartAudioPlayed[partKey(part)] = true
	})
}

func (m *memoryStore) Finalize(_ context.Context, id string, f Finalization) (Attempt, error) {
	return m.update(id, func(a *Attempt) {
		correct, band, at := f.CorrectCount, f.BandScore, f.SubmittedAt
		a.Answers = cloneAnswers(f.Answers)
		a.CorrectCount = &correct
		a.TotalQuestions = f.TotalQuestions
		a.BandScore = &band
		a.SubmittedAt = &at
		a.TimeRemaining = f.TimeRemaining
	})
}

func cloneAttempt(a Attempt) Attempt {
	a.Answers = cloneAnswers(a.Answers)
	if a.PartAudioPlayed != nil {
		flags := make(map[string]bool, len(a.PartAudioPlayed))
		for k, v := range a.PartAudioPlayed {
			flags[k] = v
		}
		a.PartAudioPlayed = flags
	}
	if a.CorrectCount != nil {
		v := *a.CorrectCount
		a.CorrectCount = &v
	}
	if a.BandScore != nil {
		v := *a.BandScore
		a.BandScore = &v
	}
	if a.SubmittedAt != nil {
		v := *a.SubmittedAt
		a.SubmittedAt = &v
	}
	return a
}

func cloneAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return in[:0]
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func sortQuestions(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Number < qs[j].Number })
}
