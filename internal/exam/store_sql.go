package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// audioCASRetries bounds optimistic retries when two clients flag
// different parts at the same moment.
const audioCASRetries = 5

const openAttemptRetries = 3

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"

	beforeReread func() // test hook, runs between insert and re-read in OpenAttempt
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	pj, err := json.Marshal(t.Parts)
	if err != nil {
		return err
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	n := 0
	for _, p := range t.Parts {
		n += len(p.Questions)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO listening_tests (id,title,description,is_active,parts_json,part_count,question_count,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
			is_active=EXCLUDED.is_active, parts_json=EXCLUDED.parts_json,
			part_count=EXCLUDED.part_count, question_count=EXCLUDED.question_count`,
		t.ID, t.Title, t.Description, boolInt(t.IsActive), string(pj), len(t.Parts), n, created.UnixMilli())
	return err
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,description,is_active,parts_json,created_at FROM listening_tests WHERE id=$1`, id)
	var (
		t       Test
		active  int
		pjson   string
		created int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &active, &pjson, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, notFound("test", id)
		}
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(pjson), &t.Parts); err != nil {
		return Test{}, fmt.Errorf("decode parts of test %q: %w", id, err)
	}
	t.IsActive = active != 0
	t.CreatedAt = time.UnixMilli(created)
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	var (
		where []string
		args  []any
	)
	if opts.ActiveOnly {
		where = append(where, "t.is_active=1")
	}
	if term := strings.TrimSpace(opts.Search); term != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
		where = append(where, fmt.Sprintf(`LOWER(t.title) LIKE $%d ESCAPE '\'`, len(args)))
	}
	q := `SELECT t.id,t.title,t.description,t.is_active,t.part_count,t.question_count,t.created_at,
		(SELECT COUNT(*) FROM listening_attempts a WHERE a.test_id=t.id)
		FROM listening_tests t`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY t.created_at DESC, t.id ASC` + s.limitClause(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TestSummary, 0)
	for rows.Next() {
		var (
			ts      TestSummary
			active  int
			created int64
		)
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.Description, &active, &ts.PartCount, &ts.QuestionCount, &created, &ts.AttemptCount); err != nil {
			return nil, err
		}
		ts.IsActive = active != 0
		ts.CreatedAt = time.UnixMilli(created)
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM listening_attempts WHERE test_id=$1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM listening_tests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("test", id)
	}
	return tx.Commit()
}

func (s *SQLStore) OpenAttempt(ctx context.Context, a Attempt) (Attempt, bool, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM listening_tests WHERE id=$1`, a.TestID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, false, notFound("test", a.TestID)
		}
		return Attempt{}, false, err
	}

	answers, _ := json.Marshal(nonNilAnswers(a.Answers))
	flags, _ := json.Marshal(a.PartAudioPlayed)
	// The partial unique index on open attempts turns a concurrent
	// duplicate start into a no-op; the re-read returns the winner. If the
	// winner is submitted in between, the insert is tried again.
	for i := 0; i < openAttemptRetries; i++ {
		_, err := s.db.ExecContext(ctx, `INSERT INTO listening_attempts
			(id,test_id,user_id,answers_json,total_questions,started_at,time_remaining,current_part,part_audio_played_json)
			VALUES ($1,$2,$3,$4,0,$5,$6,$7,$8)
			ON CONFLICT DO NOTHING`,
			a.ID, a.TestID, a.UserID, string(answers), a.StartedAt.UnixMilli(), a.TimeRemaining, a.CurrentPart, string(flags))
		if err != nil {
			return Attempt{}, false, err
		}
		if s.beforeReread != nil {
			s.beforeReread()
		}

		row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM listening_attempts
			WHERE test_id=$1 AND user_id=$2 AND submitted_at IS NULL`, a.TestID, a.UserID)
		got, err := scanAttempt(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Attempt{}, false, err
		}
		return got, got.ID == a.ID, nil
	}
	return Attempt{}, false, fmt.Errorf("open attempt on test %q: concurrent submissions, retries exhausted", a.TestID)
}

const attemptCols = `id,test_id,user_id,answers_json,correct_count,total_questions,band_score,started_at,submitted_at,time_remaining,current_part,part_audio_played_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (Attempt, error) {
	var (
		a         Attempt
		answers   string
		flags     string
		correct   sql.NullInt64
		band      sql.NullFloat64
		started   int64
		submitted sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.TestID, &a.UserID, &answers, &correct, &a.TotalQuestions, &band,
		&started, &submitted, &a.TimeRemaining, &a.CurrentPart, &flags); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil || a.Answers == nil {
		a.Answers = map[string]string{}
	}
	if err := json.Unmarshal([]byte(flags), &a.PartAudioPlayed); err != nil || a.PartAudioPlayed == nil {
		a.PartAudioPlayed = newAudioFlags()
	}
	a.StartedAt = time.UnixMilli(started)
	if correct.Valid {
		v := int(correct.Int64)
		a.CorrectCount = &v
	}
	if band.Valid {
		v := band.Float64
		a.BandScore = &v
	}
	if submitted.Valid {
		v := time.UnixMilli(submitted.Int64)
		a.SubmittedAt = &v
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM listening_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, notFound("attempt", id)
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var (
		where []string
		args  []any
	)
	if opts.TestID != "" {
		args = append(args, opts.TestID)
		where = append(where, fmt.Sprintf("test_id=$%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if opts.SubmittedOnly {
		where = append(where, "submitted_at IS NOT NULL")
	}
	q := `SELECT ` + attemptCols + ` FROM listening_attempts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY started_at DESC, id DESC` + s.limitClause(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateProgress(ctx context.Context, id string, u ProgressUpdate) (Attempt, error) {
	var answers any
	if u.Answers != nil {
		buf, err := json.Marshal(u.Answers)
		if err != nil {
			return Attempt{}, err
		}
		answers = string(buf)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE listening_attempts SET
		answers_json=COALESCE($1, answers_json),
		time_remaining=COALESCE($2, time_remaining),
		current_part=COALESCE($3, current_part)
		WHERE id=$4 AND submitted_at IS NULL`,
		answers, nullableInt(u.TimeRemaining), nullableInt(u.CurrentPart), id)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.checkOpenWrite(ctx, res, id); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, id)
}

func (s *SQLStore) MarkAudioPlayed(ctx context.Context, id string, part int) (Attempt, error) {
	for i := 0; i < audioCASRetries; i++ {
		var (
			prev      string
			submitted sql.NullInt64
		)
		err := s.db.QueryRowContext(ctx, `SELECT part_audio_played_json, submitted_at FROM listening_attempts WHERE id=$1`, id).
			Scan(&prev, &submitted)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Attempt{}, notFound("attempt", id)
			}
			return Attempt{}, err
		}
		if submitted.Valid {
			return Attempt{}, ErrAlreadySubmitted
		}
		flags := map[string]bool{}
		if err := json.Unmarshal([]byte(prev), &flags); err != nil || len(flags) == 0 {
			flags = newAudioFlags()
		}
		flags[partKey(part)] = true
		next, _ := json.Marshal(flags)

		res, err := s.db.ExecContext(ctx, `UPDATE listening_attempts SET part_audio_played_json=$1
			WHERE id=$2 AND submitted_at IS NULL AND part_audio_played_json=$3`, string(next), id, prev)
		if err != nil {
			return Attempt{}, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return s.GetAttempt(ctx, id)
		}
	}
	return Attempt{}, fmt.Errorf("mark audio played on attempt %q: concurrent updates, retries exhausted", id)
}

func (s *SQLStore) Finalize(ctx context.Context, id string, f Finalization) (Attempt, error) {
	buf, err := json.Marshal(nonNilAnswers(f.Answers))
	if err != nil {
		return Attempt{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE listening_attempts SET
		answers_json=$1, correct_count=$2, total_questions=$3, band_score=$4, submitted_at=$5, time_remaining=$6
		WHERE id=$7 AND submitted_at IS NULL`,
		string(buf), f.CorrectCount, f.TotalQuestions, f.BandScore, f.SubmittedAt.UnixMilli(), f.TimeRemaining, id)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.checkOpenWrite(ctx, res, id); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, id)
}

// checkOpenWrite explains a guarded UPDATE that touched no rows.
func (s *SQLStore) checkOpenWrite(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	a, err := s.GetAttempt(ctx, id)
	if err != nil {
		return err
	}
	if a.Submitted() {
		return ErrAlreadySubmitted
	}
	return fmt.Errorf("update attempt %q: no rows affected", id)
}

func (s *SQLStore) limitClause(limit, offset int) string {
	switch {
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case offset <= 0:
		return ""
	case s.driver == "postgres":
		return fmt.Sprintf(" OFFSET %d", offset)
	default:
		// sqlite only accepts OFFSET after a LIMIT
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNilAnswers(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
