package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// EnsureCandidate returns the candidate for telegramID, creating the row on
// first contact. An existing row is returned as-is; the handle is only written
// on insert.
func (s *PostgresStore) EnsureCandidate(ctx context.Context, telegramID int64, handle string) (Candidate, error) {
	c, err := s.CandidateByTelegramID(ctx, telegramID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Candidate{}, err
	}

	const insert = `
		INSERT INTO candidates (telegram_id, handle)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, telegram_id, handle, survey_completed, cases_completed, created_at, updated_at
	`
	if err := s.db.QueryRowContext(ctx, insert, telegramID, handle).
		Scan(&c.ID, &c.TelegramID, &c.Handle, &c.SurveyCompleted, &c.CasesCompleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Candidate{}, fmt.Errorf("insert candidate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CandidateByTelegramID(ctx context.Context, telegramID int64) (Candidate, error) {
	const query = `
		SELECT id, telegram_id, handle, survey_completed, cases_completed, created_at, updated_at
		FROM candidates WHERE telegram_id = $1
	`
	var c Candidate
	err := s.db.QueryRowContext(ctx, query, telegramID).
		Scan(&c.ID, &c.TelegramID, &c.Handle, &c.SurveyCompleted, &c.CasesCompleted, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Candidate{}, ErrNotFound
	}
	if err != nil {
		return Candidate{}, fmt.Errorf("lookup candidate: %w", err)
	}
	return c, nil
}

// SaveCandidate persists the mutable fields (handle, completion flags).
func (s *PostgresStore) SaveCandidate(ctx context.Context, c Candidate) error {
	const update = `
		UPDATE candidates
		SET handle = $2, survey_completed = $3, cases_completed = $4, updated_at = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, update, c.ID, c.Handle, c.SurveyCompleted, c.CasesCompleted)
	if err != nil {
		return fmt.Errorf("save candidate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetCandidate clears both completion flags. Debug/operational path only.
func (s *PostgresStore) ResetCandidate(ctx context.Context, telegramID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE candidates SET survey_completed = FALSE, cases_completed = FALSE, updated_at = NOW()
		WHERE telegram_id = $1
	`, telegramID)
	if err != nil {
		return fmt.Errorf("reset candidate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertSurveyAnswers bulk-persists the survey stage dump in one transaction.
func (s *PostgresStore) InsertSurveyAnswers(ctx context.Context, candidateID int64, answers map[string]string) error {
	if len(answers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin survey answers tx: %w", err)
	}
	for question, answer := range answers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO survey_answers (candidate_id, question, answer) VALUES ($1, $2, $3)
		`, candidateID, question, answer); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert survey answer %s: %w", question, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit survey answers: %w", err)
	}
	return nil
}

// InsertCaseAnswers bulk-persists the case stage dump in one transaction.
func (s *PostgresStore) InsertCaseAnswers(ctx context.Context, candidateID int64, answers map[int]string) error {
	if len(answers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin case answers tx: %w", err)
	}
	for idx, answer := range answers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO case_answers (candidate_id, case_index, answer) VALUES ($1, $2, $3)
		`, candidateID, idx, answer); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert case answer %d: %w", idx, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit case answers: %w", err)
	}
	return nil
}

func (s *PostgresStore) SurveyAnswers(ctx context.Context, candidateID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer FROM survey_answers WHERE candidate_id = $1 ORDER BY id
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("query survey answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var question, answer string
		if err := rows.Scan(&question, &answer); err != nil {
			return nil, fmt.Errorf("scan survey answer: %w", err)
		}
		answers[question] = answer
	}
	return answers, rows.Err()
}

func (s *PostgresStore) CaseAnswers(ctx context.Context, candidateID int64) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_index, answer FROM case_answers WHERE candidate_id = $1 ORDER BY case_index
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("query case answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[int]string)
	for rows.Next() {
		var idx int
		var answer string
		if err := rows.Scan(&idx, &answer); err != nil {
			return nil, fmt.Errorf("scan case answer: %w", err)
		}
		answers[idx] = answer
	}
	return answers, rows.Err()
}

// CreatePendingNotification appends a deferred staff delivery.
func (s *PostgresStore) CreatePendingNotification(ctx context.Context, telegramID int64, handle string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_notifications (telegram_id, handle) VALUES ($1, $2)
	`, telegramID, handle)
	if err != nil {
		return fmt.Errorf("insert pending notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnsentNotifications(ctx context.Context) ([]PendingNotification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_id, handle, created_at, sent
		FROM pending_notifications WHERE sent = FALSE ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query unsent notifications: %w", err)
	}
	defer rows.Close()

	var pending []PendingNotification
	for rows.Next() {
		var pn PendingNotification
		if err := rows.Scan(&pn.ID, &pn.TelegramID, &pn.Handle, &pn.CreatedAt, &pn.Sent); err != nil {
			return nil, fmt.Errorf("scan pending notification: %w", err)
		}
		pending = append(pending, pn)
	}
	return pending, rows.Err()
}

func (s *PostgresStore) MarkNotificationSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pending_notifications SET sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}
