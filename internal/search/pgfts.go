package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole bot is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across survey_answers and case_answers
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultSurvey {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'survey'::text AS type,
				's:' || sa.candidate_id || ':' || sa.question AS id,
				sa.candidate_id, c.telegram_id, c.handle,
				sa.question AS label,
				ts_headline('english', sa.answer, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(to_tsvector('english', sa.answer), %s) AS rank
			FROM survey_answers sa
			JOIN candidates c ON c.id = sa.candidate_id
			WHERE to_tsvector('english', sa.answer) @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultCase {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'case'::text AS type,
				'c:' || ca.candidate_id || ':' || ca.case_index AS id,
				ca.candidate_id, c.telegram_id, c.handle,
				'CASE #' || (ca.case_index + 1) AS label,
				ts_headline('english', ca.answer, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(to_tsvector('english', ca.answer), %s) AS rank
			FROM case_answers ca
			JOIN candidates c ON c.id = ca.candidate_id
			WHERE to_tsvector('english', ca.answer) @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, candidate_id, telegram_id, handle, label, snippet
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.CandidateID, &r.TelegramID, &r.Handle, &r.Label, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every persisted answer for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]AnswerRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT 'survey', 's:' || sa.candidate_id || ':' || sa.question,
			sa.candidate_id, c.telegram_id, c.handle, sa.question, sa.answer
		FROM survey_answers sa
		JOIN candidates c ON c.id = sa.candidate_id
		UNION ALL
		SELECT 'case', 'c:' || ca.candidate_id || ':' || ca.case_index,
			ca.candidate_id, c.telegram_id, c.handle, 'CASE #' || (ca.case_index + 1), ca.answer
		FROM case_answers ca
		JOIN candidates c ON c.id = ca.candidate_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	records := make([]AnswerRecord, 0)
	for rows.Next() {
		var r AnswerRecord
		if err := rows.Scan(&r.Type, &r.ID, &r.CandidateID, &r.TelegramID, &r.Handle, &r.Label, &r.Answer); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return records, nil
}
