// Package search lets staff find candidates by the text of their answers.
// Meilisearch serves queries when reachable; PostgreSQL full-text search is
// the always-available fallback.
package search

// ResultType identifies which stage an answer came from.
type ResultType string

const (
	ResultSurvey ResultType = "survey"
	ResultCase   ResultType = "case"
)

// Result is a single matching answer returned to the caller.
type Result struct {
	Type        ResultType `json:"type"`
	ID          string     `json:"id"`
	CandidateID int64      `json:"candidateId"`
	TelegramID  int64      `json:"telegramId"`
	Handle      string     `json:"handle"`
	Label       string     `json:"label"`
	Snippet     string     `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = both stages
	Limit      int
	Offset     int
}

// Response is the envelope returned for a search.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over candidate answers.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// AnswerRecord is one indexed answer. ID is stable per candidate and
// question, so re-indexing an intake overwrites rather than duplicates.
type AnswerRecord struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	CandidateID int64  `json:"candidateId"`
	TelegramID  int64  `json:"telegramId"`
	Handle      string `json:"handle"`
	Label       string `json:"label"`
	Answer      string `json:"answer"`
}
