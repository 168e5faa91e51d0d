package store

import "time"

// Candidate is the durable record for a person going through the intake flow.
// The completion flags flip false→true exactly once in normal operation; only
// the admin reset path flips them back.
type Candidate struct {
	ID              int64
	TelegramID      int64
	Handle          string
	SurveyCompleted bool
	CasesCompleted  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SurveyAnswer is one free-text answer to one survey question. Rows are
// written in bulk when the survey stage finishes and never updated.
type SurveyAnswer struct {
	ID          int64
	CandidateID int64
	Question    string
	Answer      string
	CreatedAt   time.Time
}

// CaseAnswer is one free-text answer to one case item, keyed by the case's
// position in the catalog. Same append-only lifecycle as SurveyAnswer.
type CaseAnswer struct {
	ID          int64
	CandidateID int64
	CaseIndex   int
	Answer      string
	CreatedAt   time.Time
}

// PendingNotification records a staff delivery that fell outside the permitted
// window. Rows are append-only; sent flips to true once after a flush.
type PendingNotification struct {
	ID         int64
	TelegramID int64
	Handle     string
	CreatedAt  time.Time
	Sent       bool
}
