// Package flow implements the two-stage conversational state machines: the
// survey stage and the case stage. Flows own the session lifecycle and the
// completion sequencing (persist, render, deliver); transport, persistence
// and rendering are consumed through collaborator interfaces.
package flow

import (
	"context"
	"log"

	"intakebot/internal/report"
	"intakebot/internal/store"
)

// Menu selects which keyboard accompanies an outbound message. Building the
// actual keyboard is the transport's concern.
type Menu int

const (
	MenuNone Menu = iota
	MenuStart
	MenuBeginCases
	MenuCancel
	MenuRemove
	MenuInfo
)

// Transport delivers messages to chats. All sends are best-effort: callers
// log failures and never let them break the conversational state machine.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, menu Menu) error
	SendImage(ctx context.Context, chatID int64, imageRef string, menu Menu) error
	SendFile(ctx context.Context, chatID int64, f report.File, caption string) error
}

// Repository is the durable storage surface the flows need.
type Repository interface {
	EnsureCandidate(ctx context.Context, telegramID int64, handle string) (store.Candidate, error)
	CandidateByTelegramID(ctx context.Context, telegramID int64) (store.Candidate, error)
	SaveCandidate(ctx context.Context, c store.Candidate) error
	InsertSurveyAnswers(ctx context.Context, candidateID int64, answers map[string]string) error
	InsertCaseAnswers(ctx context.Context, candidateID int64, answers map[int]string) error
	SurveyAnswers(ctx context.Context, candidateID int64) (map[string]string, error)
	CaseAnswers(ctx context.Context, candidateID int64) (map[int]string, error)
	ResetCandidate(ctx context.Context, telegramID int64) error
}

// Builder renders a report from gathered answers.
type Builder interface {
	Build(ctx context.Context, in report.Input) (report.File, error)
}

// Notifier routes a finished intake to the staff group, immediately or
// deferred.
type Notifier interface {
	NotifyOrDefer(ctx context.Context, in report.Input) error
}

// Indexer pushes a finished intake into the answer search index.
// Implementations are fire-and-forget.
type Indexer interface {
	IndexIntake(candidateID, telegramID int64, handle string, surveyAns map[string]string, caseAns map[int]string)
}

// Archiver keeps a copy of each rendered report in long-term storage.
// Implementations are fire-and-forget.
type Archiver interface {
	StoreAsync(f report.File)
}

// say sends text and swallows the error; delivery failures never propagate
// into flow control.
func say(ctx context.Context, t Transport, chatID int64, text string, menu Menu) {
	if err := t.SendText(ctx, chatID, text, menu); err != nil {
		log.Printf("flow: send to %d: %v", chatID, err)
	}
}
