package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"intakebot/internal/metrics"
	"intakebot/internal/report"
	"intakebot/internal/store"
)

// SweepStore is the repository surface the scheduler needs.
type SweepStore interface {
	UnsentNotifications(ctx context.Context) ([]store.PendingNotification, error)
	MarkNotificationSent(ctx context.Context, id int64) error
	CandidateByTelegramID(ctx context.Context, telegramID int64) (store.Candidate, error)
	SurveyAnswers(ctx context.Context, candidateID int64) (map[string]string, error)
	CaseAnswers(ctx context.Context, candidateID int64) (map[int]string, error)
}

// Notifier is the delivery path the scheduler reuses. During a sweep the
// window is known open, so NotifyOrDefer always takes the immediate branch.
type Notifier interface {
	NotifyOrDefer(ctx context.Context, in report.Input) error
}

// Scheduler periodically flushes deferred notifications once the window is
// open. It shares no state with the chat-event handlers; it only touches
// pending_notifications and reads answer tables.
type Scheduler struct {
	store    SweepStore
	notifier Notifier
	window   Window
	interval time.Duration
	now      func() time.Time
}

func NewScheduler(st SweepStore, notifier Notifier, window Window, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		store:    st,
		notifier: notifier,
		window:   window,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on the configured period until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes all unsent deferred notifications. One item's failure never
// aborts the remaining items; failed items stay unsent for the next tick.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.window.Open(s.now()) {
		return
	}

	pending, err := s.store.UnsentNotifications(ctx)
	if err != nil {
		log.Printf("scheduler: load pending notifications: %v", err)
		return
	}

	for _, pn := range pending {
		if err := s.flush(ctx, pn); err != nil {
			metrics.SweepFailures.Inc()
			log.Printf("scheduler: flush pending id=%d: %v", pn.ID, err)
			continue
		}
		if err := s.store.MarkNotificationSent(ctx, pn.ID); err != nil {
			log.Printf("scheduler: mark sent id=%d: %v", pn.ID, err)
		}
	}
}

func (s *Scheduler) flush(ctx context.Context, pn store.PendingNotification) error {
	cand, err := s.store.CandidateByTelegramID(ctx, pn.TelegramID)
	if errors.Is(err, store.ErrNotFound) {
		// Poison-pill avoidance: never retry for a vanished candidate.
		log.Printf("scheduler: candidate %d gone, marking id=%d sent", pn.TelegramID, pn.ID)
		return nil
	}
	if err != nil {
		return err
	}

	surveyAns, err := s.store.SurveyAnswers(ctx, cand.ID)
	if err != nil {
		return err
	}
	caseAns, err := s.store.CaseAnswers(ctx, cand.ID)
	if err != nil {
		return err
	}

	return s.notifier.NotifyOrDefer(ctx, report.Input{
		ChatID:        pn.TelegramID,
		Handle:        cand.Handle,
		SurveyAnswers: surveyAns,
		CaseAnswers:   caseAns,
		CompletedAt:   pn.CreatedAt,
	})
}
