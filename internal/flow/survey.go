package flow

import (
	"context"
	"errors"
	"log"
	"time"

	"intakebot/internal/catalog"
	"intakebot/internal/metrics"
	"intakebot/internal/report"
	"intakebot/internal/session"
	"intakebot/internal/store"
)

// SurveyFlow drives the first stage. Per chat it moves through
// no-session → in-progress(index) → completed; completion and early
// cancellation both flip the candidate's survey flag and discard the session.
type SurveyFlow struct {
	sessions  session.Store
	repo      Repository
	transport Transport
	notifier  Notifier
	cat       *catalog.Catalog
	now       func() time.Time
}

func NewSurveyFlow(sessions session.Store, repo Repository, transport Transport, notifier Notifier, cat *catalog.Catalog) *SurveyFlow {
	return &SurveyFlow{
		sessions:  sessions,
		repo:      repo,
		transport: transport,
		notifier:  notifier,
		cat:       cat,
		now:       time.Now,
	}
}

// Start begins the survey or resumes an in-flight one. Starting twice without
// an intervening answer reissues the current prompt; it never resets state.
func (f *SurveyFlow) Start(ctx context.Context, chatID, userID int64, handle string) {
	sess, err := f.sessions.GetSurvey(ctx, chatID)
	if err != nil {
		log.Printf("survey: load session %d: %v", chatID, err)
		return
	}
	if sess != nil {
		f.askNext(ctx, chatID, sess)
		return
	}

	cand, err := f.repo.EnsureCandidate(ctx, userID, handle)
	if err != nil {
		log.Printf("survey: ensure candidate %d: %v", userID, err)
		return
	}
	if cand.SurveyCompleted {
		say(ctx, f.transport, chatID, msgSurveyAlreadyDone, MenuRemove)
		return
	}

	sess = session.NewSurvey(session.UserRef{ID: userID, Handle: handle})
	if err := f.sessions.PutSurvey(ctx, chatID, sess); err != nil {
		log.Printf("survey: store session %d: %v", chatID, err)
		return
	}
	metrics.StageStarted.WithLabelValues("survey").Inc()
	f.askNext(ctx, chatID, sess)
}

// Answer records text against the current question and advances. A missing
// session means a stale or duplicate event and is silently ignored.
func (f *SurveyFlow) Answer(ctx context.Context, chatID int64, text string) {
	sess, err := f.sessions.GetSurvey(ctx, chatID)
	if err != nil {
		log.Printf("survey: load session %d: %v", chatID, err)
		return
	}
	if sess == nil {
		return
	}

	if q, ok := f.cat.QuestionByIndex(sess.Cursor); ok {
		sess.Answer(q.Code, text)
	}

	if sess.Next(f.cat.SurveyCount()) {
		if err := f.sessions.PutSurvey(ctx, chatID, sess); err != nil {
			log.Printf("survey: store session %d: %v", chatID, err)
		}
		f.askNext(ctx, chatID, sess)
		return
	}
	f.finish(ctx, chatID, sess)
}

// Cancel ends the survey early: partial answers are persisted, the completion
// flag still flips (no re-entry), the candidate is acknowledged and the staff
// group is notified through the deferred path.
func (f *SurveyFlow) Cancel(ctx context.Context, chatID int64) {
	sess, err := f.sessions.GetSurvey(ctx, chatID)
	if err != nil {
		log.Printf("survey: load session %d: %v", chatID, err)
		return
	}
	if sess == nil {
		return
	}

	cand, err := f.repo.CandidateByTelegramID(ctx, sess.User.ID)
	if err != nil {
		log.Printf("survey: cancel %d: candidate missing at finish: %v", chatID, err)
		return
	}

	dump := sess.Dump()
	if err := f.repo.InsertSurveyAnswers(ctx, cand.ID, dump); err != nil {
		log.Printf("survey: cancel %d: persist partial answers: %v", chatID, err)
		return
	}
	cand.SurveyCompleted = true
	if err := f.repo.SaveCandidate(ctx, cand); err != nil {
		log.Printf("survey: cancel %d: save candidate: %v", chatID, err)
		return
	}
	if err := f.sessions.Evict(ctx, chatID, session.KindSurvey); err != nil {
		log.Printf("survey: evict session %d: %v", chatID, err)
	}
	metrics.StageFinished.WithLabelValues("survey", "cancelled").Inc()

	say(ctx, f.transport, chatID, msgSurveyCancelled, MenuRemove)

	if err := f.notifier.NotifyOrDefer(ctx, report.Input{
		ChatID:        chatID,
		Handle:        cand.Handle,
		SurveyAnswers: dump,
		CaseAnswers:   map[int]string{},
		CompletedAt:   f.now(),
	}); err != nil {
		log.Printf("survey: cancel %d: group notification: %v", chatID, err)
	}
}

// Active reports whether a survey session exists for the chat.
func (f *SurveyFlow) Active(ctx context.Context, chatID int64) bool {
	sess, err := f.sessions.GetSurvey(ctx, chatID)
	if err != nil {
		log.Printf("survey: load session %d: %v", chatID, err)
		return false
	}
	return sess != nil
}

// Reset drops any in-flight session. Debug path, used by the admin reset.
func (f *SurveyFlow) Reset(ctx context.Context, chatID int64) {
	if err := f.sessions.Evict(ctx, chatID, session.KindSurvey); err != nil {
		log.Printf("survey: reset session %d: %v", chatID, err)
	}
}

func (f *SurveyFlow) askNext(ctx context.Context, chatID int64, sess *session.Survey) {
	q, ok := f.cat.QuestionByIndex(sess.Cursor)
	if !ok {
		return
	}
	say(ctx, f.transport, chatID, q.Prompt, MenuCancel)
}

// finish bulk-persists the dump, flips the flag, discards the session and
// invites the candidate to the case stage.
func (f *SurveyFlow) finish(ctx context.Context, chatID int64, sess *session.Survey) {
	cand, err := f.repo.CandidateByTelegramID(ctx, sess.User.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("survey: finish %d: candidate %d missing, aborting finish", chatID, sess.User.ID)
		} else {
			log.Printf("survey: finish %d: %v", chatID, err)
		}
		return
	}

	if err := f.repo.InsertSurveyAnswers(ctx, cand.ID, sess.Dump()); err != nil {
		log.Printf("survey: finish %d: persist answers: %v", chatID, err)
		return
	}
	cand.SurveyCompleted = true
	if err := f.repo.SaveCandidate(ctx, cand); err != nil {
		log.Printf("survey: finish %d: save candidate: %v", chatID, err)
		return
	}
	if err := f.sessions.Evict(ctx, chatID, session.KindSurvey); err != nil {
		log.Printf("survey: evict session %d: %v", chatID, err)
	}
	metrics.StageFinished.WithLabelValues("survey", "completed").Inc()

	say(ctx, f.transport, chatID, msgSurveyComplete, MenuBeginCases)
}
