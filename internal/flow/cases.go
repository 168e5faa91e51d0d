package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"intakebot/internal/catalog"
	"intakebot/internal/metrics"
	"intakebot/internal/report"
	"intakebot/internal/session"
	"intakebot/internal/store"
)

// CaseFlow drives the second stage. It requires a completed survey to start
// and, on completion or early cancellation, persists the case answers, builds
// the combined report and fans it out to candidate, admin and staff group.
type CaseFlow struct {
	sessions  session.Store
	repo      Repository
	transport Transport
	notifier  Notifier
	builder   Builder
	indexer   Indexer
	archive   Archiver
	cat       *catalog.Catalog

	adminID int64
	// whether the candidate also receives the partial report on early
	// cancellation; the admin and group always do
	notifyCandidateOnCancel bool

	now func() time.Time
}

func NewCaseFlow(
	sessions session.Store,
	repo Repository,
	transport Transport,
	notifier Notifier,
	builder Builder,
	indexer Indexer,
	archive Archiver,
	cat *catalog.Catalog,
	adminID int64,
	notifyCandidateOnCancel bool,
) *CaseFlow {
	return &CaseFlow{
		sessions:                sessions,
		repo:                    repo,
		transport:               transport,
		notifier:                notifier,
		builder:                 builder,
		indexer:                 indexer,
		archive:                 archive,
		cat:                     cat,
		adminID:                 adminID,
		notifyCandidateOnCancel: notifyCandidateOnCancel,
		now:                     time.Now,
	}
}

// Start begins the case stage or resumes an in-flight one. The candidate must
// have completed the survey; a chat id identifies the candidate because
// private Telegram chats share the user's id.
func (f *CaseFlow) Start(ctx context.Context, chatID int64) {
	sess, err := f.sessions.GetCase(ctx, chatID)
	if err != nil {
		log.Printf("cases: load session %d: %v", chatID, err)
		return
	}
	if sess != nil {
		f.showCase(ctx, chatID, sess)
		return
	}

	cand, err := f.repo.CandidateByTelegramID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		say(ctx, f.transport, chatID, msgCasesRequireSurvey, MenuStart)
		return
	}
	if err != nil {
		log.Printf("cases: load candidate %d: %v", chatID, err)
		return
	}
	if !cand.SurveyCompleted {
		say(ctx, f.transport, chatID, msgCasesRequireSurvey, MenuStart)
		return
	}
	if cand.CasesCompleted {
		say(ctx, f.transport, chatID, msgCasesAlreadyDone, MenuRemove)
		return
	}

	sess = session.NewCase(session.UserRef{ID: cand.TelegramID, Handle: cand.Handle})
	if err := f.sessions.PutCase(ctx, chatID, sess); err != nil {
		log.Printf("cases: store session %d: %v", chatID, err)
		return
	}
	metrics.StageStarted.WithLabelValues("case").Inc()
	f.showCase(ctx, chatID, sess)
}

// Answer records text at the current case and advances. A missing session is
// silently ignored.
func (f *CaseFlow) Answer(ctx context.Context, chatID int64, text string) {
	sess, err := f.sessions.GetCase(ctx, chatID)
	if err != nil {
		log.Printf("cases: load session %d: %v", chatID, err)
		return
	}
	if sess == nil {
		return
	}

	sess.Answer(text)

	if sess.Next(f.cat.CaseCount()) {
		if err := f.sessions.PutCase(ctx, chatID, sess); err != nil {
			log.Printf("cases: store session %d: %v", chatID, err)
		}
		f.showCase(ctx, chatID, sess)
		return
	}
	f.finish(ctx, chatID, sess, false)
}

// Cancel ends the case stage early; partial answers are persisted and the
// report still ships to staff, flagged as an early termination.
func (f *CaseFlow) Cancel(ctx context.Context, chatID int64) {
	sess, err := f.sessions.GetCase(ctx, chatID)
	if err != nil {
		log.Printf("cases: load session %d: %v", chatID, err)
		return
	}
	if sess == nil {
		return
	}
	f.finish(ctx, chatID, sess, true)
}

// Active reports whether a case session exists for the chat.
func (f *CaseFlow) Active(ctx context.Context, chatID int64) bool {
	sess, err := f.sessions.GetCase(ctx, chatID)
	if err != nil {
		log.Printf("cases: load session %d: %v", chatID, err)
		return false
	}
	return sess != nil
}

// Reset drops any in-flight session. Debug path, used by the admin reset.
func (f *CaseFlow) Reset(ctx context.Context, chatID int64) {
	if err := f.sessions.Evict(ctx, chatID, session.KindCase); err != nil {
		log.Printf("cases: reset session %d: %v", chatID, err)
	}
}

// showCase presents the current case item: the illustration, then the
// description and tasks.
func (f *CaseFlow) showCase(ctx context.Context, chatID int64, sess *session.Case) {
	cs, ok := f.cat.CaseByIndex(sess.Cursor)
	if !ok {
		return
	}
	if err := f.transport.SendImage(ctx, chatID, cs.Image, MenuCancel); err != nil {
		log.Printf("cases: send image to %d: %v", chatID, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CASE #%d\n%s", cs.ID, cs.Description)
	for _, task := range cs.Tasks {
		b.WriteString("\n• ")
		b.WriteString(task)
	}
	say(ctx, f.transport, chatID, b.String(), MenuNone)
}

// finish runs the completion sequence: persist answers, flip the flag,
// discard the session, build the combined report and fan it out. Persistence
// always precedes best-effort delivery. A missing candidate here is a
// consistency violation: it is logged and the finish is aborted.
func (f *CaseFlow) finish(ctx context.Context, chatID int64, sess *session.Case, early bool) {
	cand, err := f.repo.CandidateByTelegramID(ctx, sess.User.ID)
	if err != nil {
		log.Printf("cases: finish %d: candidate %d missing at finish: %v", chatID, sess.User.ID, err)
		return
	}

	dump := sess.Dump()
	if err := f.repo.InsertCaseAnswers(ctx, cand.ID, dump); err != nil {
		log.Printf("cases: finish %d: persist answers: %v", chatID, err)
		return
	}
	cand.CasesCompleted = true
	if err := f.repo.SaveCandidate(ctx, cand); err != nil {
		log.Printf("cases: finish %d: save candidate: %v", chatID, err)
		return
	}
	if err := f.sessions.Evict(ctx, chatID, session.KindCase); err != nil {
		log.Printf("cases: evict session %d: %v", chatID, err)
	}

	outcome := "completed"
	if early {
		outcome = "cancelled"
	}
	metrics.StageFinished.WithLabelValues("case", outcome).Inc()

	surveyAns, err := f.repo.SurveyAnswers(ctx, cand.ID)
	if err != nil {
		log.Printf("cases: finish %d: gather survey answers: %v", chatID, err)
		surveyAns = map[string]string{}
	}

	in := report.Input{
		ChatID:        chatID,
		Handle:        cand.Handle,
		SurveyAnswers: surveyAns,
		CaseAnswers:   dump,
		CompletedAt:   f.now(),
	}

	if early {
		say(ctx, f.transport, chatID, msgCasesCancelled, MenuRemove)
	} else {
		say(ctx, f.transport, chatID, msgCasesComplete, MenuRemove)
		say(ctx, f.transport, chatID, msgCasesInfo, MenuInfo)
	}

	file, err := f.builder.Build(ctx, in)
	if err != nil {
		log.Printf("cases: finish %d: build report: %v", chatID, err)
	} else {
		if f.archive != nil {
			f.archive.StoreAsync(file)
		}
		if f.adminID != 0 {
			caption := "📥 Candidate answers " + whoTag(cand.Handle, chatID)
			if early {
				caption = "📥 Early-terminated intake " + whoTag(cand.Handle, chatID)
			}
			if err := f.transport.SendFile(ctx, f.adminID, file, caption); err != nil {
				log.Printf("cases: finish %d: send report to admin: %v", chatID, err)
			}
		}
		if early && f.notifyCandidateOnCancel {
			if err := f.transport.SendFile(ctx, chatID, file, "Your answers"); err != nil {
				log.Printf("cases: finish %d: send report to candidate: %v", chatID, err)
			}
		}
	}

	if err := f.notifier.NotifyOrDefer(ctx, in); err != nil {
		log.Printf("cases: finish %d: group notification: %v", chatID, err)
	}

	if f.indexer != nil {
		f.indexer.IndexIntake(cand.ID, cand.TelegramID, cand.Handle, surveyAns, dump)
	}
}

func whoTag(handle string, chatID int64) string {
	if handle != "" {
		return "@" + handle
	}
	return fmt.Sprintf("#%d", chatID)
}
