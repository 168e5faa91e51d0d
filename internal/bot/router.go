package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"intakebot/internal/flow"
	"intakebot/internal/metrics"
	"intakebot/internal/report"
	"intakebot/internal/search"
)

// Callback payloads carried by the inline keyboard buttons.
const (
	CallbackStartSurvey = "START_SURVEY"
	CallbackStartCases  = "START_CASES"
)

// SurveyStage is the survey flow surface the router drives.
type SurveyStage interface {
	Start(ctx context.Context, chatID, userID int64, handle string)
	Answer(ctx context.Context, chatID int64, text string)
	Cancel(ctx context.Context, chatID int64)
	Active(ctx context.Context, chatID int64) bool
	Reset(ctx context.Context, chatID int64)
}

// CaseStage is the case flow surface the router drives.
type CaseStage interface {
	Start(ctx context.Context, chatID int64)
	Answer(ctx context.Context, chatID int64, text string)
	Cancel(ctx context.Context, chatID int64)
	Active(ctx context.Context, chatID int64) bool
	Reset(ctx context.Context, chatID int64)
}

// ReportRebuilder regenerates an intake document from persisted answers.
type ReportRebuilder interface {
	Rebuild(ctx context.Context, telegramID int64) (report.File, error)
}

// AnswerSearcher serves the admin /find command.
type AnswerSearcher interface {
	Search(q search.Query) search.Response
}

// CandidateResetter wipes a candidate's persisted intake.
type CandidateResetter interface {
	ResetCandidate(ctx context.Context, telegramID int64) error
}

// Router decides what each incoming update means: an admin command, a cancel
// press, an answer for the active stage, or noise.
type Router struct {
	transport flow.Transport
	survey    SurveyStage
	cases     CaseStage
	reports   ReportRebuilder
	searcher  AnswerSearcher
	resetter  CandidateResetter
	adminID   int64
}

func NewRouter(
	transport flow.Transport,
	survey SurveyStage,
	cases CaseStage,
	reports ReportRebuilder,
	searcher AnswerSearcher,
	resetter CandidateResetter,
	adminID int64,
) *Router {
	return &Router{
		transport: transport,
		survey:    survey,
		cases:     cases,
		reports:   reports,
		searcher:  searcher,
		resetter:  resetter,
		adminID:   adminID,
	}
}

// HandleMessage routes a plain text message.
func (r *Router) HandleMessage(ctx context.Context, chatID, userID int64, handle, text string) {
	metrics.UpdatesTotal.WithLabelValues("message").Inc()

	if chatID == r.adminID && strings.HasPrefix(text, "/") && r.handleAdminCommand(ctx, text) {
		return
	}

	switch {
	case text == "/start":
		r.say(ctx, chatID, flow.WelcomeText, flow.MenuStart)
	case text == flow.CancelLabel:
		switch {
		case r.survey.Active(ctx, chatID):
			r.survey.Cancel(ctx, chatID)
		case r.cases.Active(ctx, chatID):
			r.cases.Cancel(ctx, chatID)
		default:
			r.say(ctx, chatID, flow.UnknownText, flow.MenuStart)
		}
	case r.survey.Active(ctx, chatID):
		r.survey.Answer(ctx, chatID, text)
	case r.cases.Active(ctx, chatID):
		r.cases.Answer(ctx, chatID, text)
	default:
		r.say(ctx, chatID, flow.UnknownText, flow.MenuStart)
	}
}

// HandleCallback routes an inline keyboard press.
func (r *Router) HandleCallback(ctx context.Context, chatID, userID int64, handle, data string) {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()

	switch data {
	case CallbackStartSurvey:
		r.survey.Start(ctx, chatID, userID, handle)
	case CallbackStartCases:
		r.cases.Start(ctx, chatID)
	default:
		log.Printf("router: unknown callback %q from %d", data, chatID)
	}
}

// handleAdminCommand reports whether the text was a recognized admin command.
// Unrecognized slash commands fall through to the normal routing so the admin
// can still take the intake themselves.
func (r *Router) handleAdminCommand(ctx context.Context, text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "/reset":
		if len(fields) != 2 {
			r.say(ctx, r.adminID, "Usage: /reset <telegram id>", flow.MenuNone)
			return true
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			r.say(ctx, r.adminID, "Usage: /reset <telegram id>", flow.MenuNone)
			return true
		}
		r.survey.Reset(ctx, id)
		r.cases.Reset(ctx, id)
		if err := r.resetter.ResetCandidate(ctx, id); err != nil {
			r.say(ctx, r.adminID, fmt.Sprintf("Reset %d failed: %v", id, err), flow.MenuNone)
			return true
		}
		r.say(ctx, r.adminID, fmt.Sprintf("Candidate %d reset.", id), flow.MenuNone)
		return true

	case "/report":
		if len(fields) != 2 {
			r.say(ctx, r.adminID, "Usage: /report <telegram id>", flow.MenuNone)
			return true
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			r.say(ctx, r.adminID, "Usage: /report <telegram id>", flow.MenuNone)
			return true
		}
		file, err := r.reports.Rebuild(ctx, id)
		if err != nil {
			r.say(ctx, r.adminID, fmt.Sprintf("Report for %d failed: %v", id, err), flow.MenuNone)
			return true
		}
		if err := r.transport.SendFile(ctx, r.adminID, file, fmt.Sprintf("Rebuilt report for %d", id)); err != nil {
			log.Printf("router: send rebuilt report: %v", err)
		}
		return true

	case "/find":
		if len(fields) < 2 {
			r.say(ctx, r.adminID, "Usage: /find <text>", flow.MenuNone)
			return true
		}
		if r.searcher == nil {
			r.say(ctx, r.adminID, "Search is not configured.", flow.MenuNone)
			return true
		}
		resp := r.searcher.Search(search.Query{Text: strings.Join(fields[1:], " "), Limit: 10})
		r.say(ctx, r.adminID, formatFindResults(resp), flow.MenuNone)
		return true
	}

	return false
}

func (r *Router) say(ctx context.Context, chatID int64, text string, menu flow.Menu) {
	if err := r.transport.SendText(ctx, chatID, text, menu); err != nil {
		log.Printf("router: send to %d: %v", chatID, err)
	}
}

func formatFindResults(resp search.Response) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No answers match %q.", resp.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d answers match %q:\n", resp.Total, resp.Query)
	for i, res := range resp.Results {
		who := res.Handle
		if who == "" {
			who = strconv.FormatInt(res.TelegramID, 10)
		} else {
			who = "@" + who
		}
		fmt.Fprintf(&b, "%d. %s [%s] %s: %s\n", i+1, who, res.Type, res.Label, res.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}
