package flow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"intakebot/internal/catalog"
	"intakebot/internal/report"
	"intakebot/internal/session"
	"intakebot/internal/store"
)

type sentText struct {
	chatID int64
	text   string
	menu   Menu
}

type sentFile struct {
	chatID  int64
	file    report.File
	caption string
}

type fakeTransport struct {
	texts  []sentText
	images []sentText
	files  []sentFile
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, menu Menu) error {
	f.texts = append(f.texts, sentText{chatID: chatID, text: text, menu: menu})
	return nil
}

func (f *fakeTransport) SendImage(_ context.Context, chatID int64, imageRef string, menu Menu) error {
	f.images = append(f.images, sentText{chatID: chatID, text: imageRef, menu: menu})
	return nil
}

func (f *fakeTransport) SendFile(_ context.Context, chatID int64, file report.File, caption string) error {
	f.files = append(f.files, sentFile{chatID: chatID, file: file, caption: caption})
	return nil
}

func (f *fakeTransport) lastText(t *testing.T) sentText {
	t.Helper()
	if len(f.texts) == 0 {
		t.Fatal("no text was sent")
	}
	return f.texts[len(f.texts)-1]
}

// fakeRepo is an in-memory Repository. Answer inserts append to a log so
// tests can assert one row per answered question.
type fakeRepo struct {
	nextID     int64
	candidates map[int64]store.Candidate
	surveyRows map[int64]map[string]string
	caseRows   map[int64]map[int]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:     1,
		candidates: make(map[int64]store.Candidate),
		surveyRows: make(map[int64]map[string]string),
		caseRows:   make(map[int64]map[int]string),
	}
}

func (r *fakeRepo) EnsureCandidate(_ context.Context, telegramID int64, handle string) (store.Candidate, error) {
	if c, ok := r.candidates[telegramID]; ok {
		return c, nil
	}
	c := store.Candidate{ID: r.nextID, TelegramID: telegramID, Handle: handle}
	r.nextID++
	r.candidates[telegramID] = c
	return c, nil
}

func (r *fakeRepo) CandidateByTelegramID(_ context.Context, telegramID int64) (store.Candidate, error) {
	c, ok := r.candidates[telegramID]
	if !ok {
		return store.Candidate{}, store.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) SaveCandidate(_ context.Context, c store.Candidate) error {
	r.candidates[c.TelegramID] = c
	return nil
}

func (r *fakeRepo) InsertSurveyAnswers(_ context.Context, candidateID int64, answers map[string]string) error {
	rows := r.surveyRows[candidateID]
	if rows == nil {
		rows = make(map[string]string)
		r.surveyRows[candidateID] = rows
	}
	for k, v := range answers {
		rows[k] = v
	}
	return nil
}

func (r *fakeRepo) InsertCaseAnswers(_ context.Context, candidateID int64, answers map[int]string) error {
	rows := r.caseRows[candidateID]
	if rows == nil {
		rows = make(map[int]string)
		r.caseRows[candidateID] = rows
	}
	for k, v := range answers {
		rows[k] = v
	}
	return nil
}

func (r *fakeRepo) SurveyAnswers(_ context.Context, candidateID int64) (map[string]string, error) {
	return r.surveyRows[candidateID], nil
}

func (r *fakeRepo) CaseAnswers(_ context.Context, candidateID int64) (map[int]string, error) {
	return r.caseRows[candidateID], nil
}

func (r *fakeRepo) ResetCandidate(_ context.Context, telegramID int64) error {
	c, ok := r.candidates[telegramID]
	if !ok {
		return store.ErrNotFound
	}
	delete(r.surveyRows, c.ID)
	delete(r.caseRows, c.ID)
	delete(r.candidates, telegramID)
	return nil
}

type fakeNotifier struct {
	inputs []report.Input
}

func (f *fakeNotifier) NotifyOrDefer(_ context.Context, in report.Input) error {
	f.inputs = append(f.inputs, in)
	return nil
}

type fakeBuilder struct {
	builds int
}

func (f *fakeBuilder) Build(_ context.Context, in report.Input) (report.File, error) {
	f.builds++
	return report.File{
		Data:     []byte("pdf"),
		Filename: fmt.Sprintf("intake_%d.pdf", in.ChatID),
		MimeType: "application/pdf",
	}, nil
}

type indexedIntake struct {
	candidateID int64
	telegramID  int64
	handle      string
}

type fakeIndexer struct {
	indexed []indexedIntake
}

func (f *fakeIndexer) IndexIntake(candidateID, telegramID int64, handle string, _ map[string]string, _ map[int]string) {
	f.indexed = append(f.indexed, indexedIntake{candidateID: candidateID, telegramID: telegramID, handle: handle})
}

type fakeArchiver struct {
	stored []report.File
}

func (f *fakeArchiver) StoreAsync(file report.File) {
	f.stored = append(f.stored, file)
}

type fixture struct {
	cat       *catalog.Catalog
	sessions  session.Store
	repo      *fakeRepo
	transport *fakeTransport
	notifier  *fakeNotifier
	builder   *fakeBuilder
	indexer   *fakeIndexer
	archiver  *fakeArchiver
	survey    *SurveyFlow
	cases     *CaseFlow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	f := &fixture{
		cat:       cat,
		sessions:  session.NewMemoryStore(),
		repo:      newFakeRepo(),
		transport: &fakeTransport{},
		notifier:  &fakeNotifier{},
		builder:   &fakeBuilder{},
		indexer:   &fakeIndexer{},
		archiver:  &fakeArchiver{},
	}
	f.survey = NewSurveyFlow(f.sessions, f.repo, f.transport, f.notifier, cat)
	f.survey.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	f.cases = NewCaseFlow(f.sessions, f.repo, f.transport, f.notifier, f.builder, f.indexer, f.archiver, cat, 900, false)
	f.cases.now = f.survey.now
	return f
}

func (f *fixture) completeSurvey(t *testing.T, chatID int64, handle string) {
	t.Helper()
	ctx := context.Background()
	f.survey.Start(ctx, chatID, chatID, handle)
	for i := 0; i < f.cat.SurveyCount(); i++ {
		f.survey.Answer(ctx, chatID, fmt.Sprintf("survey answer %d", i))
	}
}

func TestSurveyStartAsksFirstQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.survey.Start(ctx, 42, 42, "alice")

	q, _ := f.cat.QuestionByIndex(0)
	last := f.transport.lastText(t)
	if last.text != q.Prompt {
		t.Errorf("first prompt = %q, want %q", last.text, q.Prompt)
	}
	if last.menu != MenuCancel {
		t.Errorf("prompt menu = %v, want MenuCancel", last.menu)
	}
	if !f.survey.Active(ctx, 42) {
		t.Error("survey session should be active after Start")
	}
}

func TestSurveyStartResumesWithoutReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.survey.Start(ctx, 42, 42, "alice")
	f.survey.Answer(ctx, 42, "Alice Liddell")
	f.survey.Answer(ctx, 42, "30")

	// restart mid-survey: must reissue question 3, not question 1
	f.survey.Start(ctx, 42, 42, "alice")

	q, _ := f.cat.QuestionByIndex(2)
	last := f.transport.lastText(t)
	if last.text != q.Prompt {
		t.Errorf("resumed prompt = %q, want %q", last.text, q.Prompt)
	}

	sess, err := f.sessions.GetSurvey(ctx, 42)
	if err != nil || sess == nil {
		t.Fatalf("session lost on resume: %v", err)
	}
	if len(sess.Answers) != 2 {
		t.Errorf("resume must keep recorded answers, got %d", len(sess.Answers))
	}
}

func TestSurveyAnswerWithoutSessionIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.survey.Answer(ctx, 42, "stray text")

	if len(f.transport.texts) != 0 {
		t.Error("stray answer must not produce a reply")
	}
	if len(f.repo.surveyRows) != 0 {
		t.Error("stray answer must not persist anything")
	}
}

func TestSurveyCompletionPersistsOneRowPerQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")

	cand, err := f.repo.CandidateByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("candidate missing after survey: %v", err)
	}
	if !cand.SurveyCompleted {
		t.Error("survey flag must flip on completion")
	}
	rows := f.repo.surveyRows[cand.ID]
	if len(rows) != f.cat.SurveyCount() {
		t.Errorf("persisted %d answer rows, want %d", len(rows), f.cat.SurveyCount())
	}
	for _, q := range f.cat.SurveyQuestions() {
		if _, ok := rows[q.Code]; !ok {
			t.Errorf("no row for question %s", q.Code)
		}
	}
	if f.survey.Active(ctx, 42) {
		t.Error("session must be discarded after completion")
	}
	last := f.transport.lastText(t)
	if last.menu != MenuBeginCases {
		t.Errorf("completion message menu = %v, want MenuBeginCases", last.menu)
	}
}

func TestSurveyCannotBeRetaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	before := len(f.repo.surveyRows[1])

	f.survey.Start(ctx, 42, 42, "alice")

	last := f.transport.lastText(t)
	if last.text != msgSurveyAlreadyDone {
		t.Errorf("restart after completion replied %q, want already-done notice", last.text)
	}
	if f.survey.Active(ctx, 42) {
		t.Error("no new session may be created after completion")
	}
	if len(f.repo.surveyRows[1]) != before {
		t.Error("restart must not touch persisted answers")
	}
}

func TestSurveyCancelPersistsPartialAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.survey.Start(ctx, 42, 42, "alice")
	f.survey.Answer(ctx, 42, "Alice Liddell")
	f.survey.Answer(ctx, 42, "30")
	f.survey.Cancel(ctx, 42)

	cand, err := f.repo.CandidateByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("candidate missing after cancel: %v", err)
	}
	if !cand.SurveyCompleted {
		t.Error("cancel must still flip the survey flag")
	}
	if len(f.repo.surveyRows[cand.ID]) != 2 {
		t.Errorf("partial answers not persisted, got %d rows", len(f.repo.surveyRows[cand.ID]))
	}
	if f.survey.Active(ctx, 42) {
		t.Error("session must be discarded on cancel")
	}
	if len(f.notifier.inputs) != 1 {
		t.Fatalf("staff notification missing, got %d", len(f.notifier.inputs))
	}
	if len(f.notifier.inputs[0].CaseAnswers) != 0 {
		t.Error("survey cancel notification must carry no case answers")
	}
}

func TestCasesRequireCompletedSurvey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cases.Start(ctx, 42)

	last := f.transport.lastText(t)
	if last.text != msgCasesRequireSurvey {
		t.Errorf("replied %q, want survey-first notice", last.text)
	}
	if f.cases.Active(ctx, 42) {
		t.Error("no case session may start before the survey")
	}
}

func TestCasesStartPresentsFirstCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)

	cs, _ := f.cat.CaseByIndex(0)
	if len(f.transport.images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(f.transport.images))
	}
	if f.transport.images[0].text != cs.Image {
		t.Errorf("sent image %q, want %q", f.transport.images[0].text, cs.Image)
	}
	last := f.transport.lastText(t)
	if !strings.Contains(last.text, cs.Description) {
		t.Errorf("case text %q missing description", last.text)
	}
	for _, task := range cs.Tasks {
		if !strings.Contains(last.text, task) {
			t.Errorf("case text missing task %q", task)
		}
	}
}

func TestCaseCompletionFullSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)
	for i := 0; i < f.cat.CaseCount(); i++ {
		f.cases.Answer(ctx, 42, fmt.Sprintf("case answer %d", i))
	}

	cand, err := f.repo.CandidateByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("candidate missing after cases: %v", err)
	}
	if !cand.CasesCompleted {
		t.Error("cases flag must flip on completion")
	}
	rows := f.repo.caseRows[cand.ID]
	if len(rows) != f.cat.CaseCount() {
		t.Errorf("persisted %d case rows, want %d", len(rows), f.cat.CaseCount())
	}
	if f.cases.Active(ctx, 42) {
		t.Error("session must be discarded after completion")
	}

	if f.builder.builds != 1 {
		t.Errorf("report built %d times, want 1", f.builder.builds)
	}
	if len(f.transport.files) != 1 {
		t.Fatalf("expected the report forwarded once, got %d", len(f.transport.files))
	}
	if f.transport.files[0].chatID != 900 {
		t.Errorf("report went to %d, want admin chat 900", f.transport.files[0].chatID)
	}
	if !strings.Contains(f.transport.files[0].caption, "@alice") {
		t.Errorf("admin caption %q missing handle", f.transport.files[0].caption)
	}
	if len(f.archiver.stored) != 1 {
		t.Errorf("report archived %d times, want 1", len(f.archiver.stored))
	}

	if len(f.notifier.inputs) != 1 {
		t.Fatalf("staff notification missing, got %d", len(f.notifier.inputs))
	}
	in := f.notifier.inputs[0]
	if in.ChatID != 42 || in.Handle != "alice" {
		t.Errorf("unexpected notification input: %+v", in)
	}
	if len(in.SurveyAnswers) != f.cat.SurveyCount() || len(in.CaseAnswers) != f.cat.CaseCount() {
		t.Error("notification must carry the full answer set")
	}

	if len(f.indexer.indexed) != 1 || f.indexer.indexed[0].telegramID != 42 {
		t.Errorf("intake not indexed: %+v", f.indexer.indexed)
	}

	last := f.transport.lastText(t)
	if last.text != msgCasesInfo || last.menu != MenuInfo {
		t.Errorf("final message = %+v, want info invitation", last)
	}
}

func TestCaseCancelShipsPartialReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)
	f.cases.Answer(ctx, 42, "only the first one")
	f.cases.Cancel(ctx, 42)

	cand, _ := f.repo.CandidateByTelegramID(ctx, 42)
	if !cand.CasesCompleted {
		t.Error("cancel must still flip the cases flag")
	}
	if len(f.repo.caseRows[cand.ID]) != 1 {
		t.Errorf("partial case answers not persisted, got %d", len(f.repo.caseRows[cand.ID]))
	}
	if len(f.transport.files) != 1 || f.transport.files[0].chatID != 900 {
		t.Error("partial report must still reach the admin")
	}
	// notifyCandidateOnCancel is off: the candidate gets text only
	for _, sf := range f.transport.files {
		if sf.chatID == 42 {
			t.Error("candidate must not receive the file when cancel delivery is off")
		}
	}
	if len(f.notifier.inputs) != 1 {
		t.Error("staff notification must fire on early termination")
	}
}

func TestCaseCancelDeliversToCandidateWhenEnabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cases.notifyCandidateOnCancel = true

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)
	f.cases.Cancel(ctx, 42)

	var toCandidate int
	for _, sf := range f.transport.files {
		if sf.chatID == 42 {
			toCandidate++
		}
	}
	if toCandidate != 1 {
		t.Errorf("candidate received %d files, want 1", toCandidate)
	}
}

func TestCasesCannotBeRetaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)
	for i := 0; i < f.cat.CaseCount(); i++ {
		f.cases.Answer(ctx, 42, "answer")
	}

	f.cases.Start(ctx, 42)

	last := f.transport.lastText(t)
	if last.text != msgCasesAlreadyDone {
		t.Errorf("restart after completion replied %q, want already-done notice", last.text)
	}
	if f.cases.Active(ctx, 42) {
		t.Error("no new case session may be created after completion")
	}
}

func TestCaseFinishAbortsWhenCandidateVanished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)
	delete(f.repo.candidates, 42)

	for i := 0; i < f.cat.CaseCount(); i++ {
		f.cases.Answer(ctx, 42, "answer")
	}

	if len(f.repo.caseRows) != 0 {
		t.Error("nothing may be persisted when the candidate vanished")
	}
	if len(f.transport.files) != 0 || len(f.notifier.inputs) != 0 {
		t.Error("no delivery may happen when the candidate vanished")
	}
}

func TestRebuildReportFromPersistedAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.completeSurvey(t, 42, "alice")
	f.cases.Start(ctx, 42)
	for i := 0; i < f.cat.CaseCount(); i++ {
		f.cases.Answer(ctx, 42, "answer")
	}

	reports := NewReports(f.repo, f.builder)
	file, err := reports.Rebuild(ctx, 42)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if file.Filename == "" {
		t.Error("rebuilt report has no filename")
	}

	if _, err := reports.Rebuild(ctx, 777); err == nil {
		t.Error("rebuild for an unknown candidate must fail")
	}
}
