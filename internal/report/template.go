package report

import (
	"bytes"
	"html/template"
)

const answerPlaceholder = "—"

type templateData struct {
	Handle      string
	ChatID      int64
	CompletedAt string
	Survey      []surveyRow
	Cases       []caseSection
}

type surveyRow struct {
	Num    int
	Label  string
	Answer string
}

type caseSection struct {
	ID          int
	Description string
	Tasks       []string
	Answer      string
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Intake report</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; font-size: 12px; }
    h1 { font-size: 15px; text-align: center; border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    h2 { font-size: 13px; text-align: center; margin-top: 1.5rem; }
    .meta { text-align: right; font-size: 12px; margin-top: 0.5rem; }
    table { width: 100%; border-collapse: collapse; table-layout: fixed; }
    td { border: 1px solid #999; padding: 4px; vertical-align: top; }
    td.num { width: 8%; }
    td.question { width: 50%; }
    td.answer { font-weight: bold; }
    .case { margin-top: 1rem; }
    .case h3 { font-size: 12px; margin-bottom: 0.3rem; }
    .tasks { margin: 0.3rem 0 0.3rem 1.5rem; }
    .reply-label { font-weight: bold; margin-top: 0.5rem; }
  </style>
</head>
<body>
  <h1>TUTOR POSITION INTAKE REPORT</h1>
  <div class="meta">
    {{if .Handle}}Candidate <a href="https://t.me/{{.Handle}}">@{{.Handle}}</a>{{else}}Candidate #{{.ChatID}}{{end}}
    &middot; {{.CompletedAt}}
  </div>

  <h2>Survey</h2>
  <table>
    {{range .Survey}}<tr><td class="num">{{.Num}}</td><td class="question">{{.Label}}</td><td class="answer">{{.Answer}}</td></tr>
    {{end}}
  </table>

  <h2>Cases</h2>
  {{range .Cases}}<div class="case">
    <h3>CASE #{{.ID}}</h3>
    <p>{{.Description}}</p>
    {{if .Tasks}}<ul class="tasks">{{range .Tasks}}<li>{{.}}</li>{{end}}</ul>{{end}}
    <div class="reply-label">CANDIDATE'S ANSWER:</div>
    <p>{{.Answer}}</p>
  </div>
  {{end}}
</body>
</html>`))

// RenderHTML produces the report body. Output depends only on the input and
// the catalog: same answers, same timestamp, same bytes.
func (b *Builder) RenderHTML(in Input) (string, error) {
	data := templateData{
		Handle:      in.Handle,
		ChatID:      in.ChatID,
		CompletedAt: in.CompletedAt.Format("2006-01-02 15:04"),
	}

	for i, q := range b.catalog.SurveyQuestions() {
		answer, ok := in.SurveyAnswers[q.Code]
		if !ok || answer == "" {
			answer = answerPlaceholder
		}
		data.Survey = append(data.Survey, surveyRow{Num: i + 1, Label: q.Label, Answer: answer})
	}

	for i := 0; i < b.catalog.CaseCount(); i++ {
		cs, _ := b.catalog.CaseByIndex(i)
		answer, ok := in.CaseAnswers[i]
		if !ok || answer == "" {
			answer = answerPlaceholder
		}
		data.Cases = append(data.Cases, caseSection{
			ID:          cs.ID,
			Description: cs.Description,
			Tasks:       cs.Tasks,
			Answer:      answer,
		})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
