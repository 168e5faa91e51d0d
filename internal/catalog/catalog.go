// Package catalog holds the fixed, ordered question material that drives the
// conversation: the survey questions and the illustrated case items. The
// content ships embedded with the binary so every instance asks the same
// questions in the same order.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Question is one survey question. Code is the stable identifier persisted
// with each answer; Prompt is sent to the candidate; Label heads the row in
// the rendered report.
type Question struct {
	Code   string `yaml:"code"`
	Prompt string `yaml:"prompt"`
	Label  string `yaml:"label"`
}

// Case is one case item presented in the second stage.
type Case struct {
	ID          int      `yaml:"id"`
	Image       string   `yaml:"image"`
	Description string   `yaml:"description"`
	Tasks       []string `yaml:"tasks"`
}

type Catalog struct {
	questions []Question
	cases     []Case
}

// Load parses the embedded catalog. Called once at startup.
func Load() (*Catalog, error) {
	var raw struct {
		Survey []Question `yaml:"survey"`
		Cases  []Case     `yaml:"cases"`
	}
	if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(raw.Survey) == 0 {
		return nil, fmt.Errorf("catalog has no survey questions")
	}
	if len(raw.Cases) == 0 {
		return nil, fmt.Errorf("catalog has no cases")
	}
	seen := make(map[string]struct{}, len(raw.Survey))
	for _, q := range raw.Survey {
		if q.Code == "" {
			return nil, fmt.Errorf("survey question with empty code")
		}
		if _, dup := seen[q.Code]; dup {
			return nil, fmt.Errorf("duplicate survey question code %s", q.Code)
		}
		seen[q.Code] = struct{}{}
	}
	return &Catalog{questions: raw.Survey, cases: raw.Cases}, nil
}

// SurveyQuestions returns the ordered survey questions.
func (c *Catalog) SurveyQuestions() []Question {
	return c.questions
}

// SurveyCount returns the number of survey questions.
func (c *Catalog) SurveyCount() int {
	return len(c.questions)
}

// QuestionByIndex returns the survey question at i.
func (c *Catalog) QuestionByIndex(i int) (Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[i], true
}

// CaseCount returns the number of case items.
func (c *Catalog) CaseCount() int {
	return len(c.cases)
}

// CaseByIndex returns the case item at i.
func (c *Catalog) CaseByIndex(i int) (Case, bool) {
	if i < 0 || i >= len(c.cases) {
		return Case{}, false
	}
	return c.cases[i], true
}
