// Package session provides the ephemeral per-chat conversational state and
// the keyed stores that hold it. Exactly one session of each kind may exist
// per chat; a found session is always resumed as-is, never reset.
package session

import "context"

// Kind distinguishes the two conversation stages.
type Kind string

const (
	KindSurvey Kind = "survey"
	KindCase   Kind = "case"
)

// UserRef is the minimal user identity a session carries. It is all an
// out-of-process backend needs to serialize alongside the cursor and answers.
type UserRef struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle,omitempty"`
}

// Survey tracks progress through the survey stage. Cursor is a 0-based index
// into the question list; Cursor == question count means the stage is done.
// Answers holds only visited questions, keyed by question code.
type Survey struct {
	User    UserRef           `json:"user"`
	Cursor  int               `json:"cursor"`
	Answers map[string]string `json:"answers"`
}

func NewSurvey(user UserRef) *Survey {
	return &Survey{User: user, Answers: make(map[string]string)}
}

// Answer records text against the current question.
func (s *Survey) Answer(code, text string) {
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[code] = text
}

// Next advances the cursor, clamped to total, and reports whether questions
// remain.
func (s *Survey) Next(total int) bool {
	if s.Cursor < total {
		s.Cursor++
	}
	return s.Cursor < total
}

// Done reports whether every question has been passed.
func (s *Survey) Done(total int) bool {
	return s.Cursor >= total
}

// Dump returns a copy of the accumulated answers.
func (s *Survey) Dump() map[string]string {
	out := make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out[k] = v
	}
	return out
}

// Case tracks progress through the case stage. Same cursor semantics as
// Survey, parameterized by catalog size, with answers keyed by case index.
type Case struct {
	User    UserRef        `json:"user"`
	Cursor  int            `json:"cursor"`
	Answers map[int]string `json:"answers"`
}

func NewCase(user UserRef) *Case {
	return &Case{User: user, Answers: make(map[int]string)}
}

func (c *Case) Answer(text string) {
	if c.Answers == nil {
		c.Answers = make(map[int]string)
	}
	c.Answers[c.Cursor] = text
}

func (c *Case) Next(total int) bool {
	if c.Cursor < total {
		c.Cursor++
	}
	return c.Cursor < total
}

func (c *Case) Done(total int) bool {
	return c.Cursor >= total
}

func (c *Case) Dump() map[int]string {
	out := make(map[int]string, len(c.Answers))
	for k, v := range c.Answers {
		out[k] = v
	}
	return out
}

// Store is the keyed session cache. Get returns nil with no error when no
// session exists for the chat. Implementations must return a found session
// without resetting cursor or answers.
type Store interface {
	GetSurvey(ctx context.Context, chatID int64) (*Survey, error)
	PutSurvey(ctx context.Context, chatID int64, s *Survey) error
	GetCase(ctx context.Context, chatID int64) (*Case, error)
	PutCase(ctx context.Context, chatID int64, c *Case) error
	Evict(ctx context.Context, chatID int64, kind Kind) error
}
