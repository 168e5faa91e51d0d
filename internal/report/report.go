// Package report renders the intake results into a human-readable document.
// The HTML rendering is deterministic for identical inputs; PDF conversion is
// delegated to headless Chrome.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intakebot/internal/catalog"
)

// ErrPDFDependencyMissing indicates the PDF runtime dependency (chromium) is
// unavailable.
var ErrPDFDependencyMissing = errors.New("report: pdf dependency missing")

// File is a rendered document ready for delivery.
type File struct {
	Data     []byte
	Filename string
	MimeType string
}

// Input carries everything the rendering needs. CompletedAt is provided by
// the caller so repeated builds over the same data produce identical output.
type Input struct {
	ChatID        int64
	Handle        string
	SurveyAnswers map[string]string
	CaseAnswers   map[int]string
	CompletedAt   time.Time
}

// Builder renders intake reports against a fixed catalog.
type Builder struct {
	catalog *catalog.Catalog
}

func NewBuilder(cat *catalog.Catalog) *Builder {
	return &Builder{catalog: cat}
}

// Build renders the report as a PDF. Missing answers render as placeholders
// rather than failing.
func (b *Builder) Build(ctx context.Context, in Input) (File, error) {
	html, err := b.RenderHTML(in)
	if err != nil {
		return File{}, fmt.Errorf("render report html: %w", err)
	}
	return exportPDF(ctx, html, b.filename(in))
}

func (b *Builder) filename(in Input) string {
	return fmt.Sprintf("intake_%d_%s", in.ChatID, in.CompletedAt.Format("20060102_1504"))
}
