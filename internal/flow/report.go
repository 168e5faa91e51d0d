package flow

import (
	"context"
	"fmt"

	"intakebot/internal/report"
)

// Reports rebuilds intake documents from persisted answers, independent of
// any live session. Used by the admin /report command.
type Reports struct {
	repo    Repository
	builder Builder
}

func NewReports(repo Repository, builder Builder) *Reports {
	return &Reports{repo: repo, builder: builder}
}

// Rebuild regenerates the report for a candidate from stored answers. The
// timestamp is the candidate's last update, so rebuilding the same data
// yields the same document.
func (r *Reports) Rebuild(ctx context.Context, telegramID int64) (report.File, error) {
	cand, err := r.repo.CandidateByTelegramID(ctx, telegramID)
	if err != nil {
		return report.File{}, fmt.Errorf("rebuild report for %d: %w", telegramID, err)
	}

	surveyAns, err := r.repo.SurveyAnswers(ctx, cand.ID)
	if err != nil {
		return report.File{}, fmt.Errorf("rebuild report for %d: gather survey answers: %w", telegramID, err)
	}
	caseAns, err := r.repo.CaseAnswers(ctx, cand.ID)
	if err != nil {
		return report.File{}, fmt.Errorf("rebuild report for %d: gather case answers: %w", telegramID, err)
	}

	return r.builder.Build(ctx, report.Input{
		ChatID:        cand.TelegramID,
		Handle:        cand.Handle,
		SurveyAnswers: surveyAns,
		CaseAnswers:   caseAns,
		CompletedAt:   cand.UpdatedAt,
	})
}
