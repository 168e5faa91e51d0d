package search

import (
	"context"
	"fmt"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexIntake pushes a candidate's answers into the Meilisearch index,
// fire-and-forget. PG FTS needs no indexing step; the answer tables are the
// index.
func (s *Service) IndexIntake(candidateID, telegramID int64, handle string, surveyAns map[string]string, caseAns map[int]string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	records := make([]AnswerRecord, 0, len(surveyAns)+len(caseAns))
	for code, answer := range surveyAns {
		records = append(records, AnswerRecord{
			ID:          fmt.Sprintf("s:%d:%s", candidateID, code),
			Type:        string(ResultSurvey),
			CandidateID: candidateID,
			TelegramID:  telegramID,
			Handle:      handle,
			Label:       code,
			Answer:      answer,
		})
	}
	for idx, answer := range caseAns {
		records = append(records, AnswerRecord{
			ID:          fmt.Sprintf("c:%d:%d", candidateID, idx),
			Type:        string(ResultCase),
			CandidateID: candidateID,
			TelegramID:  telegramID,
			Handle:      handle,
			Label:       fmt.Sprintf("CASE #%d", idx+1),
			Answer:      answer,
		})
	}

	go func() {
		if err := s.meili.IndexAnswers(records); err != nil {
			log.Printf("search: index intake %d: %v", candidateID, err)
		}
	}()
}

// ReindexAllFromPG reads every persisted answer from PostgreSQL and pushes it
// into Meilisearch. Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexAnswers(records); err != nil {
		log.Printf("search: reindex answers: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
