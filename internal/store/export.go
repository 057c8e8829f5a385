package store

import (
	"fmt"
	"time"

	"vakquiz/internal/model"
)

// ExportResults builds the export-ready view of all completed sessions.
func (s *Store) ExportResults() (model.QuizExport, error) {
	results, err := s.ListResults()
	if err != nil {
		return model.QuizExport{}, fmt.Errorf("list results: %w", err)
	}
	return model.QuizExport{
		Generated: time.Now(),
		Count:     len(results),
		Results:   results,
	}, nil
}
