// Package scoring turns a session's accumulated answers into a profile result.
package scoring

import (
	"fmt"

	"vakquiz/internal/bank"
	"vakquiz/internal/model"
)

// Score tallies answers by profile category against the canonical bank
// and returns the resulting profile. Categories are resolved from the
// unshuffled bank, so the result is independent of presentation order.
//
// An answer referencing an unknown question or option value indicates
// corrupted session state and is returned as an error rather than skipped.
func Score(answers map[int64]string, questions []model.Question) (model.Result, error) {
	idx := bank.NewIndex(questions)

	scores := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		scores[c] = 0
	}

	for questionID, value := range answers {
		q, ok := idx[questionID]
		if !ok {
			return model.Result{}, fmt.Errorf("answer references unknown question %d", questionID)
		}
		opt, ok := q.Option(value)
		if !ok {
			return model.Result{}, fmt.Errorf("question %d: answer references unknown option %q", questionID, value)
		}
		scores[opt.Category]++
	}

	// Ties resolve toward the earlier category in the fixed declaration
	// order, so iterate the slice rather than the map.
	primary := model.Categories[0]
	for _, c := range model.Categories[1:] {
		if scores[c] > scores[primary] {
			primary = c
		}
	}

	return model.Result{Primary: primary, Scores: scores}, nil
}
