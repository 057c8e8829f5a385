// Package shuffle produces randomized presentation orders for quiz sessions.
package shuffle

import (
	"math/rand/v2"

	"vakquiz/internal/model"
)

// Deck returns a deep copy of the bank with the question order and each
// question's options independently permuted. The permutation is not
// seeded or persisted: a resumed session gets a fresh order, and scoring
// stays correct because it resolves categories from the canonical bank.
func Deck(questions []model.Question) []model.Question {
	deck := make([]model.Question, len(questions))
	for i, q := range questions {
		options := make([]model.Option, len(q.Options))
		copy(options, q.Options)
		rand.Shuffle(len(options), func(a, b int) {
			options[a], options[b] = options[b], options[a]
		})
		q.Options = options
		deck[i] = q
	}
	rand.Shuffle(len(deck), func(a, b int) {
		deck[a], deck[b] = deck[b], deck[a]
	})
	return deck
}
