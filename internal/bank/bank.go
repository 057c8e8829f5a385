// Package bank loads and validates the static question bank.
//
// The bank is immutable for the lifetime of the process: it is parsed and
// validated once at startup and shared read-only by every session.
package bank

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"vakquiz/internal/model"
)

//go:embed questions/*.json
var bankFS embed.FS

// Load reads and validates a question bank from a JSON file.
func Load(path string) ([]model.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	questions, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return questions, nil
}

// Default returns the embedded bank for the given language,
// falling back to English when no localized bank exists.
func Default(lang string) ([]model.Question, error) {
	name := fmt.Sprintf("questions/vak_%s.json", lang)
	data, err := bankFS.ReadFile(name)
	if err != nil {
		data, err = bankFS.ReadFile("questions/vak_en.json")
		if err != nil {
			return nil, fmt.Errorf("read embedded bank: %w", err)
		}
	}
	return parse(data)
}

func parse(data []byte) ([]model.Question, error) {
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	if err := Validate(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Validate checks the bank invariants: unique question ids, exactly three
// options per question, one option per category, option values unique
// within each question.
func Validate(questions []model.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("question bank is empty")
	}
	ids := make(map[int64]bool, len(questions))
	for _, q := range questions {
		if ids[q.ID] {
			return fmt.Errorf("question %d: duplicate id", q.ID)
		}
		ids[q.ID] = true
		if len(q.Options) != len(model.Categories) {
			return fmt.Errorf("question %d: expected %d options, got %d", q.ID, len(model.Categories), len(q.Options))
		}
		values := make(map[string]bool, len(q.Options))
		categories := make(map[model.Category]bool, len(q.Options))
		for _, o := range q.Options {
			if o.Value == "" {
				return fmt.Errorf("question %d: option with empty value", q.ID)
			}
			if values[o.Value] {
				return fmt.Errorf("question %d: duplicate option value %q", q.ID, o.Value)
			}
			values[o.Value] = true
			if !o.Category.Valid() {
				return fmt.Errorf("question %d: option %q: unknown category %q", q.ID, o.Value, o.Category)
			}
			if categories[o.Category] {
				return fmt.Errorf("question %d: duplicate category %q", q.ID, o.Category)
			}
			categories[o.Category] = true
		}
	}
	return nil
}

// Index maps question ids to questions for constant-time lookup.
type Index map[int64]model.Question

// NewIndex builds a lookup index over the bank.
func NewIndex(questions []model.Question) Index {
	idx := make(Index, len(questions))
	for _, q := range questions {
		idx[q.ID] = q
	}
	return idx
}
