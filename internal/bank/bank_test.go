package bank

import (
	"testing"

	"vakquiz/internal/model"
)

func testQuestion(id int64) model.Question {
	return model.Question{
		ID:   id,
		Text: "Q",
		Options: []model.Option{
			{Value: "a", Label: "see", Category: model.CategoryVisual},
			{Value: "b", Label: "hear", Category: model.CategoryAuditory},
			{Value: "c", Label: "do", Category: model.CategoryKinesthetic},
		},
	}
}

func TestDefaultBanks(t *testing.T) {
	for _, lang := range []string{"en", "ru"} {
		t.Run(lang, func(t *testing.T) {
			questions, err := Default(lang)
			if err != nil {
				t.Fatalf("Default(%q): %v", lang, err)
			}
			if len(questions) == 0 {
				t.Fatal("expected non-empty bank")
			}
		})
	}

	// Unknown language falls back to English.
	en, err := Default("en")
	if err != nil {
		t.Fatalf("Default(en): %v", err)
	}
	fallback, err := Default("xx")
	if err != nil {
		t.Fatalf("Default(xx): %v", err)
	}
	if len(fallback) != len(en) {
		t.Errorf("expected fallback to English bank, got %d questions vs %d", len(fallback), len(en))
	}
}

func TestValidate(t *testing.T) {
	twoOptions := testQuestion(1)
	twoOptions.Options = twoOptions.Options[:2]

	dupValue := testQuestion(1)
	dupValue.Options[1].Value = "a"

	dupCategory := testQuestion(1)
	dupCategory.Options[1].Category = model.CategoryVisual

	badCategory := testQuestion(1)
	badCategory.Options[2].Category = "olfactory"

	emptyValue := testQuestion(1)
	emptyValue.Options[0].Value = ""

	tests := []struct {
		name      string
		questions []model.Question
		wantErr   bool
	}{
		{"valid", []model.Question{testQuestion(1), testQuestion(2)}, false},
		{"empty bank", nil, true},
		{"duplicate id", []model.Question{testQuestion(1), testQuestion(1)}, true},
		{"two options", []model.Question{twoOptions}, true},
		{"duplicate option value", []model.Question{dupValue}, true},
		{"duplicate category", []model.Question{dupCategory}, true},
		{"unknown category", []model.Question{badCategory}, true},
		{"empty option value", []model.Question{emptyValue}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.questions)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewIndex(t *testing.T) {
	questions := []model.Question{testQuestion(1), testQuestion(7)}
	idx := NewIndex(questions)
	if len(idx) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(idx))
	}
	q, ok := idx[7]
	if !ok {
		t.Fatal("question 7 missing from index")
	}
	if q.ID != 7 {
		t.Errorf("expected id 7, got %d", q.ID)
	}
	if _, ok := idx[99]; ok {
		t.Error("unexpected entry for id 99")
	}
}

func TestEmbeddedBankInvariants(t *testing.T) {
	questions, err := Default("en")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	// Every question must cover all three categories exactly once;
	// Validate already ran inside Default, so spot-check directly too.
	for _, q := range questions {
		seen := make(map[model.Category]int)
		for _, o := range q.Options {
			seen[o.Category]++
		}
		for _, c := range model.Categories {
			if seen[c] != 1 {
				t.Errorf("question %d: category %s appears %d times", q.ID, c, seen[c])
			}
		}
	}
}
