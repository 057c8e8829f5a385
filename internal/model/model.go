package model

import (
	"context"
	"time"
)

// Category is a communication-style profile category.
type Category string

const (
	// CategoryVisual is the visual communication style.
	CategoryVisual Category = "visual"
	// CategoryAuditory is the auditory communication style.
	CategoryAuditory Category = "auditory"
	// CategoryKinesthetic is the kinesthetic communication style.
	CategoryKinesthetic Category = "kinesthetic"
)

// Categories lists all profile categories in declaration order.
// Scoring iterates this slice, never a map, so ties always resolve
// toward the earlier category.
var Categories = []Category{CategoryVisual, CategoryAuditory, CategoryKinesthetic}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryVisual, CategoryAuditory, CategoryKinesthetic:
		return true
	}
	return false
}

// Option is one of the three choices offered by a question.
// Value is an opaque discriminator unique within its question.
type Option struct {
	Value    string   `json:"value"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

// Question is a single bank question. Every question carries exactly
// three options, one per category, so each answer contributes exactly
// one point to exactly one category no matter which option is chosen.
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Option returns the option with the given value, if present.
func (q Question) Option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// SessionProgress is the durable snapshot of an in-progress session.
// It is upserted as a full-state overwrite on every answer or navigation
// event and deleted exactly once on completion.
type SessionProgress struct {
	SessionID    string           `json:"session_id"`
	CurrentIndex int              `json:"current_index"`
	Answers      map[int64]string `json:"answers"`
	StartedAt    time.Time        `json:"started_at"`
}

// Result is the immutable outcome of a completed session.
type Result struct {
	Primary Category         `json:"primary"`
	Scores  map[Category]int `json:"scores"`
}

// Total returns the number of answered questions the result covers.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Scores {
		n += c
	}
	return n
}

// QuizConfig holds runtime quiz parameters set via CLI flags.
type QuizConfig struct {
	AdvanceDelay  time.Duration // pause between recording an answer and advancing
	BasePath      string        // URL prefix for sub-path deployments (e.g. "/ru")
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
