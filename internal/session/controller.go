// Package session drives one respondent's pass through the questionnaire:
// presentation order, answer capture, resumable persistence and scoring.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vakquiz/internal/model"
	"vakquiz/internal/scoring"
	"vakquiz/internal/shuffle"
)

// State is the controller lifecycle state.
type State string

const (
	// StateActive means the session is accepting answers.
	StateActive State = "active"
	// StateCompleted means the last question was answered and a result exists.
	StateCompleted State = "completed"
)

// ErrCompleted is returned for answer or navigation events after completion.
var ErrCompleted = errors.New("session already completed")

// Store is the persistence boundary the controller writes through.
// Implementations must treat upserts as full-state overwrites and
// deletes of absent records as a no-op.
type Store interface {
	LoadProgress(sessionID string) (*model.SessionProgress, error)
	UpsertProgress(p model.SessionProgress) error
	DeleteProgress(sessionID string) error
	InsertResult(rec model.ResultRecord) error
}

// Controller owns the in-memory state of a single session: the shuffled
// presentation order, the answers map and the current index. Exactly one
// controller instance drives a given session id at a time; methods are
// safe to call from HTTP handlers and the scheduled advance event.
type Controller struct {
	mu        sync.Mutex
	sessionID string
	store     Store
	bank      []model.Question
	deck      []model.Question
	index     int
	answers   map[int64]string
	timer     *Timer
	state     State
	result    *model.Result

	advanceDelay time.Duration
	advance      *time.Timer
	closed       bool
}

// New builds a controller for the given session id. Existing progress is
// restored from the store (index, answers, start time); otherwise the
// session starts fresh at index 0 with the start time set to now. Either
// way a new presentation order is drawn: no shuffle seed is persisted, so
// a resumed session sees a different order, which scoring tolerates.
func New(s Store, questions []model.Question, sessionID string, advanceDelay time.Duration) (*Controller, error) {
	if len(questions) == 0 {
		return nil, errors.New("empty question bank")
	}

	c := &Controller{
		sessionID:    sessionID,
		store:        s,
		bank:         questions,
		deck:         shuffle.Deck(questions),
		answers:      make(map[int64]string),
		state:        StateActive,
		advanceDelay: advanceDelay,
	}

	p, err := s.LoadProgress(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if p != nil {
		c.index = p.CurrentIndex
		if c.index >= len(c.deck) {
			// Stored index must never point past the deck; clamp defensively.
			c.index = len(c.deck) - 1
		}
		if c.index < 0 {
			c.index = 0
		}
		if p.Answers != nil {
			c.answers = p.Answers
		}
		c.timer = NewTimer(p.StartedAt)
	} else {
		c.timer = NewTimer(time.Now())
	}

	return c, nil
}

// SessionID returns the opaque session identifier.
func (c *Controller) SessionID() string { return c.sessionID }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the question at the current index in presentation order.
// The second return is false once the session is completed.
func (c *Controller) Current() (model.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return model.Question{}, false
	}
	return c.deck[c.index], true
}

// Progress returns a snapshot of the session position: current index,
// total question count and number of recorded answers.
func (c *Controller) Progress() (index, total, answered int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index, len(c.deck), len(c.answers)
}

// Elapsed returns wall-clock time since the session started. The value
// is recomputed from the start timestamp on every call, so suspension
// or restarts cannot desynchronize it.
func (c *Controller) Elapsed() time.Duration {
	return c.timer.Elapsed()
}

// Timer returns the session timer for observation loops.
func (c *Controller) Timer() *Timer { return c.timer }

// Result returns the computed result once the session is completed.
func (c *Controller) Result() (model.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.Result{}, false
	}
	return *c.result, true
}

// Answer records the respondent's choice for the currently displayed
// question. Re-answering the current question overwrites the previous
// value without advancing twice. On any question but the last, the index
// advances after the configured confirmation delay (immediately when the
// delay is zero). Answering the last question scores the session, deletes
// the durable progress record and returns the result; a nil result means
// the session is still active.
//
// Answering a question that is not current, or an option the question
// does not offer, indicates corrupted state and returns an error.
func (c *Controller) Answer(questionID int64, optionValue string) (*model.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return nil, ErrCompleted
	}

	current := c.deck[c.index]
	if current.ID != questionID {
		return nil, fmt.Errorf("question %d is not current (current is %d)", questionID, current.ID)
	}
	if _, ok := current.Option(optionValue); !ok {
		return nil, fmt.Errorf("question %d has no option %q", questionID, optionValue)
	}

	c.answers[questionID] = optionValue
	c.persistLocked()

	if c.index == len(c.deck)-1 {
		return c.completeLocked()
	}

	c.cancelAdvanceLocked()
	if c.advanceDelay <= 0 {
		c.advanceLocked()
	} else {
		c.advance = time.AfterFunc(c.advanceDelay, c.advanceNow)
	}
	return nil, nil
}

// Back moves to the previous question. It is a no-op at index 0 and
// never touches recorded answers.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrCompleted
	}
	c.cancelAdvanceLocked()
	if c.index == 0 {
		return nil
	}
	c.index--
	c.persistLocked()
	return nil
}

// Close cancels any pending advance event and stops the timer loop.
// It does not delete persisted progress: a closed session resumes later.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelAdvanceLocked()
	c.timer.Stop()
}

// advanceNow is the scheduled advance event fired after the confirmation delay.
func (c *Controller) advanceNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateActive {
		return
	}
	c.advanceLocked()
}

func (c *Controller) advanceLocked() {
	if c.index >= len(c.deck)-1 {
		return
	}
	c.index++
	c.persistLocked()
}

func (c *Controller) cancelAdvanceLocked() {
	if c.advance != nil {
		c.advance.Stop()
		c.advance = nil
	}
}

// persistLocked writes the full current state through the store.
// Persistence failures are logged and swallowed: the in-memory session
// keeps going and loses at most resumability until the next successful
// write.
func (c *Controller) persistLocked() {
	err := c.store.UpsertProgress(model.SessionProgress{
		SessionID:    c.sessionID,
		CurrentIndex: c.index,
		Answers:      c.answers,
		StartedAt:    c.timer.StartedAt(),
	})
	if err != nil {
		slog.Warn("failed to persist session progress", "session_id", c.sessionID, "error", err)
	}
}

// completeLocked scores the session, records the result, deletes the
// progress record and transitions to Completed. The delete happens before
// the result is surfaced so a completed session can never resume.
func (c *Controller) completeLocked() (*model.Result, error) {
	result, err := scoring.Score(c.answers, c.bank)
	if err != nil {
		return nil, fmt.Errorf("score session %s: %w", c.sessionID, err)
	}

	completedAt := time.Now()
	if err := c.store.InsertResult(model.ResultRecord{
		SessionID:   c.sessionID,
		Primary:     result.Primary,
		Visual:      result.Scores[model.CategoryVisual],
		Auditory:    result.Scores[model.CategoryAuditory],
		Kinesthetic: result.Scores[model.CategoryKinesthetic],
		Total:       result.Total(),
		StartedAt:   c.timer.StartedAt(),
		CompletedAt: completedAt,
	}); err != nil {
		slog.Warn("failed to record result", "session_id", c.sessionID, "error", err)
	}

	if err := c.store.DeleteProgress(c.sessionID); err != nil {
		slog.Warn("failed to delete session progress", "session_id", c.sessionID, "error", err)
	}

	c.cancelAdvanceLocked()
	c.timer.Stop()
	c.state = StateCompleted
	c.result = &result
	return &result, nil
}
