package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vakquiz/internal/model"
)

// fakeStore is an in-memory Store with failure injection.
type fakeStore struct {
	mu         sync.Mutex
	progress   map[string]model.SessionProgress
	results    []model.ResultRecord
	calls      []string
	failUpsert bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{progress: make(map[string]model.SessionProgress)}
}

func (f *fakeStore) LoadProgress(sessionID string) (*model.SessionProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[sessionID]
	if !ok {
		return nil, nil
	}
	cp := p
	cp.Answers = make(map[int64]string, len(p.Answers))
	for k, v := range p.Answers {
		cp.Answers[k] = v
	}
	return &cp, nil
}

func (f *fakeStore) UpsertProgress(p model.SessionProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upsert")
	if f.failUpsert {
		return errors.New("store unreachable")
	}
	cp := p
	cp.Answers = make(map[int64]string, len(p.Answers))
	for k, v := range p.Answers {
		cp.Answers[k] = v
	}
	f.progress[p.SessionID] = cp
	return nil
}

func (f *fakeStore) DeleteProgress(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.failDelete {
		return errors.New("store unreachable")
	}
	delete(f.progress, sessionID)
	return nil
}

func (f *fakeStore) InsertResult(rec model.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "result")
	f.results = append(f.results, rec)
	return nil
}

func (f *fakeStore) stored(t *testing.T, sessionID string) model.SessionProgress {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[sessionID]
	if !ok {
		t.Fatalf("no stored progress for %s", sessionID)
	}
	return p
}

func testBank(n int) []model.Question {
	var questions []model.Question
	for i := 1; i <= n; i++ {
		questions = append(questions, model.Question{
			ID:   int64(i),
			Text: fmt.Sprintf("Q%d", i),
			Options: []model.Option{
				{Value: "a", Label: "see", Category: model.CategoryVisual},
				{Value: "b", Label: "hear", Category: model.CategoryAuditory},
				{Value: "c", Label: "do", Category: model.CategoryKinesthetic},
			},
		})
	}
	return questions
}

// answerCurrent answers the currently displayed question with the option
// of the given category.
func answerCurrent(t *testing.T, c *Controller, category model.Category) *model.Result {
	t.Helper()
	q, ok := c.Current()
	if !ok {
		t.Fatal("no current question")
	}
	value := ""
	for _, o := range q.Options {
		if o.Category == category {
			value = o.Value
		}
	}
	result, err := c.Answer(q.ID, value)
	if err != nil {
		t.Fatalf("Answer(%d, %q): %v", q.ID, value, err)
	}
	return result
}

func TestFreshSession(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(5), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.State() != StateActive {
		t.Errorf("expected active state, got %s", c.State())
	}
	index, total, answered := c.Progress()
	if index != 0 || total != 5 || answered != 0 {
		t.Errorf("unexpected progress: index=%d total=%d answered=%d", index, total, answered)
	}
	if _, ok := c.Current(); !ok {
		t.Error("expected a current question")
	}
	// Fresh sessions do not persist anything until the first answer.
	if len(fs.progress) != 0 {
		t.Errorf("expected no stored progress yet, got %d records", len(fs.progress))
	}
}

func TestEmptyBankRejected(t *testing.T) {
	if _, err := New(newFakeStore(), nil, "sess-1", 0); err == nil {
		t.Fatal("expected error for empty bank")
	}
}

func TestAnswerAdvancesAndPersists(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(3), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if result := answerCurrent(t, c, model.CategoryVisual); result != nil {
		t.Fatal("expected nil result before the last question")
	}

	index, _, answered := c.Progress()
	if index != 1 || answered != 1 {
		t.Errorf("expected index 1 answered 1, got index=%d answered=%d", index, answered)
	}
	p := fs.stored(t, "sess-1")
	if p.CurrentIndex != 1 || len(p.Answers) != 1 {
		t.Errorf("persisted state lagging: index=%d answers=%d", p.CurrentIndex, len(p.Answers))
	}
}

func TestCompletionScoresAndDeletes(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(3), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	answerCurrent(t, c, model.CategoryVisual)
	answerCurrent(t, c, model.CategoryVisual)
	result := answerCurrent(t, c, model.CategoryAuditory)

	if result == nil {
		t.Fatal("expected result on last answer")
	}
	if result.Primary != model.CategoryVisual {
		t.Errorf("expected primary visual, got %s", result.Primary)
	}
	if result.Scores[model.CategoryVisual] != 2 || result.Scores[model.CategoryAuditory] != 1 || result.Scores[model.CategoryKinesthetic] != 0 {
		t.Errorf("unexpected scores: %v", result.Scores)
	}

	if c.State() != StateCompleted {
		t.Errorf("expected completed state, got %s", c.State())
	}
	if _, ok := c.Current(); ok {
		t.Error("expected no current question after completion")
	}
	got, ok := c.Result()
	if !ok || got.Primary != model.CategoryVisual {
		t.Error("Result accessor disagrees with returned result")
	}

	// Progress record is gone, result record exists.
	p, err := fs.LoadProgress("sess-1")
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if p != nil {
		t.Error("expected progress deleted after completion")
	}
	if len(fs.results) != 1 {
		t.Fatalf("expected 1 result record, got %d", len(fs.results))
	}
	if fs.results[0].Total != 3 {
		t.Errorf("expected result total 3, got %d", fs.results[0].Total)
	}

	// Further events are rejected.
	q := testBank(3)[0]
	if _, err := c.Answer(q.ID, "a"); !errors.Is(err, ErrCompleted) {
		t.Errorf("expected ErrCompleted, got %v", err)
	}
	if err := c.Back(); !errors.Is(err, ErrCompleted) {
		t.Errorf("expected ErrCompleted from Back, got %v", err)
	}
}

func TestAnswerOutOfOrderRejected(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(5), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	current, _ := c.Current()
	var other int64
	for i := int64(1); i <= 5; i++ {
		if i != current.ID {
			other = i
			break
		}
	}
	if _, err := c.Answer(other, "a"); err == nil {
		t.Error("expected error answering a non-current question")
	}
	if _, err := c.Answer(current.ID, "z"); err == nil {
		t.Error("expected error for unknown option value")
	}
	// Failed events leave state untouched.
	index, _, answered := c.Progress()
	if index != 0 || answered != 0 {
		t.Errorf("state changed after rejected answer: index=%d answered=%d", index, answered)
	}
}

func TestReAnswerOverwrites(t *testing.T) {
	fs := newFakeStore()
	// Long delay keeps the index parked on the current question.
	c, err := New(fs, testBank(3), "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	q, _ := c.Current()
	if _, err := c.Answer(q.ID, "a"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if _, err := c.Answer(q.ID, "b"); err != nil {
		t.Fatalf("re-Answer: %v", err)
	}

	index, _, answered := c.Progress()
	if index != 0 {
		t.Errorf("expected index still 0, got %d", index)
	}
	if answered != 1 {
		t.Errorf("expected 1 answer after overwrite, got %d", answered)
	}
	p := fs.stored(t, "sess-1")
	if p.Answers[q.ID] != "b" {
		t.Errorf("expected overwritten answer b, got %q", p.Answers[q.ID])
	}
}

func TestBackNavigation(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(3), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// Back at index 0 is a no-op.
	if err := c.Back(); err != nil {
		t.Fatalf("Back at 0: %v", err)
	}
	index, _, _ := c.Progress()
	if index != 0 {
		t.Errorf("expected index 0, got %d", index)
	}

	answerCurrent(t, c, model.CategoryKinesthetic)
	if err := c.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	index, _, answered := c.Progress()
	if index != 0 {
		t.Errorf("expected index back at 0, got %d", index)
	}
	if answered != 1 {
		t.Errorf("back navigation must not drop answers, got %d", answered)
	}
	if p := fs.stored(t, "sess-1"); p.CurrentIndex != 0 {
		t.Errorf("expected persisted index 0, got %d", p.CurrentIndex)
	}
}

func TestResumeRestoresProgress(t *testing.T) {
	fs := newFakeStore()
	started := time.Now().Add(-90 * time.Second)
	seed := model.SessionProgress{
		SessionID:    "sess-1",
		CurrentIndex: 7,
		Answers:      map[int64]string{1: "a", 2: "b", 3: "c"},
		StartedAt:    started,
	}
	if err := fs.UpsertProgress(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := New(fs, testBank(12), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	index, total, answered := c.Progress()
	if index != 7 || total != 12 || answered != 3 {
		t.Errorf("resume mismatch: index=%d total=%d answered=%d", index, total, answered)
	}
	// Elapsed continues from the stored start time, not from zero.
	if got := c.Elapsed(); got < 90*time.Second {
		t.Errorf("expected elapsed >= 90s, got %v", got)
	}
}

func TestResumeClampsIndex(t *testing.T) {
	fs := newFakeStore()
	if err := fs.UpsertProgress(model.SessionProgress{
		SessionID:    "sess-1",
		CurrentIndex: 42,
		Answers:      map[int64]string{},
		StartedAt:    time.Now(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := New(fs, testBank(5), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	index, _, _ := c.Progress()
	if index != 4 {
		t.Errorf("expected clamped index 4, got %d", index)
	}
}

func TestPersistFailureDoesNotBlock(t *testing.T) {
	fs := newFakeStore()
	fs.failUpsert = true

	c, err := New(fs, testBank(3), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// Store failures are swallowed; the in-memory session keeps going.
	answerCurrent(t, c, model.CategoryVisual)
	answerCurrent(t, c, model.CategoryAuditory)
	result := answerCurrent(t, c, model.CategoryVisual)
	if result == nil {
		t.Fatal("expected completion despite persist failures")
	}
	if result.Primary != model.CategoryVisual {
		t.Errorf("expected primary visual, got %s", result.Primary)
	}
}

func TestDeleteFailureStillCompletes(t *testing.T) {
	fs := newFakeStore()
	fs.failDelete = true

	c, err := New(fs, testBank(2), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	answerCurrent(t, c, model.CategoryAuditory)
	if result := answerCurrent(t, c, model.CategoryAuditory); result == nil {
		t.Fatal("expected completion despite delete failure")
	}
	if c.State() != StateCompleted {
		t.Errorf("expected completed state, got %s", c.State())
	}
}

func TestDelayedAdvance(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(3), "sess-1", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	answerCurrent(t, c, model.CategoryVisual)
	if index, _, _ := c.Progress(); index != 0 {
		t.Fatalf("expected index 0 before the delay fires, got %d", index)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if index, _, _ := c.Progress(); index == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("advance event never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if p := fs.stored(t, "sess-1"); p.CurrentIndex != 1 {
		t.Errorf("expected persisted index 1 after advance, got %d", p.CurrentIndex)
	}
}

func TestCloseCancelsPendingAdvance(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(3), "sess-1", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answerCurrent(t, c, model.CategoryVisual)
	c.Close()
	time.Sleep(400 * time.Millisecond)

	if index, _, _ := c.Progress(); index != 0 {
		t.Errorf("advance fired after Close: index=%d", index)
	}
}

func TestDeleteHappensBeforeResultSurfaces(t *testing.T) {
	fs := newFakeStore()
	c, err := New(fs, testBank(1), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if result := answerCurrent(t, c, model.CategoryKinesthetic); result == nil {
		t.Fatal("expected result")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	last := fs.calls[len(fs.calls)-1]
	if last != "delete" {
		t.Errorf("expected delete as the final store call, got %v", fs.calls)
	}
}

func TestRegistry(t *testing.T) {
	fs := newFakeStore()
	r := NewRegistry()

	c1, err := New(fs, testBank(2), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Put(c1)

	got, ok := r.Get("sess-1")
	if !ok || got != c1 {
		t.Fatal("expected to get back the registered controller")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 controller, got %d", r.Len())
	}

	// Replacing closes the old controller.
	c2, err := New(fs, testBank(2), "sess-1", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Put(c2)
	if got, _ := r.Get("sess-1"); got != c2 {
		t.Error("expected replacement controller")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 controller after replace, got %d", r.Len())
	}

	r.Remove("sess-1")
	if _, ok := r.Get("sess-1"); ok {
		t.Error("expected controller removed")
	}
	// Removing an absent id is a no-op.
	r.Remove("sess-1")
}
