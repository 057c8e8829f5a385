package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appI18n "vakquiz/internal/i18n"
	"vakquiz/internal/model"
	"vakquiz/internal/session"
	"vakquiz/internal/store"
)

const sessionCookieName = "quiz_session"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	bank     []model.Question
	registry *session.Registry
	config   model.QuizConfig
}

// New creates a new Handler over the given store and question bank.
func New(s *store.Store, questions []model.Question, cfg model.QuizConfig) (*Handler, error) {
	if len(questions) == 0 {
		return nil, errors.New("empty question bank")
	}
	return &Handler{
		store:    s,
		bank:     questions,
		registry: session.NewRegistry(),
		config:   cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/quiz", h.handleQuiz)
	r.Post("/quiz/answer", h.handleAnswer)
	r.Post("/quiz/back", h.handleBack)
	r.Get("/quiz/result", h.handleResult)
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionView is an option as shown to the respondent. The category tag
// stays server-side so the choice cannot be gamed from the payload.
type optionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type questionView struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Options []optionView `json:"options"`
}

type resultView struct {
	Primary     model.Category `json:"primary"`
	PrimaryName string         `json:"primary_name"`
	Headline    string         `json:"headline"`
	Scores      map[string]int `json:"scores"`
	Total       int            `json:"total"`
}

type stateResponse struct {
	SessionID      string        `json:"session_id"`
	Status         string        `json:"status"`
	Index          int           `json:"index"`
	Total          int           `json:"total"`
	Answered       int           `json:"answered"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	Question       *questionView `json:"question,omitempty"`
	Result         *resultView   `json:"result,omitempty"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":           appI18n.T(r.Context(), "QuizTitle"),
		"total_questions": len(h.bank),
		"completed":       len(results),
	})
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.stateOf(r, ctrl))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	questionID, err := strconv.ParseInt(r.FormValue("question_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid question_id", http.StatusBadRequest)
		return
	}
	option := r.FormValue("option")
	if option == "" {
		http.Error(w, "option cannot be empty", http.StatusBadRequest)
		return
	}

	result, err := ctrl.Answer(questionID, option)
	if errors.Is(err, session.ErrCompleted) {
		http.Error(w, "quiz already completed", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if result != nil {
		// The progress record is already deleted; drop the live controller
		// and the cookie so the completed session cannot resume.
		h.registry.Remove(ctrl.SessionID())
		h.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, stateResponse{
			SessionID:      ctrl.SessionID(),
			Status:         string(session.StateCompleted),
			Index:          lastIndex(h.bank),
			Total:          len(h.bank),
			Answered:       result.Total(),
			ElapsedSeconds: ctrl.Timer().Seconds(),
			Result:         h.resultView(r, *result),
		})
		return
	}

	writeJSON(w, http.StatusOK, h.stateOf(r, ctrl))
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := ctrl.Back(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, h.stateOf(r, ctrl))
}

// handleResult serves a completed session's result from the durable
// results table. The session id comes from the query string since the
// cookie is cleared the moment the session completes.
func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			sessionID = cookie.Value
		}
	}
	if sessionID == "" {
		http.Error(w, appI18n.T(r.Context(), "NoActiveSession"), http.StatusNotFound)
		return
	}

	rec, err := h.store.GetResult(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "quiz not completed", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.resultView(r, rec.Result()))
}

// controller returns the live controller for the request's session,
// creating the anonymous session id cookie and the controller on first
// contact. A controller rebuilt after a restart restores persisted
// progress with a freshly shuffled presentation order.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, error) {
	var sessionID string
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		sessionID = cookie.Value
	} else {
		sessionID = uuid.NewString()
		h.setSessionCookie(w, sessionID)
	}

	if ctrl, ok := h.registry.Get(sessionID); ok {
		return ctrl, nil
	}

	ctrl, err := session.New(h.store, h.bank, sessionID, h.config.AdvanceDelay)
	if err != nil {
		return nil, err
	}
	h.registry.Put(ctrl)
	return ctrl, nil
}

func (h *Handler) stateOf(r *http.Request, ctrl *session.Controller) stateResponse {
	index, total, answered := ctrl.Progress()
	resp := stateResponse{
		SessionID:      ctrl.SessionID(),
		Status:         string(ctrl.State()),
		Index:          index,
		Total:          total,
		Answered:       answered,
		ElapsedSeconds: ctrl.Timer().Seconds(),
	}
	if q, ok := ctrl.Current(); ok {
		qv := questionView{ID: q.ID, Text: q.Text}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, optionView{Value: o.Value, Label: o.Label})
		}
		resp.Question = &qv
	}
	if result, ok := ctrl.Result(); ok {
		resp.Result = h.resultView(r, result)
	}
	return resp
}

func (h *Handler) resultView(r *http.Request, result model.Result) *resultView {
	ctx := r.Context()
	name := appI18n.CategoryName(ctx, result.Primary)
	scores := make(map[string]int, len(result.Scores))
	for c, n := range result.Scores {
		scores[string(c)] = n
	}
	return &resultView{
		Primary:     result.Primary,
		PrimaryName: name,
		Headline:    appI18n.Td(ctx, "ResultHeadline", map[string]any{"Category": name}),
		Scores:      scores,
		Total:       result.Total(),
	}
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}

func lastIndex(questions []model.Question) int {
	if len(questions) == 0 {
		return 0
	}
	return len(questions) - 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
