package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/examhub/examhub/internal/apperr"
	"github.com/examhub/examhub/internal/auth"
	"github.com/examhub/examhub/internal/llm"
	"github.com/examhub/examhub/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	llm    *llm.Client
	tokens *auth.TokenService
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, t *auth.TokenService) *Handler {
	return &Handler{store: s, llm: l, tokens: t}
}

// Routes registers all HTTP routes. Everything under /api except register
// and login requires a bearer token.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.tokens, h.store))

			r.Get("/auth/profile", h.handleProfile)

			r.Get("/exams", h.handleListExams)
			r.Post("/exams", h.handleCreateExam)
			r.Get("/exams/{examID}", h.handleGetExam)
			r.Put("/exams/{examID}", h.handleUpdateExam)
			r.Post("/exams/{examID}/questions", h.handleAddQuestion)
			r.Post("/exams/{examID}/start", h.handleStartAttempt)
			r.Get("/exams/{examID}/statistics", h.handleExamStatistics)

			r.Post("/attempts/{attemptID}/submit-answer", h.handleSubmitAnswer)
			r.Post("/attempts/{attemptID}/submit", h.handleSubmitExam)
			r.Get("/attempts/{attemptID}", h.handleGetAttempt)

			r.Get("/user/attempts", h.handleUserAttempts)

			r.Post("/ai/generate-questions", h.handleGenerateQuestions)
			r.Post("/ai/evaluate-answer", h.handleEvaluateAnswer)
			r.Post("/ai/explain-concept", h.handleExplainConcept)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps any failure to the {"error": ...} envelope. Internal and
// upstream causes are logged, never serialized.
func writeError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal || ae.Kind == apperr.KindUpstream {
		slog.Error("request failed", "kind", ae.Kind, "error", err)
	}
	writeJSON(w, ae.HTTPStatus(), map[string]string{"error": ae.Msg})
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return apperr.Validation("request body is required")
	}
	return apperr.Validation("invalid JSON body")
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}
