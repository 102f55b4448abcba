package handler

import (
	"net/http"

	"github.com/examhub/examhub/internal/apperr"
	"github.com/examhub/examhub/internal/auth"
	"github.com/examhub/examhub/internal/grading"
	"github.com/examhub/examhub/internal/model"
)

func (h *Handler) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	examID, err := pathID(r, "examID")
	if err != nil {
		writeError(w, err)
		return
	}
	user := model.UserFromContext(r.Context())

	exam, err := h.store.GetExam(examID)
	if err != nil {
		writeError(w, err)
		return
	}
	if exam == nil {
		writeError(w, apperr.NotFound("exam not found"))
		return
	}
	if !exam.IsPublished {
		writeError(w, apperr.Forbidden("exam is not published"))
		return
	}

	attempt, created, err := h.store.GetOrCreateAttempt(examID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Resuming an existing in-progress attempt is idempotent: same
	// attempt, 200 instead of 201.
	status := http.StatusCreated
	message := "Exam started successfully"
	if !created {
		status = http.StatusOK
		message = "Resuming existing exam attempt"
	}
	writeJSON(w, status, map[string]any{
		"message": message,
		"attempt": attempt,
	})
}

// ownedInProgressAttempt loads an attempt and verifies the caller may still
// mutate it: it must exist, belong to the caller, and be in progress.
func (h *Handler) ownedInProgressAttempt(r *http.Request, user *model.User) (*model.Attempt, error) {
	attemptID, err := pathID(r, "attemptID")
	if err != nil {
		return nil, err
	}
	attempt, err := h.store.GetAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.NotFound("attempt not found")
	}
	if attempt.UserID != user.ID || attempt.Status != model.StatusInProgress {
		return nil, apperr.Forbidden("invalid or completed attempt")
	}
	return attempt, nil
}

type submitAnswerRequest struct {
	QuestionID       int64  `json:"question_id"`
	AnswerText       string `json:"answer_text"`
	SelectedOptionID *int64 `json:"selected_option_id"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	attempt, err := h.ownedInProgressAttempt(r, user)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.QuestionID < 1 {
		writeError(w, apperr.Validation("question_id is required"))
		return
	}

	if err := h.store.UpsertAnswer(attempt.ID, req.QuestionID, req.AnswerText, req.SelectedOptionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Answer submitted successfully"})
}

func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	attempt, err := h.ownedInProgressAttempt(r, user)
	if err != nil {
		writeError(w, err)
		return
	}

	exam, err := h.store.GetExam(attempt.ExamID)
	if err != nil {
		writeError(w, err)
		return
	}
	if exam == nil {
		writeError(w, apperr.NotFound("exam not found"))
		return
	}
	questions, err := h.store.QuestionsForExam(attempt.ExamID)
	if err != nil {
		writeError(w, err)
		return
	}
	answers, err := h.store.AnswersForAttempt(attempt.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	result := grading.Grade(answers, questions, exam.PassingScore)
	if err := h.store.FinalizeAttempt(attempt.ID, result.Answers, result.Score, result.Percentage, result.Passed); err != nil {
		writeError(w, err)
		return
	}

	graded, err := h.store.GetAttempt(attempt.ID)
	if err != nil || graded == nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Exam submitted successfully",
		"attempt": graded,
	})
}

func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := pathID(r, "attemptID")
	if err != nil {
		writeError(w, err)
		return
	}
	user := model.UserFromContext(r.Context())

	attempt, err := h.store.GetAttempt(attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	if attempt == nil {
		writeError(w, apperr.NotFound("attempt not found"))
		return
	}
	if !auth.Allowed(user, auth.ActionViewAttempt, attempt) {
		writeError(w, apperr.Forbidden("you do not have access to this attempt"))
		return
	}

	answers, err := h.store.AnswersForAttempt(attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	if answers == nil {
		answers = []model.Answer{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempt": attempt,
		"answers": answers,
	})
}

func (h *Handler) handleUserAttempts(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	attempts, err := h.store.AttemptsForUser(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
