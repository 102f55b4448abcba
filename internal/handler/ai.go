package handler

import (
	"net/http"

	"github.com/examhub/examhub/internal/apperr"
	"github.com/examhub/examhub/internal/auth"
	"github.com/examhub/examhub/internal/model"
)

type generateQuestionsRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"`
	QuestionType string `json:"question_type"`
}

func (h *Handler) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if !auth.Allowed(user, auth.ActionGenerateQuestions, nil) {
		writeError(w, apperr.Forbidden("only instructors can generate questions"))
		return
	}

	var req generateQuestionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Topic == "" {
		writeError(w, apperr.Validation("topic is required"))
		return
	}
	if req.NumQuestions < 1 {
		req.NumQuestions = 5
	}
	if req.Difficulty == "" {
		req.Difficulty = string(model.DifficultyMedium)
	}
	if req.QuestionType == "" {
		req.QuestionType = string(model.TypeMultipleChoice)
	}

	questions, err := h.llm.GenerateQuestions(r.Context(), req.Topic, req.NumQuestions, req.Difficulty, req.QuestionType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Questions generated successfully",
		"questions": questions,
	})
}

type evaluateAnswerRequest struct {
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
	Rubric       string `json:"rubric"`
	AnswerID     *int64 `json:"answer_id"`
}

func (h *Handler) handleEvaluateAnswer(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req evaluateAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.QuestionText == "" || req.AnswerText == "" {
		writeError(w, apperr.Validation("question and answer text are required"))
		return
	}

	eval, err := h.llm.EvaluateAnswer(r.Context(), req.QuestionText, req.AnswerText, req.Rubric)
	if err != nil {
		writeError(w, err)
		return
	}

	// Optionally attach the feedback to a stored answer. The numeric score
	// of the attempt is never touched.
	if req.AnswerID != nil {
		if err := h.attachFeedback(*req.AnswerID, user, eval.Feedback); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Answer evaluated successfully",
		"evaluation": eval,
	})
}

func (h *Handler) attachFeedback(answerID int64, user *model.User, feedback string) error {
	answer, err := h.store.GetAnswer(answerID)
	if err != nil {
		return err
	}
	if answer == nil {
		return apperr.NotFound("answer not found")
	}
	attempt, err := h.store.GetAttempt(answer.AttemptID)
	if err != nil {
		return err
	}
	if attempt == nil {
		return apperr.NotFound("attempt not found")
	}
	if !auth.Allowed(user, auth.ActionViewAttempt, attempt) {
		return apperr.Forbidden("you do not have access to this answer")
	}
	return h.store.UpdateAnswerFeedback(answerID, feedback)
}

type explainConceptRequest struct {
	Concept string `json:"concept"`
	Level   string `json:"level"`
}

func (h *Handler) handleExplainConcept(w http.ResponseWriter, r *http.Request) {
	var req explainConceptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Concept == "" {
		writeError(w, apperr.Validation("concept is required"))
		return
	}

	explanation, err := h.llm.ExplainConcept(r.Context(), req.Concept, req.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Explanation generated successfully",
		"concept":     req.Concept,
		"explanation": explanation,
	})
}
