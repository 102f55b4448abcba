package handler

import (
	"net/http"
	"strconv"

	"github.com/examhub/examhub/internal/apperr"
	"github.com/examhub/examhub/internal/auth"
	"github.com/examhub/examhub/internal/model"
	"github.com/examhub/examhub/internal/store"
)

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)

	exams, total, err := h.store.ListPublished(page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	pages := (total + perPage - 1) / perPage
	if exams == nil {
		exams = []model.Exam{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exams":        exams,
		"total":        total,
		"pages":        pages,
		"current_page": page,
	})
}

type createExamRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Subject         string   `json:"subject"`
	DurationMinutes *int     `json:"duration_minutes"`
	PassingScore    *float64 `json:"passing_score"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if !auth.Allowed(user, auth.ActionCreateExam, nil) {
		writeError(w, apperr.Forbidden("only instructors can create exams"))
		return
	}

	var req createExamRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Title == "" {
		writeError(w, apperr.Validation("title is required"))
		return
	}

	exam := model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		CreatorID:       user.ID,
		Subject:         req.Subject,
		DurationMinutes: 60,
		PassingScore:    60.0,
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.PassingScore != nil {
		exam.PassingScore = *req.PassingScore
	}

	id, err := h.store.CreateExam(exam)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.store.GetExam(id)
	if err != nil || created == nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Exam created successfully",
		"exam":    created,
	})
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID, err := pathID(r, "examID")
	if err != nil {
		writeError(w, err)
		return
	}
	user := model.UserFromContext(r.Context())

	exam, err := h.store.GetExamWithQuestions(examID)
	if err != nil {
		writeError(w, err)
		return
	}
	if exam == nil {
		writeError(w, apperr.NotFound("exam not found"))
		return
	}
	if !auth.Allowed(user, auth.ActionViewExam, exam) {
		writeError(w, apperr.Forbidden("you do not have access to this exam"))
		return
	}

	// Answer keys stay hidden from anyone who cannot edit the exam.
	if !auth.Allowed(user, auth.ActionUpdateExam, exam) {
		stripAnswerKey(exam)
	}
	writeJSON(w, http.StatusOK, exam)
}

func stripAnswerKey(exam *model.Exam) {
	for qi := range exam.Questions {
		for oi := range exam.Questions[qi].Options {
			exam.Questions[qi].Options[oi].IsCorrect = false
		}
	}
}

type updateExamRequest struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Subject         *string  `json:"subject"`
	DurationMinutes *int     `json:"duration_minutes"`
	PassingScore    *float64 `json:"passing_score"`
	IsPublished     *bool    `json:"is_published"`
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
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
	if !auth.Allowed(user, auth.ActionUpdateExam, exam) {
		writeError(w, apperr.Forbidden("you cannot modify this exam"))
		return
	}

	var req updateExamRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Title != nil && *req.Title == "" {
		writeError(w, apperr.Validation("title cannot be empty"))
		return
	}

	err = h.store.UpdateExam(examID, store.ExamPatch{
		Title:           req.Title,
		Description:     req.Description,
		Subject:         req.Subject,
		DurationMinutes: req.DurationMinutes,
		PassingScore:    req.PassingScore,
		IsPublished:     req.IsPublished,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.store.GetExam(examID)
	if err != nil || updated == nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Exam updated successfully",
		"exam":    updated,
	})
}

type questionOptionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type addQuestionRequest struct {
	Text       string                  `json:"question_text"`
	Type       model.QuestionType      `json:"question_type"`
	Difficulty model.Difficulty        `json:"difficulty"`
	Points     *float64                `json:"points"`
	Order      int                     `json:"order"`
	Options    []questionOptionRequest `json:"options"`
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
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
	if !auth.Allowed(user, auth.ActionAuthorQuestion, exam) {
		writeError(w, apperr.Forbidden("only the exam creator can add questions"))
		return
	}

	var req addQuestionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Text == "" {
		writeError(w, apperr.Validation("question text is required"))
		return
	}

	q := model.Question{
		ExamID:     examID,
		Text:       req.Text,
		Type:       model.TypeMultipleChoice,
		Difficulty: model.DifficultyMedium,
		Points:     1.0,
		OrderIndex: req.Order,
	}
	if req.Type != "" {
		q.Type = req.Type
	}
	if req.Difficulty != "" {
		q.Difficulty = req.Difficulty
	}
	if req.Points != nil {
		if *req.Points < 0 {
			writeError(w, apperr.Validation("points must be non-negative"))
			return
		}
		q.Points = *req.Points
	}

	opts := make([]model.Option, 0, len(req.Options))
	for _, o := range req.Options {
		opts = append(opts, model.Option{Text: o.Text, IsCorrect: o.IsCorrect})
	}

	questionID, err := h.store.AddQuestion(examID, q, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	q.ID = questionID
	q.Options, err = h.store.OptionsForQuestion(questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Question added successfully",
		"question": q,
	})
}

func (h *Handler) handleExamStatistics(w http.ResponseWriter, r *http.Request) {
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
	if !auth.Allowed(user, auth.ActionViewStatistics, exam) {
		writeError(w, apperr.Forbidden("only the exam creator can view statistics"))
		return
	}

	stats, err := h.store.ExamStatistics(examID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
