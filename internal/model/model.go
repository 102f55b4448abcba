package model

import (
	"context"
	"time"
)

// Role represents a user's access level.
type Role string

const (
	// RoleStudent is the default role for registered users.
	RoleStudent Role = "student"
	// RoleInstructor can author exams and generate questions.
	RoleInstructor Role = "instructor"
	// RoleAdmin can do everything an instructor can, on any exam.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor || r == RoleAdmin
}

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

type userCtxKey struct{}

// ContextWithUser stores the authenticated user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType represents how a question is answered and graded.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeEssay          QuestionType = "essay"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// AttemptStatus represents the status of an exam attempt. Submitted exists
// only inside the submit transition: grading runs synchronously, so clients
// observe in_progress or graded.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusSubmitted  AttemptStatus = "submitted"
	StatusGraded     AttemptStatus = "graded"
)

// Exam is an authored test owned by its creator.
type Exam struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatorID       int64      `json:"creator_id"`
	Subject         string     `json:"subject"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalQuestions  int        `json:"total_questions"`
	PassingScore    float64    `json:"passing_score"`
	IsPublished     bool       `json:"is_published"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"-"`
	Questions       []Question `json:"questions,omitempty"`
}

// Question belongs to an exam and carries a point value.
type Question struct {
	ID         int64        `json:"id"`
	ExamID     int64        `json:"exam_id"`
	Text       string       `json:"question_text"`
	Type       QuestionType `json:"question_type"`
	Difficulty Difficulty   `json:"difficulty"`
	Points     float64      `json:"points"`
	OrderIndex int          `json:"order"`
	Options    []Option     `json:"options,omitempty"`
}

// Option is one choice of a choice-based question. IsCorrect must never
// reach students before grading; handlers strip it for non-creators.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"-"`
	Text       string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct,omitempty"`
	OrderIndex int    `json:"order"`
}

// Attempt is one student's session working through an exam.
type Attempt struct {
	ID         int64         `json:"id"`
	ExamID     int64         `json:"exam_id"`
	UserID     int64         `json:"user_id"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    *time.Time    `json:"end_time"`
	Score      float64       `json:"score"`
	Percentage float64       `json:"percentage"`
	Status     AttemptStatus `json:"status"`
	IsPassed   bool          `json:"is_passed"`
	ExamTitle  string        `json:"exam_title,omitempty"`
}

// Answer records a student's response to one question within an attempt.
// At most one answer exists per (attempt, question); resubmission
// overwrites the row.
type Answer struct {
	ID               int64     `json:"id"`
	AttemptID        int64     `json:"attempt_id"`
	QuestionID       int64     `json:"question_id"`
	AnswerText       string    `json:"answer_text"`
	SelectedOptionID *int64    `json:"selected_option_id"`
	IsCorrect        *bool     `json:"is_correct"`
	PointsEarned     float64   `json:"points_earned"`
	AIFeedback       string    `json:"ai_feedback,omitempty"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// ExamStatistics aggregates graded attempts for one exam.
type ExamStatistics struct {
	ExamID        int64   `json:"exam_id"`
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	HighestScore  float64 `json:"highest_score"`
	LowestScore   float64 `json:"lowest_score"`
	PassRate      float64 `json:"pass_rate"`
}

// Config holds runtime parameters resolved at startup. It is built once in
// main from flags/env and passed to components; nothing mutates it after.
type Config struct {
	Addr          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	AdminPassword string
}
