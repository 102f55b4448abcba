package auth

import "github.com/examhub/examhub/internal/model"

// Action names something an actor wants to do to a resource.
type Action string

const (
	ActionCreateExam        Action = "create_exam"
	ActionUpdateExam        Action = "update_exam"
	ActionAuthorQuestion    Action = "author_question"
	ActionViewExam          Action = "view_exam"
	ActionViewAttempt       Action = "view_attempt"
	ActionViewStatistics    Action = "view_statistics"
	ActionGenerateQuestions Action = "generate_questions"
)

// Allowed is the single authorization policy. Handlers never test roles or
// ownership directly; they ask this function.
//
// The resource argument depends on the action: exam-scoped actions pass
// *model.Exam, attempt-scoped pass *model.Attempt, and role-only actions
// pass nil.
func Allowed(actor *model.User, action Action, resource any) bool {
	if actor == nil {
		return false
	}
	switch action {
	case ActionCreateExam, ActionGenerateQuestions:
		return actor.Role == model.RoleInstructor || actor.Role == model.RoleAdmin

	case ActionUpdateExam, ActionViewStatistics:
		exam, ok := resource.(*model.Exam)
		if !ok {
			return false
		}
		return exam.CreatorID == actor.ID || actor.Role == model.RoleAdmin

	case ActionAuthorQuestion:
		exam, ok := resource.(*model.Exam)
		if !ok {
			return false
		}
		return exam.CreatorID == actor.ID

	case ActionViewExam:
		exam, ok := resource.(*model.Exam)
		if !ok {
			return false
		}
		return exam.IsPublished || exam.CreatorID == actor.ID || actor.Role == model.RoleAdmin

	case ActionViewAttempt:
		attempt, ok := resource.(*model.Attempt)
		if !ok {
			return false
		}
		return attempt.UserID == actor.ID ||
			actor.Role == model.RoleInstructor || actor.Role == model.RoleAdmin

	default:
		return false
	}
}
