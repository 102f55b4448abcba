package store

import (
	"testing"

	"github.com/examhub/examhub/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestUser(t *testing.T, s *Store, username string, role model.Role) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		FullName:     "Test " + username,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("insertTestUser: %v", err)
	}
	return id
}

func insertTestExam(t *testing.T, s *Store, creatorID int64, title string, published bool) int64 {
	t.Helper()
	id, err := s.CreateExam(model.Exam{
		Title:           title,
		Description:     "about " + title,
		CreatorID:       creatorID,
		Subject:         "testing",
		DurationMinutes: 30,
		PassingScore:    60,
		IsPublished:     published,
	})
	if err != nil {
		t.Fatalf("insertTestExam: %v", err)
	}
	return id
}

func addTestQuestion(t *testing.T, s *Store, examID int64, text string, qt model.QuestionType, points float64, opts []model.Option) int64 {
	t.Helper()
	id, err := s.AddQuestion(examID, model.Question{
		Text:       text,
		Type:       qt,
		Difficulty: model.DifficultyMedium,
		Points:     points,
	}, opts)
	if err != nil {
		t.Fatalf("addTestQuestion: %v", err)
	}
	return id
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id := insertTestUser(t, s, "alice", model.RoleStudent)

	u, err := s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil || u.Username != "alice" {
		t.Fatalf("expected alice, got %+v", u)
	}
	if u.Role != model.RoleStudent {
		t.Errorf("expected role student, got %q", u.Role)
	}

	u, err = s.GetUserByUsername("alice")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetUserByUsername: user=%+v err=%v", u, err)
	}

	u, err = s.GetUserByEmail("alice@example.com")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetUserByEmail: user=%+v err=%v", u, err)
	}

	// Absent users come back nil without an error.
	u, err = s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername(nobody): %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}

	count, err = s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestUserUniqueness(t *testing.T) {
	s := newTestStore(t)
	insertTestUser(t, s, "alice", model.RoleStudent)

	_, err := s.CreateUser(model.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "hash",
		Role:         model.RoleStudent,
	})
	if err == nil {
		t.Error("expected duplicate username to fail")
	}

	_, err = s.CreateUser(model.User{
		Username:     "bob",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         model.RoleStudent,
	})
	if err == nil {
		t.Error("expected duplicate email to fail")
	}
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)

	id := insertTestExam(t, s, creator, "Go Basics", false)

	e, err := s.GetExam(id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e == nil || e.Title != "Go Basics" {
		t.Fatalf("expected 'Go Basics', got %+v", e)
	}
	if e.IsPublished {
		t.Error("expected unpublished exam")
	}
	if e.TotalQuestions != 0 {
		t.Errorf("expected 0 questions, got %d", e.TotalQuestions)
	}

	e, err = s.GetExam(9999)
	if err != nil {
		t.Fatalf("GetExam(absent): %v", err)
	}
	if e != nil {
		t.Errorf("expected nil for absent exam, got %+v", e)
	}
}

func TestUpdateExamPatch(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	id := insertTestExam(t, s, creator, "Draft", false)

	newTitle := "Final"
	published := true
	err := s.UpdateExam(id, ExamPatch{Title: &newTitle, IsPublished: &published})
	if err != nil {
		t.Fatalf("UpdateExam: %v", err)
	}

	e, err := s.GetExam(id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e.Title != "Final" {
		t.Errorf("expected title 'Final', got %q", e.Title)
	}
	if !e.IsPublished {
		t.Error("expected published exam")
	}
	// Untouched fields keep their values.
	if e.DurationMinutes != 30 || e.PassingScore != 60 {
		t.Errorf("unpatched fields changed: duration=%d passing=%v", e.DurationMinutes, e.PassingScore)
	}
}

func TestAddQuestionUpdatesCount(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	examID := insertTestExam(t, s, creator, "Go Basics", false)

	qID := addTestQuestion(t, s, examID, "What is a channel?", model.TypeMultipleChoice, 2, []model.Option{
		{Text: "A typed conduit", IsCorrect: true},
		{Text: "A file descriptor"},
	})
	addTestQuestion(t, s, examID, "Go has classes.", model.TypeTrueFalse, 1, []model.Option{
		{Text: "false", IsCorrect: true},
	})

	e, err := s.GetExamWithQuestions(examID)
	if err != nil {
		t.Fatalf("GetExamWithQuestions: %v", err)
	}
	if e.TotalQuestions != 2 {
		t.Errorf("expected total_questions 2, got %d", e.TotalQuestions)
	}
	if len(e.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(e.Questions))
	}
	if e.Questions[0].ID != qID {
		t.Errorf("expected first question %d, got %d", qID, e.Questions[0].ID)
	}

	opts := e.Questions[0].Options
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if !opts[0].IsCorrect || opts[1].IsCorrect {
		t.Errorf("option correctness wrong: %+v", opts)
	}
	if opts[0].OrderIndex != 0 || opts[1].OrderIndex != 1 {
		t.Errorf("option order wrong: %+v", opts)
	}
}

func TestListPublishedPagination(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)

	for i := 0; i < 5; i++ {
		insertTestExam(t, s, creator, "Published", true)
	}
	insertTestExam(t, s, creator, "Draft", false)

	exams, total, err := s.ListPublished(1, 2)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(exams) != 2 {
		t.Errorf("expected page of 2, got %d", len(exams))
	}

	exams, _, err = s.ListPublished(3, 2)
	if err != nil {
		t.Fatalf("ListPublished page 3: %v", err)
	}
	if len(exams) != 1 {
		t.Errorf("expected last page of 1, got %d", len(exams))
	}

	// Out-of-range page is empty, not an error.
	exams, _, err = s.ListPublished(10, 2)
	if err != nil {
		t.Fatalf("ListPublished page 10: %v", err)
	}
	if len(exams) != 0 {
		t.Errorf("expected empty page, got %d", len(exams))
	}
}

func TestGetOrCreateAttemptIdempotent(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	student := insertTestUser(t, s, "stu", model.RoleStudent)
	examID := insertTestExam(t, s, creator, "Go Basics", true)

	a1, created, err := s.GetOrCreateAttempt(examID, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}
	if !created {
		t.Error("expected first call to create")
	}
	if a1.Status != model.StatusInProgress {
		t.Errorf("expected in_progress, got %q", a1.Status)
	}

	a2, created, err := s.GetOrCreateAttempt(examID, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt second call: %v", err)
	}
	if created {
		t.Error("expected second call to resume")
	}
	if a2.ID != a1.ID {
		t.Errorf("expected same attempt %d, got %d", a1.ID, a2.ID)
	}

	// A graded attempt no longer blocks a new one.
	if err := s.FinalizeAttempt(a1.ID, nil, 0, 0, false); err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}
	a3, created, err := s.GetOrCreateAttempt(examID, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt after grading: %v", err)
	}
	if !created || a3.ID == a1.ID {
		t.Errorf("expected fresh attempt after grading: created=%v id=%d", created, a3.ID)
	}
}

func TestUpsertAnswerOverwrites(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	student := insertTestUser(t, s, "stu", model.RoleStudent)
	examID := insertTestExam(t, s, creator, "Go Basics", true)
	qID := addTestQuestion(t, s, examID, "Essay it.", model.TypeEssay, 5, nil)

	a, _, err := s.GetOrCreateAttempt(examID, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}

	if err := s.UpsertAnswer(a.ID, qID, "first draft", nil); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}
	if err := s.UpsertAnswer(a.ID, qID, "final answer", nil); err != nil {
		t.Fatalf("UpsertAnswer overwrite: %v", err)
	}

	answers, err := s.AnswersForAttempt(a.ID)
	if err != nil {
		t.Fatalf("AnswersForAttempt: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer after overwrite, got %d", len(answers))
	}
	if answers[0].AnswerText != "final answer" {
		t.Errorf("expected overwritten text, got %q", answers[0].AnswerText)
	}
	if answers[0].IsCorrect != nil {
		t.Errorf("expected ungraded answer, got is_correct=%v", *answers[0].IsCorrect)
	}
}

func TestFinalizeAttempt(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	student := insertTestUser(t, s, "stu", model.RoleStudent)
	examID := insertTestExam(t, s, creator, "Go Basics", true)
	qID := addTestQuestion(t, s, examID, "What is a channel?", model.TypeMultipleChoice, 2, []model.Option{
		{Text: "A typed conduit", IsCorrect: true},
	})

	a, _, err := s.GetOrCreateAttempt(examID, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}
	opts, err := s.OptionsForQuestion(qID)
	if err != nil {
		t.Fatalf("OptionsForQuestion: %v", err)
	}
	if err := s.UpsertAnswer(a.ID, qID, "", &opts[0].ID); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}

	answers, err := s.AnswersForAttempt(a.ID)
	if err != nil {
		t.Fatalf("AnswersForAttempt: %v", err)
	}
	correct := true
	answers[0].IsCorrect = &correct
	answers[0].PointsEarned = 2

	if err := s.FinalizeAttempt(a.ID, answers, 2, 100, true); err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}

	got, err := s.GetAttempt(a.ID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if got.Status != model.StatusGraded {
		t.Errorf("expected graded, got %q", got.Status)
	}
	if got.Score != 2 || got.Percentage != 100 || !got.IsPassed {
		t.Errorf("aggregate wrong: %+v", got)
	}
	if got.EndTime == nil {
		t.Error("expected end_time set")
	}

	answers, err = s.AnswersForAttempt(a.ID)
	if err != nil {
		t.Fatalf("AnswersForAttempt after finalize: %v", err)
	}
	if answers[0].IsCorrect == nil || !*answers[0].IsCorrect {
		t.Errorf("expected graded answer, got %+v", answers[0])
	}
	if answers[0].PointsEarned != 2 {
		t.Errorf("expected 2 points, got %v", answers[0].PointsEarned)
	}
}

func TestUpdateAnswerFeedback(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	student := insertTestUser(t, s, "stu", model.RoleStudent)
	examID := insertTestExam(t, s, creator, "Go Basics", true)
	qID := addTestQuestion(t, s, examID, "Essay it.", model.TypeEssay, 5, nil)

	a, _, err := s.GetOrCreateAttempt(examID, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}
	if err := s.UpsertAnswer(a.ID, qID, "my essay", nil); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}
	answers, err := s.AnswersForAttempt(a.ID)
	if err != nil {
		t.Fatalf("AnswersForAttempt: %v", err)
	}

	if err := s.UpdateAnswerFeedback(answers[0].ID, "solid structure"); err != nil {
		t.Fatalf("UpdateAnswerFeedback: %v", err)
	}

	ans, err := s.GetAnswer(answers[0].ID)
	if err != nil {
		t.Fatalf("GetAnswer: %v", err)
	}
	if ans.AIFeedback != "solid structure" {
		t.Errorf("expected feedback stored, got %q", ans.AIFeedback)
	}
	if ans.PointsEarned != 0 {
		t.Errorf("feedback must not change score, got %v", ans.PointsEarned)
	}
}

func TestExamStatistics(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	examID := insertTestExam(t, s, creator, "Go Basics", true)

	// No graded attempts yields all zeros.
	stats, err := s.ExamStatistics(examID)
	if err != nil {
		t.Fatalf("ExamStatistics: %v", err)
	}
	if stats.TotalAttempts != 0 || stats.AverageScore != 0 || stats.PassRate != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}

	for i, res := range []struct {
		pct    float64
		passed bool
	}{{80, true}, {40, false}} {
		student := insertTestUser(t, s, "stu"+string(rune('a'+i)), model.RoleStudent)
		a, _, err := s.GetOrCreateAttempt(examID, student)
		if err != nil {
			t.Fatalf("GetOrCreateAttempt: %v", err)
		}
		if err := s.FinalizeAttempt(a.ID, nil, res.pct, res.pct, res.passed); err != nil {
			t.Fatalf("FinalizeAttempt: %v", err)
		}
	}

	// An in-progress attempt must not count.
	other := insertTestUser(t, s, "lurker", model.RoleStudent)
	if _, _, err := s.GetOrCreateAttempt(examID, other); err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}

	stats, err = s.ExamStatistics(examID)
	if err != nil {
		t.Fatalf("ExamStatistics: %v", err)
	}
	if stats.TotalAttempts != 2 {
		t.Errorf("expected 2 graded attempts, got %d", stats.TotalAttempts)
	}
	if stats.AverageScore != 60 {
		t.Errorf("expected average 60, got %v", stats.AverageScore)
	}
	if stats.HighestScore != 80 || stats.LowestScore != 40 {
		t.Errorf("expected high 80 low 40, got %+v", stats)
	}
	if stats.PassRate != 50 {
		t.Errorf("expected pass rate 50, got %v", stats.PassRate)
	}
}

func TestAttemptsForUser(t *testing.T) {
	s := newTestStore(t)
	creator := insertTestUser(t, s, "teach", model.RoleInstructor)
	student := insertTestUser(t, s, "stu", model.RoleStudent)
	exam1 := insertTestExam(t, s, creator, "First Exam", true)
	exam2 := insertTestExam(t, s, creator, "Second Exam", true)

	a1, _, err := s.GetOrCreateAttempt(exam1, student)
	if err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}
	if err := s.FinalizeAttempt(a1.ID, nil, 100, 100, true); err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}
	if _, _, err := s.GetOrCreateAttempt(exam2, student); err != nil {
		t.Fatalf("GetOrCreateAttempt: %v", err)
	}

	attempts, err := s.AttemptsForUser(student)
	if err != nil {
		t.Fatalf("AttemptsForUser: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	for _, a := range attempts {
		if a.ExamTitle == "" {
			t.Errorf("expected exam title on attempt %d", a.ID)
		}
	}

	// Another user's history is empty.
	attempts, err = s.AttemptsForUser(creator)
	if err != nil {
		t.Fatalf("AttemptsForUser(creator): %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("expected no attempts, got %d", len(attempts))
	}
}
