package store

import (
	"database/sql"
	"time"

	"github.com/examhub/examhub/internal/model"
)

const attemptColumns = `id, exam_id, user_id, start_time, end_time, score, percentage, status, is_passed`

func scanAttempt(scan func(...any) error) (model.Attempt, error) {
	var a model.Attempt
	err := scan(&a.ID, &a.ExamID, &a.UserID, &a.StartTime, &a.EndTime,
		&a.Score, &a.Percentage, &a.Status, &a.IsPassed)
	return a, err
}

// GetOrCreateAttempt returns the user's in-progress attempt for the exam,
// creating one when none exists. The second return value reports whether a
// new attempt was created. A partial unique index on
// (exam_id, user_id, status='in_progress') backs the one-attempt invariant.
func (s *Store) GetOrCreateAttempt(examID, userID int64) (*model.Attempt, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = ? AND user_id = ? AND status = 'in_progress'`,
		examID, userID)
	a, err := scanAttempt(row.Scan)
	if err == nil {
		return &a, false, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	now := time.Now().UTC()
	res, err := tx.Exec(
		`INSERT INTO attempts (exam_id, user_id, start_time, status) VALUES (?, ?, ?, 'in_progress')`,
		examID, userID, now)
	if err != nil {
		return nil, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &model.Attempt{
		ID:        id,
		ExamID:    examID,
		UserID:    userID,
		StartTime: now,
		Status:    model.StatusInProgress,
	}, true, nil
}

// GetAttempt returns an attempt by ID, or nil if absent.
func (s *Store) GetAttempt(id int64) (*model.Attempt, error) {
	row := s.db.QueryRow(`SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAnswer records a student's answer to one question. A second
// submission for the same (attempt, question) overwrites the first.
func (s *Store) UpsertAnswer(attemptID, questionID int64, answerText string, selectedOptionID *int64) error {
	_, err := s.db.Exec(
		`INSERT INTO answers (attempt_id, question_id, answer_text, selected_option_id, submitted_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(attempt_id, question_id) DO UPDATE SET
		   answer_text = excluded.answer_text,
		   selected_option_id = excluded.selected_option_id,
		   submitted_at = excluded.submitted_at`,
		attemptID, questionID, answerText, selectedOptionID, time.Now().UTC(),
	)
	return err
}

const answerColumns = `id, attempt_id, question_id, answer_text, selected_option_id,
	is_correct, points_earned, ai_feedback, submitted_at`

// AnswersForAttempt returns the attempt's answers ordered by question.
func (s *Store) AnswersForAttempt(attemptID int64) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT `+answerColumns+` FROM answers WHERE attempt_id = ? ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.AnswerText, &a.SelectedOptionID,
			&a.IsCorrect, &a.PointsEarned, &a.AIFeedback, &a.SubmittedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// GetAnswer returns one answer by ID, or nil if absent.
func (s *Store) GetAnswer(id int64) (*model.Answer, error) {
	var a model.Answer
	err := s.db.QueryRow(`SELECT `+answerColumns+` FROM answers WHERE id = ?`, id).
		Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.AnswerText, &a.SelectedOptionID,
			&a.IsCorrect, &a.PointsEarned, &a.AIFeedback, &a.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAnswerFeedback stores AI-generated feedback text on an answer.
// Feedback never changes the numeric score.
func (s *Store) UpdateAnswerFeedback(answerID int64, feedback string) error {
	_, err := s.db.Exec(`UPDATE answers SET ai_feedback = ? WHERE id = ?`, feedback, answerID)
	return err
}

// FinalizeAttempt writes per-answer grading results and the attempt's
// aggregate score in a single transaction, transitioning the attempt
// through submitted to graded.
func (s *Store) FinalizeAttempt(attemptID int64, answers []model.Answer, score, percentage float64, passed bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range answers {
		_, err := tx.Exec(
			`UPDATE answers SET is_correct = ?, points_earned = ? WHERE id = ?`,
			a.IsCorrect, a.PointsEarned, a.ID,
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		`UPDATE attempts SET end_time = ?, score = ?, percentage = ?, is_passed = ?, status = 'graded'
		 WHERE id = ?`,
		time.Now().UTC(), score, percentage, passed, attemptID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ExamStatistics aggregates graded attempts for one exam. Zero graded
// attempts yields all-zero statistics.
func (s *Store) ExamStatistics(examID int64) (model.ExamStatistics, error) {
	stats := model.ExamStatistics{ExamID: examID}
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(AVG(percentage), 0),
		        COALESCE(MAX(percentage), 0),
		        COALESCE(MIN(percentage), 0),
		        COALESCE(AVG(is_passed) * 100, 0)
		 FROM attempts WHERE exam_id = ? AND status = 'graded'`,
		examID,
	).Scan(&stats.TotalAttempts, &stats.AverageScore, &stats.HighestScore, &stats.LowestScore, &stats.PassRate)
	return stats, err
}

// AttemptsForUser returns the user's attempts, most recent first, each
// annotated with its exam's title.
func (s *Store) AttemptsForUser(userID int64) ([]model.Attempt, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.exam_id, a.user_id, a.start_time, a.end_time, a.score,
		        a.percentage, a.status, a.is_passed, e.title
		 FROM attempts a JOIN exams e ON e.id = a.exam_id
		 WHERE a.user_id = ? ORDER BY a.start_time DESC, a.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.StartTime, &a.EndTime,
			&a.Score, &a.Percentage, &a.Status, &a.IsPassed, &a.ExamTitle); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
