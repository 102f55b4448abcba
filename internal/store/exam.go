package store

import (
	"database/sql"
	"time"

	"github.com/examhub/examhub/internal/model"
)

const examColumns = `id, title, description, creator_id, subject, duration_minutes,
	total_questions, passing_score, is_published, created_at, updated_at`

func scanExam(scan func(...any) error) (model.Exam, error) {
	var e model.Exam
	err := scan(&e.ID, &e.Title, &e.Description, &e.CreatorID, &e.Subject, &e.DurationMinutes,
		&e.TotalQuestions, &e.PassingScore, &e.IsPublished, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// CreateExam inserts a new exam and returns its ID.
func (s *Store) CreateExam(e model.Exam) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO exams (title, description, creator_id, subject, duration_minutes, passing_score, is_published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.CreatorID, e.Subject, e.DurationMinutes, e.PassingScore, e.IsPublished, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetExam returns an exam without its questions, or nil if absent.
func (s *Store) GetExam(id int64) (*model.Exam, error) {
	row := s.db.QueryRow(`SELECT `+examColumns+` FROM exams WHERE id = ?`, id)
	e, err := scanExam(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExamWithQuestions returns an exam with its ordered questions and
// options, or nil if absent.
func (s *Store) GetExamWithQuestions(id int64) (*model.Exam, error) {
	e, err := s.GetExam(id)
	if err != nil || e == nil {
		return e, err
	}
	e.Questions, err = s.QuestionsForExam(id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// QuestionsForExam returns the exam's questions in order, options included.
func (s *Store) QuestionsForExam(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, question_text, question_type, difficulty, points, order_index
		 FROM questions WHERE exam_id = ? ORDER BY order_index, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Type, &q.Difficulty, &q.Points, &q.OrderIndex); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range questions {
		opts, err := s.OptionsForQuestion(questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

// OptionsForQuestion returns a question's options in order.
func (s *Store) OptionsForQuestion(questionID int64) ([]model.Option, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, option_text, is_correct, order_index
		 FROM question_options WHERE question_id = ? ORDER BY order_index, id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []model.Option
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect, &o.OrderIndex); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// GetOption returns one option, or nil if absent.
func (s *Store) GetOption(id int64) (*model.Option, error) {
	var o model.Option
	err := s.db.QueryRow(
		`SELECT id, question_id, option_text, is_correct, order_index
		 FROM question_options WHERE id = ?`, id,
	).Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect, &o.OrderIndex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListPublished returns one page of published exams plus the total count.
// Page numbering is 1-based.
func (s *Store) ListPublished(page, perPage int) ([]model.Exam, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM exams WHERE is_published = 1`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.Query(
		`SELECT `+examColumns+` FROM exams WHERE is_published = 1 ORDER BY id LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ExamPatch holds optional exam updates. Nil fields are left unchanged.
type ExamPatch struct {
	Title           *string
	Description     *string
	Subject         *string
	DurationMinutes *int
	PassingScore    *float64
	IsPublished     *bool
}

// UpdateExam applies the non-nil patch fields to an exam.
func (s *Store) UpdateExam(id int64, p ExamPatch) error {
	query := `UPDATE exams SET updated_at = ?`
	args := []any{time.Now().UTC()}
	if p.Title != nil {
		query += `, title = ?`
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		query += `, description = ?`
		args = append(args, *p.Description)
	}
	if p.Subject != nil {
		query += `, subject = ?`
		args = append(args, *p.Subject)
	}
	if p.DurationMinutes != nil {
		query += `, duration_minutes = ?`
		args = append(args, *p.DurationMinutes)
	}
	if p.PassingScore != nil {
		query += `, passing_score = ?`
		args = append(args, *p.PassingScore)
	}
	if p.IsPublished != nil {
		query += `, is_published = ?`
		args = append(args, *p.IsPublished)
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	_, err := s.db.Exec(query, args...)
	return err
}

// AddQuestion inserts a question with its options and refreshes the exam's
// cached question count, all in one transaction.
func (s *Store) AddQuestion(examID int64, q model.Question, opts []model.Option) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO questions (exam_id, question_text, question_type, difficulty, points, order_index)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		examID, q.Text, q.Type, q.Difficulty, q.Points, q.OrderIndex,
	)
	if err != nil {
		return 0, err
	}
	questionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, o := range opts {
		_, err := tx.Exec(
			`INSERT INTO question_options (question_id, option_text, is_correct, order_index)
			 VALUES (?, ?, ?, ?)`,
			questionID, o.Text, o.IsCorrect, i,
		)
		if err != nil {
			return 0, err
		}
	}

	// Keep total_questions consistent with the live count.
	_, err = tx.Exec(
		`UPDATE exams SET total_questions = (SELECT COUNT(*) FROM questions WHERE exam_id = ?), updated_at = ?
		 WHERE id = ?`,
		examID, time.Now().UTC(), examID,
	)
	if err != nil {
		return 0, err
	}

	return questionID, tx.Commit()
}
