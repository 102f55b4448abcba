package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'student',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		creator_id INTEGER NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL DEFAULT 60,
		total_questions INTEGER NOT NULL DEFAULT 0,
		passing_score REAL NOT NULL DEFAULT 60.0,
		is_published INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (creator_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		question_type TEXT NOT NULL DEFAULT 'multiple_choice',
		difficulty TEXT NOT NULL DEFAULT 'medium',
		points REAL NOT NULL DEFAULT 1.0,
		order_index INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS question_options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		option_text TEXT NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		order_index INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		score REAL NOT NULL DEFAULT 0,
		percentage REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'in_progress',
		is_passed INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_in_progress
		ON attempts(exam_id, user_id) WHERE status = 'in_progress';

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer_text TEXT NOT NULL DEFAULT '',
		selected_option_id INTEGER,
		is_correct INTEGER,
		points_earned REAL NOT NULL DEFAULT 0,
		ai_feedback TEXT NOT NULL DEFAULT '',
		submitted_at DATETIME NOT NULL,
		UNIQUE (attempt_id, question_id),
		FOREIGN KEY (attempt_id) REFERENCES attempts(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
