package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"narrated-quiz-service/internal/domain"
	_ "modernc.org/sqlite" // driver: sqlite
)

// QuestionStore keeps questions in a local SQLite file, for development without Postgres.
type QuestionStore struct {
	db *sql.DB
}

// Open opens the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*QuestionStore, error) {
	dsn := "file:" + path + "?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &QuestionStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  grade TEXT NOT NULL,
  subject TEXT NOT NULL,
  term TEXT NOT NULL,
  context TEXT NOT NULL DEFAULT '',
  prompt TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_answer TEXT NOT NULL,
  explanation TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS questions_selection_idx ON questions (grade, subject, term);
`

func (s *QuestionStore) Close() error {
	return s.db.Close()
}

func (s *QuestionStore) LoadQuestions(ctx context.Context, sel domain.Selection) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, context, prompt, options_json, correct_answer, explanation
		FROM questions
		WHERE grade = ? AND subject = ? AND term = ?
		ORDER BY id`, sel.Grade, sel.Subject, sel.Term)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       = domain.Question{Selection: sel}
			options string
		)
		if err := rows.Scan(&q.ID, &q.Context, &q.Prompt, &options, &q.CorrectAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			log.Printf("skipping question %s: bad options: %v", q.ID, err)
			continue
		}
		if err := q.Validate(); err != nil {
			log.Printf("skipping question %s: %v", q.ID, err)
			continue
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Upsert writes questions by id in one transaction.
func (s *QuestionStore) Upsert(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, grade, subject, term, context, prompt, options_json, correct_answer, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  grade=excluded.grade, subject=excluded.subject, term=excluded.term,
		  context=excluded.context, prompt=excluded.prompt, options_json=excluded.options_json,
		  correct_answer=excluded.correct_answer, explanation=excluded.explanation`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, q := range questions {
		if err := q.Selection.Validate(); err != nil {
			return 0, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if err := q.Validate(); err != nil {
			return 0, err
		}
		options, err := json.Marshal(q.Options)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, q.ID, q.Selection.Grade, q.Selection.Subject, q.Selection.Term,
			q.Context, q.Prompt, string(options), q.CorrectAnswer, q.Explanation); err != nil {
			return 0, fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(questions), nil
}
