package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"narrated-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            string   `bun:"id,pk"`
	Grade         string   `bun:"grade"`
	Subject       string   `bun:"subject"`
	Term          string   `bun:"term"`
	Context       string   `bun:"context"`
	Prompt        string   `bun:"prompt"`
	Options       []string `bun:"options,array"`
	CorrectAnswer string   `bun:"correct_answer"`
	Explanation   string   `bun:"explanation"`
}

// SeedQuestions upserts questions by id and returns how many were written.
func SeedQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		if err := q.Selection.Validate(); err != nil {
			return 0, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if err := q.Validate(); err != nil {
			return 0, err
		}
		rows = append(rows, questionRow{
			ID:            q.ID,
			Grade:         q.Selection.Grade,
			Subject:       q.Selection.Subject,
			Term:          q.Selection.Term,
			Context:       q.Context,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("grade = EXCLUDED.grade").
		Set("subject = EXCLUDED.subject").
		Set("term = EXCLUDED.term").
		Set("context = EXCLUDED.context").
		Set("prompt = EXCLUDED.prompt").
		Set("options = EXCLUDED.options").
		Set("correct_answer = EXCLUDED.correct_answer").
		Set("explanation = EXCLUDED.explanation").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed questions: %w", err)
	}
	return len(rows), nil
}

type answerRow struct {
	bun.BaseModel `bun:"table:answer_results"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  string    `bun:"session_id"`
	LearnerID  string    `bun:"learner_id"`
	Grade      string    `bun:"grade"`
	Subject    string    `bun:"subject"`
	Term       string    `bun:"term"`
	QuestionID string    `bun:"question_id"`
	Value      string    `bun:"value"`
	Source     string    `bun:"source"`
	Correct    bool      `bun:"correct"`
	AnsweredAt time.Time `bun:"answered_at"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:session_results"`

	SessionID string    `bun:"session_id,pk"`
	LearnerID string    `bun:"learner_id"`
	Grade     string    `bun:"grade"`
	Subject   string    `bun:"subject"`
	Term      string    `bun:"term"`
	Presented int       `bun:"presented"`
	Target    int       `bun:"target"`
	Correct   int       `bun:"correct"`
	Aborted   bool      `bun:"aborted"`
	EndedAt   time.Time `bun:"ended_at"`
}

// ResultStore keeps the answer and session bookkeeping in Postgres.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) RecordAnswer(ctx context.Context, res domain.AnswerResult) error {
	row := answerRow{
		SessionID:  res.SessionID,
		LearnerID:  res.LearnerID,
		Grade:      res.Selection.Grade,
		Subject:    res.Selection.Subject,
		Term:       res.Selection.Term,
		QuestionID: res.QuestionID,
		Value:      res.Answer.Value,
		Source:     string(res.Answer.Source),
		Correct:    res.Answer.Correct,
		AnsweredAt: res.Answer.At,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *ResultStore) RecordSession(ctx context.Context, res domain.SessionResult) error {
	row := sessionRow{
		SessionID: res.SessionID,
		LearnerID: res.LearnerID,
		Grade:     res.Selection.Grade,
		Subject:   res.Selection.Subject,
		Term:      res.Selection.Term,
		Presented: res.Summary.Presented,
		Target:    res.Summary.Target,
		Correct:   res.Summary.Correct,
		Aborted:   res.Summary.Aborted,
		EndedAt:   res.EndedAt,
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("presented = EXCLUDED.presented").
		Set("correct = EXCLUDED.correct").
		Set("aborted = EXCLUDED.aborted").
		Set("ended_at = EXCLUDED.ended_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}
