package postgres

import (
	"context"
	"fmt"
	"log"

	"narrated-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads question pools from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, sel domain.Selection) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, context, prompt, options, correct_answer, explanation
		FROM questions
		WHERE grade=$1 AND subject=$2 AND term=$3
		ORDER BY id`, sel.Grade, sel.Subject, sel.Term)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q := domain.Question{Selection: sel}
		if err := rows.Scan(&q.ID, &q.Context, &q.Prompt, &q.Options, &q.CorrectAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := q.Validate(); err != nil {
			log.Printf("skipping question %s: %v", q.ID, err)
			continue
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
