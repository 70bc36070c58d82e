package app

import (
	"context"
	"errors"
	"log"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
)

// LogRecorder writes bookkeeping events to the process log.
type LogRecorder struct{}

func (LogRecorder) RecordAnswer(_ context.Context, res domain.AnswerResult) error {
	log.Printf("session %s: question %s answered %q (%s, correct=%t)",
		res.SessionID, res.QuestionID, res.Answer.Value, res.Answer.Source, res.Answer.Correct)
	return nil
}

func (LogRecorder) RecordSession(_ context.Context, res domain.SessionResult) error {
	log.Printf("session %s: finished %s with %d/%d correct (target %d, aborted=%t)",
		res.SessionID, res.Selection.Key(), res.Summary.Correct, res.Summary.Presented, res.Summary.Target, res.Summary.Aborted)
	return nil
}

// MultiRecorder fans bookkeeping out to every recorder; one failing does not stop the rest.
type MultiRecorder []session.ResultRecorder

func (m MultiRecorder) RecordAnswer(ctx context.Context, res domain.AnswerResult) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordAnswer(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) RecordSession(ctx context.Context, res domain.SessionResult) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordSession(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
