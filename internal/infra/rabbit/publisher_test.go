package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"narrated-quiz-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublisherRoutesResults(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher("quiz.results", ch)
	sel := domain.Selection{Grade: "5", Subject: "math", Term: "1"}

	err := p.RecordAnswer(context.Background(), domain.AnswerResult{
		SessionID:  "s-1",
		LearnerID:  "l-1",
		Selection:  sel,
		QuestionID: "q1",
		Answer:     domain.AnswerRecord{Value: "56", Source: domain.SourceManual, Token: 2, Correct: true, At: time.Unix(0, 0).UTC()},
	})
	require.NoError(t, err)
	err = p.RecordSession(context.Background(), domain.SessionResult{
		SessionID: "s-1",
		LearnerID: "l-1",
		Selection: sel,
		Summary:   domain.Summary{Presented: 5, Target: 5, Correct: 3},
	})
	require.NoError(t, err)

	require.Len(t, ch.sent, 2)
	require.Equal(t, "quiz.results", ch.sent[0].exchange)
	require.Equal(t, AnswerRecordedKey, ch.sent[0].key)
	require.Equal(t, SessionCompletedKey, ch.sent[1].key)
	require.Equal(t, "s-1", ch.sent[0].msg.CorrelationId)
	require.Equal(t, "application/json", ch.sent[0].msg.ContentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &decoded))
	summary := decoded["summary"].(map[string]any)
	require.Equal(t, float64(3), summary["correct"])
}

func TestPublisherWrapsErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newPublisher("quiz.results", ch)

	err := p.RecordSession(context.Background(), domain.SessionResult{SessionID: "s-1"})
	require.ErrorContains(t, err, SessionCompletedKey)
	require.ErrorContains(t, err, "channel closed")
	require.NoError(t, p.Close())
}
