package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"narrated-quiz-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys of the bookkeeping events.
const (
	AnswerRecordedKey   = "answer.recorded"
	SessionCompletedKey = "session.completed"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends accepted answers and session summaries to a topic exchange.
type Publisher struct {
	exchange string
	conn     *amqp.Connection

	mu sync.Mutex
	ch channel
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	log.Printf("publishing results to exchange %s", exchange)
	return &Publisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func newPublisher(exchange string, ch channel) *Publisher {
	return &Publisher{exchange: exchange, ch: ch}
}

func (p *Publisher) RecordAnswer(ctx context.Context, res domain.AnswerResult) error {
	return p.publish(ctx, AnswerRecordedKey, res.SessionID, res)
}

func (p *Publisher) RecordSession(ctx context.Context, res domain.SessionResult) error {
	return p.publish(ctx, SessionCompletedKey, res.SessionID, res)
}

func (p *Publisher) publish(ctx context.Context, key, sessionID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: sessionID,
		Timestamp:     time.Now(),
		Body:          body,
	}
	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Close closes the broker connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
