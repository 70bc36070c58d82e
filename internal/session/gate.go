package session

import (
	"time"

	"narrated-quiz-service/internal/domain"
)

// Gate accepts exactly one answer per sequence token. Only the token it was opened for is
// accepted; everything attributable to another question is dropped.
type Gate struct {
	now             func() time.Time
	cancelCountdown func()
	onAccept        func(rec domain.AnswerRecord)

	open    uint64
	correct string
	records map[uint64]domain.AnswerRecord
}

func newGate(now func() time.Time) *Gate {
	return &Gate{
		now:             now,
		cancelCountdown: func() {},
		onAccept:        func(domain.AnswerRecord) {},
		records:         make(map[uint64]domain.AnswerRecord),
	}
}

// Open starts accepting answers for token.
func (g *Gate) Open(token uint64, correctAnswer string) {
	g.open = token
	g.correct = correctAnswer
}

// Close stops accepting answers until the next Open.
func (g *Gate) Close() {
	g.open = 0
	g.correct = ""
}

// Reset forgets all records, for a new session.
func (g *Gate) Reset() {
	g.Close()
	g.records = make(map[uint64]domain.AnswerRecord)
}

// Submit reports whether the answer was accepted. Acceptance cancels the answer countdown for
// manual answers, stores the record and hands it to onAccept before returning.
func (g *Gate) Submit(value string, source domain.AnswerSource, token uint64) bool {
	if g.open == 0 || token != g.open {
		return false
	}
	if _, taken := g.records[token]; taken {
		return false
	}
	rec := domain.AnswerRecord{
		Value:   value,
		Source:  source,
		Token:   token,
		Correct: value == g.correct,
		At:      g.now(),
	}
	if source == domain.SourceManual {
		g.cancelCountdown()
	}
	g.records[token] = rec
	g.onAccept(rec)
	return true
}

// Record returns the accepted answer for token, if any.
func (g *Gate) Record(token uint64) (domain.AnswerRecord, bool) {
	rec, ok := g.records[token]
	return rec, ok
}
