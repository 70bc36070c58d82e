package session

import (
	"fmt"

	"narrated-quiz-service/internal/domain"
)

// Trigger is an input to the session state machine.
type Trigger int

const (
	TriggerStart Trigger = iota
	TriggerRetry
	TriggerFetched
	TriggerExhausted
	TriggerFetchFailed
	TriggerNarrated
	TriggerAnswered
	TriggerRevealed
	TriggerContinue
	TriggerFinish
	TriggerSkip
	TriggerQuit
	TriggerRestart
)

var triggerNames = [...]string{
	TriggerStart:       "start",
	TriggerRetry:       "retry",
	TriggerFetched:     "fetched",
	TriggerExhausted:   "exhausted",
	TriggerFetchFailed: "fetchFailed",
	TriggerNarrated:    "narrated",
	TriggerAnswered:    "answered",
	TriggerRevealed:    "revealed",
	TriggerContinue:    "continue",
	TriggerFinish:      "finish",
	TriggerSkip:        "skip",
	TriggerQuit:        "quit",
	TriggerRestart:     "restart",
}

func (t Trigger) String() string {
	if int(t) < 0 || int(t) >= len(triggerNames) {
		return fmt.Sprintf("trigger(%d)", int(t))
	}
	return triggerNames[t]
}

type edge struct {
	from    domain.SessionState
	trigger Trigger
}

var transitions = func() map[edge]domain.SessionState {
	t := map[edge]domain.SessionState{
		{domain.StateConfiguring, TriggerStart}:       domain.StateLoading,
		{domain.StateConfiguring, TriggerRetry}:       domain.StateLoading,
		{domain.StateLoading, TriggerFetched}:         domain.StateNarrating,
		{domain.StateLoading, TriggerExhausted}:       domain.StateExhausted,
		{domain.StateLoading, TriggerFetchFailed}:     domain.StateConfiguring,
		{domain.StateNarrating, TriggerNarrated}:      domain.StateAwaitingAnswer,
		{domain.StateAwaitingAnswer, TriggerAnswered}: domain.StateRevealing,
		{domain.StateRevealing, TriggerRevealed}:      domain.StateAdvancing,
		{domain.StateAdvancing, TriggerContinue}:      domain.StateLoading,
		{domain.StateAdvancing, TriggerFinish}:        domain.StateCompleted,
		{domain.StateCompleted, TriggerRestart}:       domain.StateConfiguring,
		{domain.StateExhausted, TriggerRestart}:       domain.StateConfiguring,
	}
	for _, s := range []domain.SessionState{
		domain.StateLoading,
		domain.StateNarrating,
		domain.StateAwaitingAnswer,
		domain.StateRevealing,
		domain.StateAdvancing,
	} {
		t[edge{s, TriggerSkip}] = domain.StateLoading
		t[edge{s, TriggerQuit}] = domain.StateCompleted
	}
	return t
}()

// Next is the pure transition function of the session.
func Next(from domain.SessionState, trigger Trigger) (domain.SessionState, error) {
	to, ok := transitions[edge{from, trigger}]
	if !ok {
		return from, fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, trigger, from)
	}
	return to, nil
}
