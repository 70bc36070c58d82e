package session

import (
	"errors"
	"testing"

	"narrated-quiz-service/internal/domain"
)

func TestNextFollowsSessionFlow(t *testing.T) {
	cases := []struct {
		from    domain.SessionState
		trigger Trigger
		want    domain.SessionState
	}{
		{domain.StateConfiguring, TriggerStart, domain.StateLoading},
		{domain.StateConfiguring, TriggerRetry, domain.StateLoading},
		{domain.StateLoading, TriggerFetched, domain.StateNarrating},
		{domain.StateLoading, TriggerExhausted, domain.StateExhausted},
		{domain.StateLoading, TriggerFetchFailed, domain.StateConfiguring},
		{domain.StateNarrating, TriggerNarrated, domain.StateAwaitingAnswer},
		{domain.StateAwaitingAnswer, TriggerAnswered, domain.StateRevealing},
		{domain.StateRevealing, TriggerRevealed, domain.StateAdvancing},
		{domain.StateAdvancing, TriggerContinue, domain.StateLoading},
		{domain.StateAdvancing, TriggerFinish, domain.StateCompleted},
		{domain.StateAwaitingAnswer, TriggerSkip, domain.StateLoading},
		{domain.StateNarrating, TriggerQuit, domain.StateCompleted},
		{domain.StateCompleted, TriggerRestart, domain.StateConfiguring},
		{domain.StateExhausted, TriggerRestart, domain.StateConfiguring},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"/"+tc.trigger.String(), func(t *testing.T) {
			got, err := Next(tc.from, tc.trigger)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNextRejectsInvalidTriggers(t *testing.T) {
	cases := []struct {
		from    domain.SessionState
		trigger Trigger
	}{
		{domain.StateConfiguring, TriggerSkip},
		{domain.StateConfiguring, TriggerQuit},
		{domain.StateNarrating, TriggerAnswered},
		{domain.StateAwaitingAnswer, TriggerStart},
		{domain.StateCompleted, TriggerSkip},
		{domain.StateExhausted, TriggerQuit},
		{domain.StateRevealing, TriggerRestart},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.trigger)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("%s/%s: expected ErrInvalidTransition, got %v", tc.from, tc.trigger, err)
		}
		if got != tc.from {
			t.Fatalf("%s/%s: state changed to %s", tc.from, tc.trigger, got)
		}
	}
}

func TestTerminalStatesOnlyRestart(t *testing.T) {
	for _, s := range []domain.SessionState{domain.StateCompleted, domain.StateExhausted} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		for trig := TriggerStart; trig <= TriggerRestart; trig++ {
			_, err := Next(s, trig)
			if trig == TriggerRestart {
				if err != nil {
					t.Fatalf("%s: restart rejected: %v", s, err)
				}
				continue
			}
			if err == nil {
				t.Fatalf("%s: %s accepted", s, trig)
			}
		}
	}
}
