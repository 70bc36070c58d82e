package session

import (
	"context"

	"narrated-quiz-service/internal/domain"
)

// event is anything the loop processes. Events are applied one at a time by a single goroutine.
type event interface{}

// scheduler is how the machine reaches outside the loop. post may be called from any goroutine;
// spawn runs fn off the loop and posts the event it returns (nil events are dropped).
type scheduler interface {
	post(ev event)
	spawn(kind taskKind, ctx context.Context, fn func(ctx context.Context) event)
}

type taskKind int

const (
	taskFetch taskKind = iota
	taskSynthesis
	taskPlayback
	taskRecord
	taskPersist
)

type commandEvent struct {
	apply func(m *machine) error
	reply chan error
}

type fetchResult struct {
	token    uint64
	question domain.Question
	err      error
}

type synthResult struct {
	taskID uint64
	audio  Audio
	err    error
}

type playbackResult struct {
	playID uint64
	err    error
}

type countdownTick struct {
	id   uint64
	role domain.CountdownRole
}
