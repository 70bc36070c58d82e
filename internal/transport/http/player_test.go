package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
)

func newCapturingPlayer() (*SocketPlayer, chan outboundMessage[any], chan struct{}) {
	sent := make(chan outboundMessage[any], 4)
	done := make(chan struct{})
	return NewSocketPlayer(sent, done), sent, done
}

func TestSocketPlayerWaitsForPlaybackEnded(t *testing.T) {
	player, sent, _ := newCapturingPlayer()
	result := make(chan error, 1)
	go func() {
		result <- player.Play(context.Background(), session.Audio{Format: "mp3", Data: []byte("abc")})
	}()

	msg := <-sent
	audio, ok := msg.Payload.(audioPayload)
	if msg.Type != "audio" || !ok {
		t.Fatalf("unexpected message %+v", msg)
	}

	player.ended(playbackEndedPayload{PlaybackID: "unknown"})
	select {
	case err := <-result:
		t.Fatalf("play returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	player.ended(playbackEndedPayload{PlaybackID: audio.PlaybackID, Error: "decode failed"})
	if err := <-result; !errors.Is(err, domain.ErrPlayback) {
		t.Fatalf("expected playback error, got %v", err)
	}
}

func TestSocketPlayerStopsOnCancelAndClose(t *testing.T) {
	player, sent, done := newCapturingPlayer()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- player.Play(ctx, session.Audio{Format: "mp3", Data: []byte("a")}) }()
	<-sent
	cancel()
	if err := <-result; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	go func() { result <- player.Play(context.Background(), session.Audio{Format: "mp3", Data: []byte("b")}) }()
	<-sent
	close(done)
	if err := <-result; !errors.Is(err, domain.ErrPlayback) {
		t.Fatalf("expected playback error after close, got %v", err)
	}

	player.Stop()
	if msg := <-sent; msg.Type != "stopAudio" {
		t.Fatalf("expected stopAudio, got %s", msg.Type)
	}
}

func TestSocketPlayerNeverSendsAudioAfterStop(t *testing.T) {
	player, sent, _ := newCapturingPlayer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	player.Stop()
	if err := player.Play(ctx, session.Audio{Format: "mp3", Data: []byte("stale")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	if msg := <-sent; msg.Type != "stopAudio" {
		t.Fatalf("expected stopAudio, got %s", msg.Type)
	}
	if len(sent) != 0 {
		t.Fatalf("expected no audio after stopAudio, got %d more messages", len(sent))
	}
}

func TestSocketPlayerCancelReleasesQueuedAudio(t *testing.T) {
	out := make(chan outboundMessage[any], 1)
	out <- outboundMessage[any]{Type: "state"}
	player := NewSocketPlayer(out, make(chan struct{}))

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- player.Play(ctx, session.Audio{Format: "mp3", Data: []byte("a")}) }()
	select {
	case err := <-result:
		t.Fatalf("play returned with a full queue: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	player.Stop()
	if err := <-result; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if msg := <-out; msg.Type != "state" {
		t.Fatalf("expected only the queued state message, got %s", msg.Type)
	}
	if len(out) != 0 {
		t.Fatalf("expected cancelled audio to stay unsent")
	}
}

func TestSocketPlayerStopDoesNotBlockOnFullQueue(t *testing.T) {
	out := make(chan outboundMessage[any], 1)
	out <- outboundMessage[any]{Type: "state"}
	player := NewSocketPlayer(out, make(chan struct{}))

	stopped := make(chan struct{})
	go func() {
		player.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("stop blocked on a full queue")
	}
}
