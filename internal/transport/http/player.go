package http

import (
	"context"
	"fmt"
	"log"
	"sync"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
)

type audioPayload struct {
	PlaybackID string `json:"playbackId"`
	Format     string `json:"format"`
	Data       []byte `json:"data"`
}

type playbackEndedPayload struct {
	PlaybackID string `json:"playbackId"`
	Error      string `json:"error,omitempty"`
}

// SocketPlayer plays narration on the client at the other end of a websocket. Play streams the
// audio and blocks until the client reports playbackEnded for it.
type SocketPlayer struct {
	out  chan<- outboundMessage[any]
	done <-chan struct{}

	// sendMu orders audio against stopAudio on out.
	sendMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[string]chan error
}

// NewSocketPlayer queues audio and stopAudio messages on out, which the connection writer drains
// in order; done closes with the connection.
func NewSocketPlayer(out chan<- outboundMessage[any], done <-chan struct{}) *SocketPlayer {
	return &SocketPlayer{
		out:     out,
		done:    done,
		pending: make(map[string]chan error),
	}
}

var _ session.Player = (*SocketPlayer)(nil)

func (p *SocketPlayer) Play(ctx context.Context, audio session.Audio) error {
	p.mu.Lock()
	p.nextID++
	id := fmt.Sprintf("p-%d", p.nextID)
	ended := make(chan error, 1)
	p.pending[id] = ended
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	msg := outboundMessage[any]{Type: "audio", Payload: audioPayload{PlaybackID: id, Format: audio.Format, Data: audio.Data}}
	if err := p.enqueue(ctx, msg); err != nil {
		return err
	}
	select {
	case err := <-ended:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return fmt.Errorf("%w: connection closed", domain.ErrPlayback)
	}
}

// enqueue queues msg unless ctx is already cancelled. The narrator cancels a playback before it
// calls Stop, so audio of a released playback never follows its stopAudio.
func (p *SocketPlayer) enqueue(ctx context.Context, msg outboundMessage[any]) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return fmt.Errorf("%w: connection closed", domain.ErrPlayback)
	}
}

// Stop never blocks: it runs on the session loop.
func (p *SocketPlayer) Stop() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	select {
	case p.out <- outboundMessage[any]{Type: "stopAudio", Payload: struct{}{}}:
	case <-p.done:
	default:
		log.Printf("stopAudio dropped: playback queue full")
	}
}

// ended resolves the playback the client finished. Unknown ids belong to playbacks that were
// already cancelled.
func (p *SocketPlayer) ended(ev playbackEndedPayload) {
	p.mu.Lock()
	ch, ok := p.pending[ev.PlaybackID]
	p.mu.Unlock()
	if !ok {
		return
	}
	var err error
	if ev.Error != "" {
		err = fmt.Errorf("%w: %s", domain.ErrPlayback, ev.Error)
	}
	select {
	case ch <- err:
	default:
	}
}
