package session

import (
	"context"
	"fmt"
	"log"

	"narrated-quiz-service/internal/domain"
)

// Audio is synthesized speech ready for playback.
type Audio struct {
	Format string
	Data   []byte
}

// Voice selects how narration is spoken.
type Voice struct {
	Name  string
	Speed float64
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) (Audio, error)
}

// Player is the single audio output. Play blocks until the audio finished, failed, or ctx
// was cancelled; Stop silences whatever is playing.
type Player interface {
	Play(ctx context.Context, audio Audio) error
	Stop()
}

// Purpose tells what a narration is for.
type Purpose int

const (
	PurposeQuestion Purpose = iota
	PurposeReveal
)

func (p Purpose) String() string {
	if p == PurposeReveal {
		return "reveal"
	}
	return "question"
}

// NarrationTask is one synthesis request owned by a sequence token.
type NarrationTask struct {
	id            uint64
	Text          string
	Purpose       Purpose
	OwnerToken    uint64
	Status        domain.NarrationStatus
	Audio         Audio
	Err           error
	cancel        context.CancelFunc
	playWhenReady bool
}

type playback struct {
	id     uint64
	task   *NarrationTask
	cancel context.CancelFunc
}

// narrator owns synthesis tasks and the exclusive audio output. It is loop-confined.
type narrator struct {
	base   context.Context
	synth  Synthesizer
	player Player
	voice  Voice
	sched  scheduler

	current  uint64
	nextID   uint64
	tasks    map[uint64]*NarrationTask
	nextPlay uint64
	playing  *playback
}

func newNarrator(base context.Context, synth Synthesizer, player Player, voice Voice, sched scheduler) *narrator {
	return &narrator{
		base:   base,
		synth:  synth,
		player: player,
		voice:  voice,
		sched:  sched,
		tasks:  make(map[uint64]*NarrationTask),
	}
}

// prepare starts synthesis for token. The result is retained until the token is superseded.
func (n *narrator) prepare(token uint64, purpose Purpose, text string) *NarrationTask {
	if existing := n.task(token, purpose); existing != nil {
		return existing
	}
	ctx, cancel := context.WithCancel(n.base)
	n.nextID++
	t := &NarrationTask{
		id:         n.nextID,
		Text:       text,
		Purpose:    purpose,
		OwnerToken: token,
		Status:     domain.NarrationPending,
		cancel:     cancel,
	}
	n.tasks[t.id] = t

	id, synth, voice := t.id, n.synth, n.voice
	n.sched.spawn(taskSynthesis, ctx, func(ctx context.Context) event {
		audio, err := synth.Synthesize(ctx, text, voice)
		return synthResult{taskID: id, audio: audio, err: err}
	})
	return t
}

func (n *narrator) task(token uint64, purpose Purpose) *NarrationTask {
	for _, t := range n.tasks {
		if t.OwnerToken == token && t.Purpose == purpose {
			return t
		}
	}
	return nil
}

// handleSynth applies a synthesis result. It returns nil when the task was superseded.
func (n *narrator) handleSynth(ev synthResult) *NarrationTask {
	t, ok := n.tasks[ev.taskID]
	if !ok || t.OwnerToken != n.current {
		return nil
	}
	t.cancel()
	if ev.err != nil {
		t.Status = domain.NarrationFailed
		t.Err = fmt.Errorf("%w: %v", domain.ErrSynthesis, ev.err)
		return t
	}
	if len(ev.audio.Data) == 0 {
		t.Status = domain.NarrationFailed
		t.Err = fmt.Errorf("%w: empty audio", domain.ErrSynthesis)
		return t
	}
	t.Audio = ev.audio
	t.Status = domain.NarrationReady
	return t
}

// play starts t on the audio output, releasing the previous playback first.
func (n *narrator) play(t *NarrationTask) {
	n.release()

	ctx, cancel := context.WithCancel(n.base)
	n.nextPlay++
	n.playing = &playback{id: n.nextPlay, task: t, cancel: cancel}
	t.Status = domain.NarrationPlaying
	t.playWhenReady = false

	id, player, audio := n.nextPlay, n.player, t.Audio
	n.sched.spawn(taskPlayback, ctx, func(ctx context.Context) event {
		return playbackResult{playID: id, err: player.Play(ctx, audio)}
	})
}

// handlePlayback applies a playback completion. It returns nil for playbacks that were
// released in the meantime.
func (n *narrator) handlePlayback(ev playbackResult) (*NarrationTask, error) {
	p := n.playing
	if p == nil || p.id != ev.playID {
		return nil, nil
	}
	n.playing = nil
	p.cancel()
	if ev.err != nil {
		p.task.Status = domain.NarrationFailed
		p.task.Err = fmt.Errorf("%w: %v", domain.ErrPlayback, ev.err)
		return p.task, p.task.Err
	}
	p.task.Status = domain.NarrationDone
	return p.task, nil
}

// release stops the current playback, if any.
func (n *narrator) release() {
	p := n.playing
	if p == nil {
		return
	}
	n.playing = nil
	p.cancel()
	n.player.Stop()
	if p.task.Status == domain.NarrationPlaying {
		p.task.Status = domain.NarrationDone
	}
}

// supersede makes token current: audio stops and every task owned by another token is
// cancelled and forgotten, so late results are discarded.
func (n *narrator) supersede(token uint64) {
	n.current = token
	n.release()
	for id, t := range n.tasks {
		if t.OwnerToken == token {
			continue
		}
		t.cancel()
		if t.Status == domain.NarrationPending {
			log.Printf("narration: discarding pending %s narration of token %d", t.Purpose, t.OwnerToken)
		}
		delete(n.tasks, id)
	}
}
