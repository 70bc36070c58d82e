package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"narrated-quiz-service/internal/domain"
)

const eventBuffer = 64

// Controller runs one narrated quiz session. Commands and asynchronous completions are
// serialized onto a single loop goroutine; the exported methods are safe for concurrent use.
type Controller struct {
	id        string
	learnerID string
	bank      QuestionBank
	machine   *machine

	events   chan event
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	tasks    sync.WaitGroup
	cancel   context.CancelFunc

	mu          sync.RWMutex
	latest      domain.Snapshot
	closed      bool
	subscribers map[chan domain.Snapshot]struct{}
}

// NewController starts the session loop. The session waits in the configuring state until
// Start is called.
func NewController(cfg Config, deps Deps) (*Controller, error) {
	if deps.Bank == nil {
		return nil, errors.New("session: question bank is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:          cfg.ID,
		learnerID:   cfg.LearnerID,
		bank:        deps.Bank,
		events:      make(chan event, eventBuffer),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		cancel:      cancel,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	c.machine = newMachine(ctx, cfg, deps, c)
	c.latest = c.machine.snapshot()
	go c.run()
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case ev := <-c.events:
			cmd, ok := ev.(commandEvent)
			if !ok {
				c.machine.handle(ev)
				c.publish(c.machine.snapshot())
				continue
			}
			// Publish before replying so callers observe their own command.
			err := cmd.apply(c.machine)
			c.publish(c.machine.snapshot())
			cmd.reply <- err
		case <-c.stop:
			c.machine.shutdown()
			c.publish(c.machine.snapshot())
			c.cancel()
			return
		}
	}
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) spawn(_ taskKind, ctx context.Context, fn func(ctx context.Context) event) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		if ev := fn(ctx); ev != nil {
			c.post(ev)
		}
	}()
}

func (c *Controller) do(fn func(m *machine) error) error {
	reply := make(chan error, 1)
	select {
	case c.events <- commandEvent{apply: fn, reply: reply}:
	case <-c.done:
		return domain.ErrSessionClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return domain.ErrSessionClosed
		}
	}
}

// Start validates the selection and begins loading the first question.
func (c *Controller) Start(sel domain.Selection, target int) error {
	return c.do(func(m *machine) error { return m.start(sel, target) })
}

// Answer submits a learner's choice for the question identified by token. It reports whether
// the answer was accepted; answers for stale or already answered questions are ignored.
func (c *Controller) Answer(token uint64, value string) (bool, error) {
	var accepted bool
	err := c.do(func(m *machine) error {
		var err error
		accepted, err = m.submitManual(token, value)
		return err
	})
	return accepted, err
}

// Skip abandons the current question and loads the next one.
func (c *Controller) Skip() error {
	return c.do(func(m *machine) error { return m.skip() })
}

// Quit ends the session early and surfaces the summary.
func (c *Controller) Quit() error {
	return c.do(func(m *machine) error { return m.quit() })
}

// Retry resumes loading after a failed fetch.
func (c *Controller) Retry() error {
	return c.do(func(m *machine) error { return m.retry() })
}

// Restart returns a finished session to configuring. Restarting an exhausted session also
// clears the learner's progress for its selection.
func (c *Controller) Restart(ctx context.Context) error {
	var (
		reset bool
		sel   domain.Selection
	)
	err := c.do(func(m *machine) error {
		reset = m.state == domain.StateExhausted
		sel = m.selection
		return m.restart()
	})
	if err != nil || !reset {
		return err
	}
	if err := c.bank.ResetProgress(ctx, sel, c.learnerID); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// SetSound toggles narration from the next question on.
func (c *Controller) SetSound(enabled bool) error {
	return c.do(func(m *machine) error {
		m.setSound(enabled)
		return nil
	})
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Subscribe returns a channel of snapshots, starting with the current one. Slow readers only
// ever see the newest snapshot. The caller must invoke cancel to avoid leaks.
func (c *Controller) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 1)

	c.mu.Lock()
	ch <- c.latest
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) publish(s domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = s
	for ch := range c.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Close quits an active session, stops the loop and waits for outstanding work. It is safe to
// call more than once.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	c.tasks.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

// Done is closed once the session loop has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}
