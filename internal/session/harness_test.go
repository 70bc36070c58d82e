package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"narrated-quiz-service/internal/domain"
)

var epoch = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

type fakeTimer struct {
	at      time.Time
	seq     int
	f       func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.seq++
	t := &fakeTimer{at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// nextDue returns the earliest pending timer due no later than end.
func (c *fakeClock) nextDue(end time.Time) *fakeTimer {
	pending := c.timers[:0]
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			pending = append(pending, t)
		}
	}
	c.timers = pending
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].at.Equal(pending[j].at) {
			return pending[i].at.Before(pending[j].at)
		}
		return pending[i].seq < pending[j].seq
	})
	if len(pending) == 0 || pending[0].at.After(end) {
		return nil
	}
	return pending[0]
}

type pendingTask struct {
	kind taskKind
	ctx  context.Context
	fn   func(ctx context.Context) event
}

// harness drives a machine deterministically: posted events queue up, spawned tasks run when
// flushed unless their kind is held, and time only moves through advance.
type harness struct {
	t        *testing.T
	clock    *fakeClock
	queue    []event
	tasks    []pendingTask
	held     map[taskKind]bool
	m        *machine
	bank     *fakeBank
	synth    *fakeSynth
	player   *fakePlayer
	prefs    *fakePrefs
	recorder *fakeRecorder
}

func newHarness(t *testing.T, cfg Config, questions ...domain.Question) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clock:    newFakeClock(),
		held:     make(map[taskKind]bool),
		bank:     newFakeBank(questions...),
		synth:    newFakeSynth(),
		player:   &fakePlayer{},
		prefs:    newFakePrefs(),
		recorder: &fakeRecorder{},
	}
	if cfg.ID == "" {
		cfg.ID = "s-1"
	}
	if cfg.LearnerID == "" {
		cfg.LearnerID = "learner-1"
	}
	h.m = newMachine(context.Background(), cfg, Deps{
		Bank:        h.bank,
		Synthesizer: h.synth,
		Player:      h.player,
		Preferences: h.prefs,
		Recorder:    h.recorder,
		Clock:       h.clock,
	}, h)
	return h
}

func (h *harness) post(ev event) {
	h.queue = append(h.queue, ev)
}

func (h *harness) spawn(kind taskKind, ctx context.Context, fn func(ctx context.Context) event) {
	h.tasks = append(h.tasks, pendingTask{kind: kind, ctx: ctx, fn: fn})
}

func (h *harness) runTask(i int) {
	task := h.tasks[i]
	h.tasks = append(h.tasks[:i], h.tasks[i+1:]...)
	if ev := task.fn(task.ctx); ev != nil {
		h.queue = append(h.queue, ev)
	}
}

// flush processes queued events and runs unheld tasks until nothing is left to do.
func (h *harness) flush() {
	for {
		if len(h.queue) > 0 {
			ev := h.queue[0]
			h.queue = h.queue[1:]
			h.m.handle(ev)
			continue
		}
		next := -1
		for i, task := range h.tasks {
			if !h.held[task.kind] {
				next = i
				break
			}
		}
		if next < 0 {
			return
		}
		h.runTask(next)
	}
}

func (h *harness) hold(kind taskKind) {
	h.held[kind] = true
}

// runHeld runs the oldest held task of kind and flushes, keeping the kind held.
func (h *harness) runHeld(kind taskKind) {
	h.t.Helper()
	for i, task := range h.tasks {
		if task.kind == kind {
			h.runTask(i)
			h.flush()
			return
		}
	}
	h.t.Fatalf("no held task of kind %d", kind)
}

func (h *harness) heldCount(kind taskKind) int {
	n := 0
	for _, task := range h.tasks {
		if task.kind == kind {
			n++
		}
	}
	return n
}

// fire moves time forward, invoking due timer callbacks without processing what they post.
func (h *harness) fire(d time.Duration) {
	end := h.clock.now.Add(d)
	for t := h.clock.nextDue(end); t != nil; t = h.clock.nextDue(end) {
		h.clock.now = t.at
		t.fired = true
		t.f()
	}
	h.clock.now = end
}

// advance moves time forward, processing everything each timer causes as it fires.
func (h *harness) advance(d time.Duration) {
	end := h.clock.now.Add(d)
	for t := h.clock.nextDue(end); t != nil; t = h.clock.nextDue(end) {
		h.clock.now = t.at
		t.fired = true
		t.f()
		h.flush()
	}
	h.clock.now = end
}

func (h *harness) elapsed() time.Duration {
	return h.clock.now.Sub(epoch)
}

func (h *harness) start(target int) {
	h.t.Helper()
	if err := h.m.start(testSelection, target); err != nil {
		h.t.Fatalf("start: %v", err)
	}
	h.flush()
}

func (h *harness) snapshot() domain.Snapshot {
	return h.m.snapshot()
}

func (h *harness) state() domain.SessionState {
	return h.m.state
}

func (h *harness) token() uint64 {
	h.t.Helper()
	if h.m.current == nil {
		h.t.Fatalf("no current question in state %s", h.m.state)
	}
	return h.m.current.SequenceToken
}

func (h *harness) answer(value string) (bool, error) {
	h.t.Helper()
	ok, err := h.m.submitManual(h.token(), value)
	h.flush()
	return ok, err
}

var testSelection = domain.Selection{Grade: "5", Subject: "math", Term: "1"}

func testQuestion(n int) domain.Question {
	return domain.Question{
		ID:            fmt.Sprintf("q%d", n),
		Selection:     testSelection,
		Prompt:        fmt.Sprintf("What is %d + %d?", n, n),
		Options:       []string{fmt.Sprint(2 * n), fmt.Sprint(2*n + 1), fmt.Sprint(2*n + 2), fmt.Sprint(2*n + 3)},
		CorrectAnswer: fmt.Sprint(2 * n),
		Explanation:   fmt.Sprintf("%d plus %d is %d.", n, n, 2*n),
	}
}

func testQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = testQuestion(i + 1)
	}
	return qs
}

// fakeBank hands out questions in order and reports exhaustion afterwards.
type fakeBank struct {
	mu        sync.Mutex
	questions []domain.Question
	next      int
	errs      []error
	calls     int
	resets    int
}

func newFakeBank(questions ...domain.Question) *fakeBank {
	return &fakeBank{questions: questions}
}

func (b *fakeBank) NextQuestion(ctx context.Context, _ domain.Selection, _ string) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if err := ctx.Err(); err != nil {
		return domain.Question{}, err
	}
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		return domain.Question{}, err
	}
	if b.next >= len(b.questions) {
		return domain.Question{}, domain.ErrExhausted
	}
	q := b.questions[b.next]
	b.next++
	return q, nil
}

func (b *fakeBank) ResetProgress(context.Context, domain.Selection, string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
	b.next = 0
	return nil
}

func (b *fakeBank) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fakeSynth returns the text itself as audio.
type fakeSynth struct {
	mu        sync.Mutex
	calls     map[string]int
	fail      bool
	empty     bool
	cancelled []string
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{calls: make(map[string]int)}
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string, _ Voice) (Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[text]++
	if err := ctx.Err(); err != nil {
		s.cancelled = append(s.cancelled, text)
		return Audio{}, err
	}
	if s.fail {
		return Audio{}, errors.New("tts unavailable")
	}
	if s.empty {
		return Audio{Format: "mp3"}, nil
	}
	return Audio{Format: "mp3", Data: []byte(text)}, nil
}

func (s *fakeSynth) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// fakePlayer finishes playback immediately unless its context was cancelled.
type fakePlayer struct {
	mu     sync.Mutex
	played []string
	err    error
	stops  int
}

func (p *fakePlayer) Play(ctx context.Context, audio Audio) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	p.played = append(p.played, string(audio.Data))
	return p.err
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) plays() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

type fakePrefs struct {
	mu    sync.Mutex
	sound map[string]bool
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{sound: make(map[string]bool)}
}

func (p *fakePrefs) SoundEnabled(_ context.Context, deviceID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	enabled, ok := p.sound[deviceID]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func (p *fakePrefs) SetSoundEnabled(_ context.Context, deviceID string, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sound[deviceID] = enabled
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	answers  []domain.AnswerResult
	sessions []domain.SessionResult
}

func (r *fakeRecorder) RecordAnswer(_ context.Context, res domain.AnswerResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, res)
	return nil
}

func (r *fakeRecorder) RecordSession(_ context.Context, res domain.SessionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, res)
	return nil
}

func (r *fakeRecorder) sessionResults() []domain.SessionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionResult(nil), r.sessions...)
}
