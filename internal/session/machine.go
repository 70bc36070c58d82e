package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"narrated-quiz-service/internal/domain"
)

// Default timings of the narrated quiz.
const (
	DefaultAnswerWithSound  = 10 * time.Second
	DefaultAnswerSilent     = 20 * time.Second
	DefaultAdvance          = 5 * time.Second
	DefaultNarrationTimeout = 30 * time.Second
	DefaultRecordTimeout    = 5 * time.Second

	// MaxTarget bounds the number of questions in one session.
	MaxTarget = 50
)

var defaultRevealMessages = []string{"Well done!", "Great job!", "Nice work!", "Keep it up!"}

// QuestionBank is the question retrieval collaborator. NextQuestion returns
// domain.ErrExhausted when nothing is left; any other error is retryable.
type QuestionBank interface {
	NextQuestion(ctx context.Context, sel domain.Selection, learnerID string) (domain.Question, error)
	ResetProgress(ctx context.Context, sel domain.Selection, learnerID string) error
}

// PreferenceStore persists the sound preference of a device.
type PreferenceStore interface {
	SoundEnabled(ctx context.Context, deviceID string) (bool, error)
	SetSoundEnabled(ctx context.Context, deviceID string, enabled bool) error
}

// ResultRecorder receives accepted answers and session summaries for bookkeeping.
type ResultRecorder interface {
	RecordAnswer(ctx context.Context, res domain.AnswerResult) error
	RecordSession(ctx context.Context, res domain.SessionResult) error
}

// Config tunes one session. Zero durations take the defaults; a negative NarrationTimeout
// disables the narration watchdog.
type Config struct {
	ID           string
	LearnerID    string
	DeviceID     string
	SoundEnabled bool

	AnswerWithSound  time.Duration
	AnswerSilent     time.Duration
	Advance          time.Duration
	NarrationTimeout time.Duration
	RecordTimeout    time.Duration

	Voice          Voice
	RevealMessages []string
	// Speakable turns display text into narration text.
	Speakable func(string) string
}

func (c Config) withDefaults() Config {
	if c.AnswerWithSound <= 0 {
		c.AnswerWithSound = DefaultAnswerWithSound
	}
	if c.AnswerSilent <= 0 {
		c.AnswerSilent = DefaultAnswerSilent
	}
	if c.Advance <= 0 {
		c.Advance = DefaultAdvance
	}
	if c.NarrationTimeout == 0 {
		c.NarrationTimeout = DefaultNarrationTimeout
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = DefaultRecordTimeout
	}
	if c.Voice.Speed == 0 {
		c.Voice.Speed = 1
	}
	if len(c.RevealMessages) == 0 {
		c.RevealMessages = defaultRevealMessages
	}
	if c.Speakable == nil {
		c.Speakable = func(s string) string { return s }
	}
	return c
}

// Deps are the collaborators of a session. Without a Synthesizer or Player every question
// runs silent.
type Deps struct {
	Bank        QuestionBank
	Synthesizer Synthesizer
	Player      Player
	Preferences PreferenceStore
	Recorder    ResultRecorder
	Clock       Clock
}

// machine is the session state machine. It is confined to one goroutine; everything that
// happens outside comes back as an event.
type machine struct {
	cfg   Config
	deps  Deps
	sched scheduler
	base  context.Context

	state       domain.SessionState
	selection   domain.Selection
	token       uint64
	current     *domain.QuestionInstance
	silent      bool
	sound       bool
	resumable   bool
	lastErr     string
	summary     *domain.Summary
	fetchCancel context.CancelFunc

	progress Progress
	gate     *Gate
	timers   *countdowns
	narr     *narrator
}

func newMachine(base context.Context, cfg Config, deps Deps, sched scheduler) *machine {
	cfg = cfg.withDefaults()
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	m := &machine{
		cfg:   cfg,
		deps:  deps,
		sched: sched,
		base:  base,
		state: domain.StateConfiguring,
		sound: cfg.SoundEnabled,
	}
	m.timers = newCountdowns(deps.Clock, sched.post)
	m.gate = newGate(deps.Clock.Now)
	m.gate.cancelCountdown = func() { m.timers.cancelRole(domain.AnswerCountdown) }
	m.gate.onAccept = m.answerAccepted
	m.narr = newNarrator(base, deps.Synthesizer, deps.Player, cfg.Voice, sched)
	return m
}

func (m *machine) handle(ev event) {
	switch ev := ev.(type) {
	case fetchResult:
		m.onFetched(ev)
	case synthResult:
		m.onSynthesized(ev)
	case playbackResult:
		m.onPlayed(ev)
	case countdownTick:
		m.timers.handleTick(ev)
	default:
		log.Printf("session %s: unexpected event %T", m.cfg.ID, ev)
	}
}

// move applies trigger through Next. Internal callers only move along valid edges, so a
// failure here is logged rather than returned.
func (m *machine) move(t Trigger) bool {
	next, err := Next(m.state, t)
	if err != nil {
		log.Printf("session %s: %v", m.cfg.ID, err)
		return false
	}
	log.Printf("session %s: %s -> %s", m.cfg.ID, m.state, next)
	m.state = next
	return true
}

func (m *machine) audioAvailable() bool {
	return m.deps.Synthesizer != nil && m.deps.Player != nil
}

func (m *machine) start(sel domain.Selection, target int) error {
	if _, err := Next(m.state, TriggerStart); err != nil {
		return err
	}
	if err := sel.Validate(); err != nil {
		m.lastErr = err.Error()
		return err
	}
	if target <= 0 || target > MaxTarget {
		err := fmt.Errorf("%w: question count must be between 1 and %d", domain.ErrValidation, MaxTarget)
		m.lastErr = err.Error()
		return err
	}
	m.selection = sel
	m.progress.Reset(target)
	m.gate.Reset()
	m.summary = nil
	m.resumable = false
	m.lastErr = ""
	m.move(TriggerStart)
	m.beginLoading()
	return nil
}

func (m *machine) retry() error {
	if !m.resumable {
		return fmt.Errorf("%w: nothing to retry", domain.ErrInvalidTransition)
	}
	if _, err := Next(m.state, TriggerRetry); err != nil {
		return err
	}
	m.resumable = false
	m.lastErr = ""
	m.move(TriggerRetry)
	m.beginLoading()
	return nil
}

// supersede bumps the token and then cancels everything the previous token owned: countdowns,
// the gate, synthesis, playback and the pending fetch.
func (m *machine) supersede() {
	m.token++
	m.timers.cancelAll()
	m.gate.Close()
	m.narr.supersede(m.token)
	if m.fetchCancel != nil {
		m.fetchCancel()
		m.fetchCancel = nil
	}
	m.current = nil
	m.silent = false
}

func (m *machine) beginLoading() {
	m.supersede()

	ctx, cancel := context.WithCancel(m.base)
	m.fetchCancel = cancel
	token, sel, learner, bank := m.token, m.selection, m.cfg.LearnerID, m.deps.Bank
	m.sched.spawn(taskFetch, ctx, func(ctx context.Context) event {
		q, err := bank.NextQuestion(ctx, sel, learner)
		return fetchResult{token: token, question: q, err: err}
	})
}

func (m *machine) onFetched(ev fetchResult) {
	if ev.token != m.token || m.state != domain.StateLoading {
		return
	}
	if m.fetchCancel != nil {
		m.fetchCancel()
		m.fetchCancel = nil
	}
	if ev.err == nil {
		if err := ev.question.Validate(); err != nil {
			ev.err = fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		}
	}

	switch {
	case ev.err == nil:
		m.supersede()
		m.move(TriggerFetched)
		m.current = &domain.QuestionInstance{
			Question:      ev.question,
			SequenceToken: m.token,
			NarrationText: narrationText(ev.question, m.cfg.Speakable),
		}
		m.lastErr = ""
		m.beginNarration()
	case errors.Is(ev.err, domain.ErrExhausted):
		log.Printf("session %s: question bank exhausted after %d questions", m.cfg.ID, m.progress.Presented())
		m.supersede()
		m.move(TriggerExhausted)
	default:
		log.Printf("session %s: fetch failed: %v", m.cfg.ID, ev.err)
		m.lastErr = fmt.Sprintf("could not load the next question: %v", ev.err)
		m.resumable = true
		m.move(TriggerFetchFailed)
	}
}

func (m *machine) beginNarration() {
	m.silent = !m.sound || !m.audioAvailable()
	if m.silent {
		m.enterAwaiting()
		return
	}
	m.narr.prepare(m.token, PurposeQuestion, m.current.NarrationText)
	if m.cfg.NarrationTimeout > 0 {
		token := m.token
		m.timers.start(domain.NarrationWatchdog, token, m.cfg.NarrationTimeout, func() {
			m.narrationTimedOut(token)
		})
	}
}

func (m *machine) narrationTimedOut(token uint64) {
	if token != m.token || m.state != domain.StateNarrating {
		return
	}
	m.degrade(fmt.Errorf("%w: narration not finished after %s", domain.ErrSynthesis, m.cfg.NarrationTimeout))
}

// degrade makes the current question silent and moves on to the answer countdown.
func (m *machine) degrade(err error) {
	log.Printf("session %s: narration for token %d degraded to silent: %v", m.cfg.ID, m.token, err)
	m.lastErr = err.Error()
	m.silent = true
	m.narr.release()
	m.enterAwaiting()
}

func (m *machine) onSynthesized(ev synthResult) {
	t := m.narr.handleSynth(ev)
	if t == nil {
		return
	}
	switch t.Purpose {
	case PurposeQuestion:
		if m.state != domain.StateNarrating {
			return
		}
		if t.Status == domain.NarrationFailed {
			m.degrade(t.Err)
			return
		}
		m.narr.play(t)
	case PurposeReveal:
		if t.Status == domain.NarrationFailed {
			log.Printf("session %s: reveal narration for token %d failed: %v", m.cfg.ID, t.OwnerToken, t.Err)
			return
		}
		if t.playWhenReady && m.state == domain.StateRevealing && !m.silent {
			m.narr.play(t)
		}
	}
}

func (m *machine) onPlayed(ev playbackResult) {
	t, err := m.narr.handlePlayback(ev)
	if t == nil {
		return
	}
	if t.Purpose == PurposeQuestion && m.state == domain.StateNarrating {
		if err != nil {
			m.degrade(err)
			return
		}
		m.enterAwaiting()
		return
	}
	if err != nil {
		log.Printf("session %s: %s playback failed: %v", m.cfg.ID, t.Purpose, err)
		m.lastErr = err.Error()
	}
}

func (m *machine) enterAwaiting() {
	m.timers.cancelRole(domain.NarrationWatchdog)
	m.move(TriggerNarrated)
	m.progress.MarkPresented(m.token)

	d := m.cfg.AnswerWithSound
	if m.silent {
		d = m.cfg.AnswerSilent
	}
	token := m.token
	m.gate.Open(token, m.current.Question.CorrectAnswer)
	m.timers.start(domain.AnswerCountdown, token, d, func() { m.autoSubmit(token) })
	if !m.silent {
		m.narr.prepare(token, PurposeReveal, m.revealText())
	}
}

func (m *machine) autoSubmit(token uint64) {
	if m.current == nil || token != m.token {
		return
	}
	if !m.gate.Submit(m.current.Question.CorrectAnswer, domain.SourceAuto, token) {
		log.Printf("session %s: %v: auto answer for token %d", m.cfg.ID, domain.ErrGateRejected, token)
	}
}

func (m *machine) submitManual(token uint64, value string) (bool, error) {
	if m.current != nil && token == m.token && !m.current.Question.HasOption(value) {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownOption, value)
	}
	if !m.gate.Submit(value, domain.SourceManual, token) {
		log.Printf("session %s: %v: manual answer for token %d", m.cfg.ID, domain.ErrGateRejected, token)
		return false, nil
	}
	return true, nil
}

// answerAccepted runs synchronously inside Gate.Submit.
func (m *machine) answerAccepted(rec domain.AnswerRecord) {
	m.move(TriggerAnswered)
	m.timers.cancelRole(domain.AnswerCountdown)
	if rec.Source == domain.SourceManual && rec.Correct {
		m.progress.RecordCorrect()
	}
	m.recordAnswer(rec)

	token := m.token
	m.timers.start(domain.AdvanceCountdown, token, m.cfg.Advance, func() { m.advance(token) })
	if m.silent {
		return
	}
	if t := m.narr.task(token, PurposeReveal); t != nil {
		switch t.Status {
		case domain.NarrationReady:
			m.narr.play(t)
		case domain.NarrationPending:
			t.playWhenReady = true
		}
	}
}

func (m *machine) advance(token uint64) {
	if token != m.token || m.state != domain.StateRevealing {
		return
	}
	m.move(TriggerRevealed)
	m.narr.release()
	if m.progress.Done() {
		m.supersede()
		m.move(TriggerFinish)
		m.complete(false)
		return
	}
	m.move(TriggerContinue)
	m.beginLoading()
}

func (m *machine) skip() error {
	if _, err := Next(m.state, TriggerSkip); err != nil {
		return err
	}
	if m.progress.Done() {
		m.supersede()
		m.move(TriggerQuit)
		m.complete(false)
		return nil
	}
	m.move(TriggerSkip)
	m.beginLoading()
	return nil
}

func (m *machine) quit() error {
	if _, err := Next(m.state, TriggerQuit); err != nil {
		return err
	}
	m.supersede()
	m.move(TriggerQuit)
	m.complete(!m.progress.Done())
	return nil
}

func (m *machine) complete(aborted bool) {
	summary := m.progress.Summary(aborted)
	m.summary = &summary
	log.Printf("session %s: completed %d/%d (aborted=%t)", m.cfg.ID, summary.Presented, summary.Target, aborted)
	m.recordSession(summary)
}

func (m *machine) restart() error {
	if _, err := Next(m.state, TriggerRestart); err != nil {
		return err
	}
	m.supersede()
	m.move(TriggerRestart)
	m.selection = domain.Selection{}
	m.progress.Reset(0)
	m.gate.Reset()
	m.summary = nil
	m.resumable = false
	m.lastErr = ""
	return nil
}

// setSound takes effect from the next question.
func (m *machine) setSound(enabled bool) {
	m.sound = enabled
	prefs, device := m.deps.Preferences, m.cfg.DeviceID
	if prefs == nil || device == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.base), m.cfg.RecordTimeout)
	m.sched.spawn(taskPersist, ctx, func(ctx context.Context) event {
		defer cancel()
		if err := prefs.SetSoundEnabled(ctx, device, enabled); err != nil {
			log.Printf("session %s: persist sound preference: %v", m.cfg.ID, err)
		}
		return nil
	})
}

// shutdown ends the session for good: an active session is quit and nothing stays armed.
func (m *machine) shutdown() {
	if _, err := Next(m.state, TriggerQuit); err == nil {
		_ = m.quit()
	}
	m.supersede()
}

func (m *machine) recordAnswer(rec domain.AnswerRecord) {
	recorder := m.deps.Recorder
	if recorder == nil || m.current == nil {
		return
	}
	res := domain.AnswerResult{
		SessionID:  m.cfg.ID,
		LearnerID:  m.cfg.LearnerID,
		Selection:  m.selection,
		QuestionID: m.current.Question.ID,
		Answer:     rec,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.base), m.cfg.RecordTimeout)
	m.sched.spawn(taskRecord, ctx, func(ctx context.Context) event {
		defer cancel()
		if err := recorder.RecordAnswer(ctx, res); err != nil {
			log.Printf("session %s: record answer: %v", res.SessionID, err)
		}
		return nil
	})
}

func (m *machine) recordSession(summary domain.Summary) {
	recorder := m.deps.Recorder
	if recorder == nil {
		return
	}
	res := domain.SessionResult{
		SessionID: m.cfg.ID,
		LearnerID: m.cfg.LearnerID,
		Selection: m.selection,
		Summary:   summary,
		EndedAt:   m.deps.Clock.Now(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.base), m.cfg.RecordTimeout)
	m.sched.spawn(taskRecord, ctx, func(ctx context.Context) event {
		defer cancel()
		if err := recorder.RecordSession(ctx, res); err != nil {
			log.Printf("session %s: record session: %v", res.SessionID, err)
		}
		return nil
	})
}

func (m *machine) revealText() string {
	q := m.current.Question
	msgs := m.cfg.RevealMessages
	msg := msgs[int(m.token%uint64(len(msgs)))]
	text := fmt.Sprintf("%s The correct answer is %s.", msg, m.cfg.Speakable(q.CorrectAnswer))
	if q.Explanation != "" {
		text += " " + m.cfg.Speakable(q.Explanation)
	}
	return text
}

func (m *machine) snapshot() domain.Snapshot {
	s := domain.Snapshot{
		State:            m.state,
		Selection:        m.selection,
		AnswerRemaining:  m.timers.remaining(domain.AnswerCountdown),
		AdvanceRemaining: m.timers.remaining(domain.AdvanceCountdown),
		Presented:        m.progress.Presented(),
		Target:           m.progress.Target(),
		SoundEnabled:     m.sound,
		Silent:           m.silent,
		Error:            m.lastErr,
	}
	if m.current != nil {
		q := m.current.Question
		view := &domain.QuestionView{
			ID:      q.ID,
			Token:   m.current.SequenceToken,
			Context: q.Context,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
		if m.state == domain.StateRevealing || m.state == domain.StateAdvancing {
			view.CorrectAnswer = q.CorrectAnswer
			view.Explanation = q.Explanation
		}
		s.Question = view
		if rec, ok := m.gate.Record(m.current.SequenceToken); ok {
			s.Answer = &rec
		}
	}
	if m.summary != nil {
		summary := *m.summary
		s.Summary = &summary
	}
	return s
}

// narrationText reads the context, the prompt and the options in display order.
func narrationText(q domain.Question, speak func(string) string) string {
	parts := make([]string, 0, len(q.Options)+2)
	if q.Context != "" {
		parts = append(parts, speak(q.Context))
	}
	parts = append(parts, speak(q.Prompt))
	for i, opt := range q.Options {
		parts = append(parts, fmt.Sprintf("%c. %s", 'A'+i, speak(opt)))
	}
	return strings.Join(parts, "\n")
}
