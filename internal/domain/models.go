package domain

import (
	"fmt"
	"strings"
	"time"
)

// Selection scopes which questions a session draws from.
type Selection struct {
	Grade   string `json:"grade" yaml:"grade"`
	Subject string `json:"subject" yaml:"subject"`
	Term    string `json:"term" yaml:"term"`
}

// Validate reports the first missing field.
func (s Selection) Validate() error {
	switch {
	case strings.TrimSpace(s.Grade) == "":
		return fmt.Errorf("%w: grade is required", ErrValidation)
	case strings.TrimSpace(s.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrValidation)
	case strings.TrimSpace(s.Term) == "":
		return fmt.Errorf("%w: term is required", ErrValidation)
	}
	return nil
}

// Key is a stable identifier for caches and progress records.
func (s Selection) Key() string {
	return s.Grade + ":" + s.Subject + ":" + s.Term
}

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question models an MCQ question from the bank.
type Question struct {
	ID            string    `json:"id" yaml:"id"`
	Selection     Selection `json:"selection" yaml:"selection"`
	Context       string    `json:"context,omitempty" yaml:"context"`
	Prompt        string    `json:"prompt" yaml:"prompt"`
	Options       []string  `json:"options" yaml:"options"`
	CorrectAnswer string    `json:"correctAnswer" yaml:"correctAnswer"`
	Explanation   string    `json:"explanation,omitempty" yaml:"explanation"`
}

// Validate checks the option set and the correct answer.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: question id is required", ErrValidation)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: question %s has %d options, want %d", ErrValidation, q.ID, len(q.Options), OptionCount)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: question %s repeats option %q", ErrValidation, q.ID, opt)
		}
		seen[opt] = struct{}{}
	}
	if _, ok := seen[q.CorrectAnswer]; !ok {
		return fmt.Errorf("%w: question %s correct answer is not an option", ErrValidation, q.ID)
	}
	return nil
}

// HasOption reports whether value is one of the question's options.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// QuestionInstance is a question made current under a sequence token. It is never mutated;
// answers and audio are tracked separately by token.
type QuestionInstance struct {
	Question      Question
	SequenceToken uint64
	NarrationText string
}

// SessionState is a phase of the narrated quiz session.
type SessionState int

const (
	StateConfiguring SessionState = iota
	StateLoading
	StateNarrating
	StateAwaitingAnswer
	StateRevealing
	StateAdvancing
	StateCompleted
	StateExhausted
)

var stateNames = [...]string{
	StateConfiguring:    "configuring",
	StateLoading:        "loading",
	StateNarrating:      "narrating",
	StateAwaitingAnswer: "awaitingAnswer",
	StateRevealing:      "revealing",
	StateAdvancing:      "advancing",
	StateCompleted:      "completed",
	StateExhausted:      "exhausted",
}

func (s SessionState) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText lets snapshots carry readable state names.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further question will be presented without a restart.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateExhausted
}

// NarrationStatus tracks a narration task.
type NarrationStatus int

const (
	NarrationPending NarrationStatus = iota
	NarrationReady
	NarrationPlaying
	NarrationDone
	NarrationFailed
)

func (s NarrationStatus) String() string {
	switch s {
	case NarrationPending:
		return "pending"
	case NarrationReady:
		return "ready"
	case NarrationPlaying:
		return "playing"
	case NarrationDone:
		return "done"
	case NarrationFailed:
		return "failed"
	}
	return fmt.Sprintf("narration(%d)", int(s))
}

// AnswerSource says who produced an answer.
type AnswerSource string

const (
	SourceManual AnswerSource = "manual"
	SourceAuto   AnswerSource = "auto"
)

// AnswerRecord is the single accepted answer for a sequence token.
type AnswerRecord struct {
	Value   string       `json:"value"`
	Source  AnswerSource `json:"source"`
	Token   uint64       `json:"token"`
	Correct bool         `json:"correct"`
	At      time.Time    `json:"at"`
}

// CountdownRole distinguishes the independent countdowns of a session.
type CountdownRole int

const (
	AnswerCountdown CountdownRole = iota
	AdvanceCountdown
	NarrationWatchdog
	countdownRoles
)

// CountdownRoles is the number of distinct roles.
const CountdownRoles = int(countdownRoles)

func (r CountdownRole) String() string {
	switch r {
	case AnswerCountdown:
		return "answer"
	case AdvanceCountdown:
		return "advance"
	case NarrationWatchdog:
		return "narration"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Summary is surfaced when a session completes.
type Summary struct {
	Presented int  `json:"presented"`
	Target    int  `json:"target"`
	Correct   int  `json:"correct"`
	Aborted   bool `json:"aborted"`
}

// QuestionView is the learner-visible part of the current question.
type QuestionView struct {
	ID            string   `json:"id"`
	Token         uint64   `json:"token"`
	Context       string   `json:"context,omitempty"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Snapshot is what the surrounding UI renders.
type Snapshot struct {
	State            SessionState  `json:"state"`
	Selection        Selection     `json:"selection"`
	Question         *QuestionView `json:"question,omitempty"`
	AnswerRemaining  int           `json:"answerRemaining"`
	AdvanceRemaining int           `json:"advanceRemaining"`
	Answer           *AnswerRecord `json:"answer,omitempty"`
	Presented        int           `json:"presented"`
	Target           int           `json:"target"`
	SoundEnabled     bool          `json:"soundEnabled"`
	Silent           bool          `json:"silent"`
	Error            string        `json:"error,omitempty"`
	Summary          *Summary      `json:"summary,omitempty"`
}

// AnswerResult is handed to bookkeeping for every accepted answer.
type AnswerResult struct {
	SessionID  string       `json:"sessionId"`
	LearnerID  string       `json:"learnerId"`
	Selection  Selection    `json:"selection"`
	QuestionID string       `json:"questionId"`
	Answer     AnswerRecord `json:"answer"`
}

// SessionResult is handed to bookkeeping when a session completes.
type SessionResult struct {
	SessionID string    `json:"sessionId"`
	LearnerID string    `json:"learnerId"`
	Selection Selection `json:"selection"`
	Summary   Summary   `json:"summary"`
	EndedAt   time.Time `json:"endedAt"`
}
