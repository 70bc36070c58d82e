package app

import (
	"context"
	"log"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
	"github.com/google/uuid"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(c *session.Controller)
	Get(id string) (*session.Controller, bool)
	Delete(id string)
}

// Options carry what every session opened by the service shares.
type Options struct {
	// Session is the template config; ID, learner, device and sound are filled per session.
	Session     session.Config
	Synthesizer session.Synthesizer
	Recorder    session.ResultRecorder
	Clock       session.Clock
}

// OpenRequest identifies who a session is for and where its audio goes.
type OpenRequest struct {
	LearnerID string
	DeviceID  string
	Player    session.Player
}

// Preferences are the per-device settings exposed to clients.
type Preferences struct {
	SoundEnabled bool `json:"soundEnabled"`
}

// QuizService contains the narrated quiz use cases.
type QuizService struct {
	sessions SessionRepository
	bank     session.QuestionBank
	prefs    session.PreferenceStore
	opts     Options
	newID    func() string
}

func NewQuizService(sessions SessionRepository, bank session.QuestionBank, prefs session.PreferenceStore, opts Options) *QuizService {
	return &QuizService{
		sessions: sessions,
		bank:     bank,
		prefs:    prefs,
		opts:     opts,
		newID:    uuid.NewString,
	}
}

// Open creates a session in the configuring state, seeded with the device's sound preference.
func (s *QuizService) Open(ctx context.Context, req OpenRequest) (*session.Controller, error) {
	learnerID := req.LearnerID
	if learnerID == "" {
		learnerID = req.DeviceID
	}
	prefs, err := s.Preferences(ctx, req.DeviceID)
	if err != nil {
		log.Printf("load preferences for %s: %v", req.DeviceID, err)
		prefs = Preferences{SoundEnabled: true}
	}

	cfg := s.opts.Session
	cfg.ID = s.newID()
	cfg.LearnerID = learnerID
	cfg.DeviceID = req.DeviceID
	cfg.SoundEnabled = prefs.SoundEnabled

	c, err := session.NewController(cfg, session.Deps{
		Bank:        s.bank,
		Synthesizer: s.opts.Synthesizer,
		Player:      req.Player,
		Preferences: s.prefs,
		Recorder:    s.opts.Recorder,
		Clock:       s.opts.Clock,
	})
	if err != nil {
		return nil, err
	}
	s.sessions.Put(c)
	return c, nil
}

// Get returns a live session.
func (s *QuizService) Get(id string) (*session.Controller, error) {
	c, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return c, nil
}

// Close stops a session and forgets it. Unknown ids are ignored.
func (s *QuizService) Close(id string) {
	c, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	c.Close()
	s.sessions.Delete(id)
}

// Preferences returns the stored settings of a device; unknown devices get the defaults.
func (s *QuizService) Preferences(ctx context.Context, deviceID string) (Preferences, error) {
	if s.prefs == nil || deviceID == "" {
		return Preferences{SoundEnabled: true}, nil
	}
	enabled, err := s.prefs.SoundEnabled(ctx, deviceID)
	if err != nil {
		return Preferences{}, err
	}
	return Preferences{SoundEnabled: enabled}, nil
}

// SetSound persists the sound preference of a device. Live sessions pick it up through
// their own SetSound.
func (s *QuizService) SetSound(ctx context.Context, deviceID string, enabled bool) error {
	if s.prefs == nil || deviceID == "" {
		return nil
	}
	return s.prefs.SetSoundEnabled(ctx, deviceID, enabled)
}

// Bank exposes the question bank for the HTTP bank endpoints.
func (s *QuizService) Bank() session.QuestionBank {
	return s.bank
}
