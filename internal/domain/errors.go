package domain

import "errors"

var (
	// ErrValidation is returned when a session cannot start with the given configuration.
	ErrValidation = errors.New("validation error")
	// ErrExhausted indicates the question bank has nothing left for the learner and selection.
	ErrExhausted = errors.New("no questions remaining for selection")
	// ErrNetwork wraps a failed question fetch; the caller may retry.
	ErrNetwork = errors.New("question fetch failed")
	// ErrSynthesis indicates speech synthesis failed for a narration.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrPlayback indicates the audio output failed to play a narration.
	ErrPlayback = errors.New("audio playback failed")
	// ErrGateRejected is an expected outcome when an answer arrives after one was accepted.
	ErrGateRejected = errors.New("answer rejected by gate")
	// ErrInvalidTransition is returned for actions not allowed in the current session state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrUnknownOption indicates a submitted answer is not one of the question's options.
	ErrUnknownOption = errors.New("answer is not one of the options")
	// ErrSessionNotFound is returned when a quiz session is not registered.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned by a controller whose loop has stopped.
	ErrSessionClosed = errors.New("quiz session closed")
)
