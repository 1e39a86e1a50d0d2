package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned when an XP award is zero or negative.
	ErrInvalidAmount = errors.New("xp amount must be positive")

	// ErrMissingCredential is the configuration error raised when a
	// collaborator has no API key configured.
	ErrMissingCredential = errors.New("missing credential")

	// ErrNoCurriculum is returned when the user has not generated a curriculum yet.
	ErrNoCurriculum = errors.New("no curriculum generated")
	// ErrModuleNotFound is returned when a module id is not part of the curriculum.
	ErrModuleNotFound = errors.New("module not found")
	// ErrVideoNotFound is returned when a video index is out of range.
	ErrVideoNotFound = errors.New("video not found")

	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrStaleSession is returned when a quiz result arrives for a session
	// that has been closed or replaced.
	ErrStaleSession = errors.New("quiz session is no longer active")
	// ErrInvalidTransition is returned when a quiz operation is not valid
	// in the session's current state.
	ErrInvalidTransition = errors.New("invalid quiz state transition")
	// ErrInvalidOption is returned for an answer index outside the options.
	ErrInvalidOption = errors.New("answer option out of range")
)

// MissingCredential wraps ErrMissingCredential with the collaborator name.
func MissingCredential(collaborator string) error {
	return fmt.Errorf("%s: %w", collaborator, ErrMissingCredential)
}

// GenerationError reports that an AI collaborator failed or returned
// unusable content.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generate " + e.Op + ": no content"
	}
	return "generate " + e.Op + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError builds a GenerationError for op.
func NewGenerationError(op string, err error) error {
	return &GenerationError{Op: op, Err: err}
}

// IsGenerationError reports whether err is or wraps a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
