package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrAlreadyCompleted = errors.New("interview already completed")

	// Session state machine
	ErrSessionNotActive = errors.New("interview is not active")
	ErrTurnInProgress   = errors.New("a turn is already in progress for this identity")
	ErrNothingToRetry   = errors.New("no unanswered respondent message to retry")

	// Model backend
	ErrBackend        = errors.New("model backend failure")
	ErrBackendTimeout = errors.New("model backend timed out")
	ErrEmptyReply     = errors.New("model backend returned an empty reply")

	// Persistence
	ErrNotDurable = errors.New("transcript could not be confirmed durable")
)
