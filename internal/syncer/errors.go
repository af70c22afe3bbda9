package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks a failed server write. The local change has been rolled back.
	ErrNetwork = errors.New("network failure")

	// ErrValidation marks input rejected before any local or network effect.
	ErrValidation = errors.New("validation failed")

	// ErrClosed is returned for operations issued after Close.
	ErrClosed = errors.New("sync engine closed")
)

// OpError is the typed failure returned by the optimistic card operations.
// Use errors.Is with ErrNetwork, ErrValidation or board.ErrNotFound to
// classify it.
type OpError struct {
	Op     string
	CardID string
	Err    error
}

func (e *OpError) Error() string {
	if e.CardID == "" {
		return fmt.Sprintf("failed to %s card: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s card %s: %v", e.Op, e.CardID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func validationError(op, cardID string, err error) error {
	return &OpError{Op: op, CardID: cardID, Err: fmt.Errorf("%w: %w", ErrValidation, err)}
}

func networkError(op, cardID string, err error) error {
	return &OpError{Op: op, CardID: cardID, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
}
