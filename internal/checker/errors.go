package checker

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity indicates a missing submitter identity. Surfaced before
	// any processing begins.
	ErrNoIdentity = errors.New("no submitter identity")

	// ErrAdapter is the retryable category: the embedding service, the
	// similarity index or the record store failed. Matched via errors.Is
	// against errors returned from Evaluate.
	ErrAdapter = errors.New("adapter error")
)

// adapterError wraps a collaborator failure so callers can both match the
// category (errors.Is(err, ErrAdapter)) and inspect the underlying cause.
type adapterError struct {
	op  string
	err error
}

func (e *adapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *adapterError) Unwrap() error {
	return e.err
}

func (e *adapterError) Is(target error) bool {
	return target == ErrAdapter
}

func adapterErr(op string, err error) error {
	return &adapterError{op: op, err: err}
}
