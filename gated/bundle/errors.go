package bundle

import (
	"errors"
	"fmt"
)

// ErrWrapUnavailable is returned for WRAP and UNWRAP steps when the executor
// has no adapter.
var ErrWrapUnavailable = errors.New("bundle: no wrap adapter configured")

// HopError identifies the hop that aborted a bundle.
type HopError struct {
	Index int
	Step  Step
	Err   error
}

// Error returns the hop failure.
func (e *HopError) Error() string {
	return fmt.Sprintf("bundle hop %d (%s): %v", e.Index, e.Step.Op, e.Err)
}

// Unwrap returns the hop failure.
func (e *HopError) Unwrap() error {
	return e.Err
}
