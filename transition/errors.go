package transition

import (
	"errors"
	"fmt"
)

// InvalidBlockError marks a block as objectively invalid: the state it was
// applied to could never accept it, regardless of local history. Peers
// sending such blocks may be penalized.
type InvalidBlockError struct {
	Reason string
}

func (e *InvalidBlockError) Error() string {
	return "invalid block: " + e.Reason
}

func invalidf(format string, args ...interface{}) error {
	return &InvalidBlockError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidBlock reports whether err classifies the block as objectively
// invalid rather than reflecting a local state problem.
func IsInvalidBlock(err error) bool {
	var e *InvalidBlockError
	return errors.As(err, &e)
}

// EpochProcessingError wraps failures inside the epoch-transition procedure.
type EpochProcessingError struct {
	Err error
}

func (e *EpochProcessingError) Error() string {
	return "epoch processing: " + e.Err.Error()
}

func (e *EpochProcessingError) Unwrap() error { return e.Err }
