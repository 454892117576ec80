package domain

import (
	"errors"
	"fmt"
)

// StageError marks a sink failure and whether retrying can help. Sinks
// attach it at the HTTP boundary; local failures stay plain errors and
// default to retryable.
type StageError struct {
	Stage     StageName
	Permanent bool
	Cause     error
}

func (e *StageError) Error() string {
	kind := "retryable"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, kind, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError wraps a sink failure with its retry classification.
func NewStageError(stage StageName, permanent bool, cause error) *StageError {
	return &StageError{Stage: stage, Permanent: permanent, Cause: cause}
}

// IsPermanent reports whether err carries a permanent classification.
func IsPermanent(err error) bool {
	var stageErr *StageError
	return errors.As(err, &stageErr) && stageErr.Permanent
}

// PermanentStatus reports whether an HTTP status marks a request that will
// keep failing. Client errors qualify except timeouts (408) and rate
// limits (429).
func PermanentStatus(code int) bool {
	if code == 408 || code == 429 {
		return false
	}
	return code >= 400 && code < 500
}
