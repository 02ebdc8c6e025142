package workflow

import (
	"errors"
	"fmt"
)

// TransportError indicates a network or authentication failure while
// talking to the workflow engine.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("workflow engine %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidResponseError indicates an engine response that carries neither
// an output nor a run identifier.
type InvalidResponseError struct {
	Detail string
}

func (e *InvalidResponseError) Error() string {
	return "invalid workflow engine response: " + e.Detail
}

// RunFailedError indicates a run that reached a terminal negative status.
// It is not retryable.
type RunFailedError struct {
	RunID   string
	Status  RunStatus
	Message string
}

func (e *RunFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("workflow run %s ended with status %s", e.RunID, e.Status)
	}

	return fmt.Sprintf("workflow run %s ended with status %s: %s", e.RunID, e.Status, e.Message)
}

// TimeoutError indicates the run never reached a terminal status within
// the polling budget.
type TimeoutError struct {
	RunID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workflow run %s still running after %d polls", e.RunID, e.Attempts)
}

func IsTransportError(err error) bool {
	var target *TransportError

	return errors.As(err, &target)
}

func IsInvalidResponse(err error) bool {
	var target *InvalidResponseError

	return errors.As(err, &target)
}

func IsRunFailed(err error) bool {
	var target *RunFailedError

	return errors.As(err, &target)
}

func IsTimeout(err error) bool {
	var target *TimeoutError

	return errors.As(err, &target)
}
