package custom_errors

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound means the job exists in neither the queue engine nor the job history.
	ErrJobNotFound = errors.New("job not found")

	// ErrResultTimeout is returned when a job result is not readable within the bound.
	ErrResultTimeout = errors.New("result fetch timed out")

	// ErrHandlerNotFound is returned when a job names a function nobody registered.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrInvalidArgument is returned for submissions that cannot become a job.
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransientExecutionFault wraps network-class failures that may succeed on a later attempt.
type TransientExecutionFault struct {
	Err error
}

func (f *TransientExecutionFault) Error() string {
	return fmt.Sprintf("transient fault: %v", f.Err)
}

func (f *TransientExecutionFault) Unwrap() error {
	return f.Err
}

// PermanentExecutionFault wraps failures that will not change on retry,
// such as a well-formed response with an error status.
type PermanentExecutionFault struct {
	StatusCode int
	Err        error
}

func (f *PermanentExecutionFault) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("permanent fault: status %d: %v", f.StatusCode, f.Err)
	}
	return fmt.Sprintf("permanent fault: %v", f.Err)
}

func (f *PermanentExecutionFault) Unwrap() error {
	return f.Err
}

// ReconciliationFault is raised while copying a finished job into the job history.
// It is only ever logged.
type ReconciliationFault struct {
	JobID string
	Stage string
	Err   error
}

func (f *ReconciliationFault) Error() string {
	return fmt.Sprintf("reconcile %s (%s): %v", f.JobID, f.Stage, f.Err)
}

func (f *ReconciliationFault) Unwrap() error {
	return f.Err
}

func IsTransient(err error) bool {
	var fault *TransientExecutionFault
	return errors.As(err, &fault)
}

func IsPermanent(err error) bool {
	var fault *PermanentExecutionFault
	return errors.As(err, &fault)
}
