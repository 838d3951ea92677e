package retry

import (
	"errors"
	"fmt"
)

// Outcome is the decision taken after one attempt. The variants are
// Success, Retry, Fail and Interrupted.
type Outcome interface {
	isOutcome()
}

// Success carries the value the attempt produced.
type Success struct {
	Value any
}

// Retry means the task was re-submitted as Attempt. The current
// execution still ends as failed.
type Retry struct {
	Attempt int
	Cause   string
}

// Fail is terminal.
type Fail struct {
	Message string
}

// Interrupted means the caller went away during the attempt. Nothing was
// recorded or re-submitted; the same attempt is expected to run again.
type Interrupted struct {
	Err error
}

func (Success) isOutcome()     {}
func (Retry) isOutcome()       {}
func (Fail) isOutcome()        {}
func (Interrupted) isOutcome() {}

// Settle turns an outcome into the value/error pair a job function returns.
func Settle(o Outcome) (any, error) {
	switch out := o.(type) {
	case Success:
		return out.Value, nil
	case Retry:
		return nil, fmt.Errorf("%s (resubmitted as attempt %d)", out.Cause, out.Attempt)
	case Fail:
		return nil, errors.New(out.Message)
	case Interrupted:
		return nil, out.Err
	default:
		return nil, fmt.Errorf("unknown outcome %T", o)
	}
}
