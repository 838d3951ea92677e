package tasks

import (
	"context"
	"errors"

	"github.com/RezaEskandarii/jobstatus/internal/worker"
	"github.com/rs/zerolog/log"
)

var ErrDivisionByZero = errors.New("division by zero")

// Add is a slow but reliable addition: three pauses around the work.
func (t *Tasks) Add(ctx context.Context, jc worker.JobContext, args []any) (any, error) {
	return t.slowAdd(ctx, jc, args)
}

// ScheduledAdd is Add submitted for a specific time of day.
func (t *Tasks) ScheduledAdd(ctx context.Context, jc worker.JobContext, args []any) (any, error) {
	return t.slowAdd(ctx, jc, args)
}

func (t *Tasks) slowAdd(ctx context.Context, jc worker.JobContext, args []any) (any, error) {
	x, y, err := twoNumbers(args)
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("job_id", jc.JobID).Logger()

	logger.Debug().Msg("step 1: starting addition")
	if err := t.sleep(ctx, t.slowStep); err != nil {
		return nil, err
	}
	result := x + y

	logger.Debug().Msg("step 2: finished addition")
	if err := t.sleep(ctx, t.slowStep); err != nil {
		return nil, err
	}

	logger.Debug().Msg("step 3: returning result")
	if err := t.sleep(ctx, t.slowStep*2/3); err != nil {
		return nil, err
	}

	logger.Info().Float64("result", result).Msg("addition done")
	return map[string]any{"result": result, "username": correlationTag(jc.Kwargs)}, nil
}

// Divide fails at once on a zero divisor and is never retried.
func (t *Tasks) Divide(ctx context.Context, jc worker.JobContext, args []any) (any, error) {
	x, y, err := twoNumbers(args)
	if err != nil {
		return nil, err
	}
	if y == 0 {
		log.Error().Str("job_id", jc.JobID).Float64("x", x).Msg("divide by zero")
		return nil, ErrDivisionByZero
	}
	return x / y, nil
}
