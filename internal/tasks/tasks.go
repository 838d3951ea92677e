package tasks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RezaEskandarii/jobstatus/internal/constants"
	"github.com/RezaEskandarii/jobstatus/internal/retry"
	"github.com/RezaEskandarii/jobstatus/internal/worker"
	"github.com/RezaEskandarii/jobstatus/types/config"
)

const (
	LongCall     = "long_call"
	Add          = "add"
	ScheduledAdd = "scheduled_add"
	Divide       = "divide"
)

// Tasks holds the dependencies shared by the registered job functions.
type Tasks struct {
	runner     *retry.Runner
	httpClient *http.Client
	slowStep   time.Duration
	maxTries   int
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(runner *retry.Runner, cfg config.WorkerConfig) *Tasks {
	return &Tasks{
		runner:     runner,
		httpClient: &http.Client{Timeout: cfg.LongCallTimeout},
		slowStep:   cfg.SlowTaskDelay,
		maxTries:   cfg.MaxTries,
		sleep:      sleepCtx,
	}
}

// Register makes every task runnable by the execution pool.
func (t *Tasks) Register(handlers *worker.JobHandler) error {
	for name, fn := range map[string]worker.HandlerFunc{
		LongCall:     t.LongCall,
		Add:          t.Add,
		ScheduledAdd: t.ScheduledAdd,
		Divide:       t.Divide,
	} {
		if err := handlers.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func correlationTag(kwargs map[string]any) any {
	if v, ok := kwargs[constants.CorrelationKwarg]; ok {
		return v
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func twoNumbers(args []any) (float64, float64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	x, err := toFloat(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("x: %w", err)
	}
	y, err := toFloat(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("y: %w", err)
	}
	return x, y, nil
}
