package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
)

// JobContext is what a handler knows about the job it runs.
type JobContext struct {
	JobID       string
	Attempt     int
	Kwargs      map[string]any
	EnqueueTime time.Time
}

// HandlerFunc runs one job. A non-nil error fails the job; the returned
// value becomes its result.
type HandlerFunc func(ctx context.Context, jc JobContext, args []any) (any, error)

type JobHandler struct {
	handlers map[string]HandlerFunc
	mutex    sync.RWMutex
}

func NewJobHandler() *JobHandler {
	return &JobHandler{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a new job handler by name.
func (jh *JobHandler) Register(name string, handler HandlerFunc) error {
	jh.mutex.Lock()
	defer jh.mutex.Unlock()

	if _, exists := jh.handlers[name]; exists {
		return fmt.Errorf("handler '%s' already registered", name)
	}
	jh.handlers[name] = handler
	return nil
}

func (jh *JobHandler) Execute(ctx context.Context, name string, jc JobContext, args []any) (any, error) {
	jh.mutex.RLock()
	handler, exists := jh.handlers[name]
	jh.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: '%s'", custom_errors.ErrHandlerNotFound, name)
	}
	return handler(ctx, jc, args)
}

// List returns the registered names in sorted order.
func (jh *JobHandler) List() []string {
	jh.mutex.RLock()
	defer jh.mutex.RUnlock()

	names := make([]string, 0, len(jh.handlers))
	for name := range jh.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
