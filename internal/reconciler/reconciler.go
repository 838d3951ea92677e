package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/message_broaker"
	"github.com/RezaEskandarii/jobstatus/internal/metrics"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/rs/zerolog/log"
)

// StatusResolver produces the reconciled view of a job.
type StatusResolver interface {
	Resolve(ctx context.Context, jobID string) (*types.StatusView, error)
}

// HistoryWriter is the write side of the job history.
type HistoryWriter interface {
	Upsert(ctx context.Context, record types.JobRecord) error
}

// Reconciler copies finished jobs into the job history. It never returns
// errors to its trigger: every fault is logged and the event dropped.
type Reconciler struct {
	resolver StatusResolver
	history  HistoryWriter
	broker   message_broaker.MessageBroker
	queue    string
}

func NewReconciler(resolver StatusResolver, history HistoryWriter, broker message_broaker.MessageBroker, queue string) *Reconciler {
	return &Reconciler{resolver: resolver, history: history, broker: broker, queue: queue}
}

// Run consumes job-ended events until ctx is done or the broker closes.
func (r *Reconciler) Run(ctx context.Context) error {
	events, err := r.broker.Consume(ctx, r.queue)
	if err != nil {
		return err
	}
	log.Info().Str("queue", r.queue).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				log.Info().Msg("event stream closed, reconciler stopped")
				return nil
			}
			var event types.JobEndedEvent
			if err := json.Unmarshal(msg, &event); err != nil || event.JobID == "" {
				metrics.ReconciliationsTotal.WithLabelValues("failed").Inc()
				log.Error().Err(err).Bytes("payload", msg).Msg("malformed job ended event")
				continue
			}
			r.Reconcile(ctx, event.JobID)
		}
	}
}

// Reconcile resolves jobID and upserts the result into the job history.
func (r *Reconciler) Reconcile(ctx context.Context, jobID string) {
	logger := log.With().Str("job_id", jobID).Logger()

	view, err := r.resolver.Resolve(ctx, jobID)
	if errors.Is(err, custom_errors.ErrJobNotFound) {
		metrics.ReconciliationsTotal.WithLabelValues("skipped").Inc()
		logger.Warn().Msg("finished job not found, skipping history write")
		return
	}
	if err != nil {
		r.fail(&custom_errors.ReconciliationFault{JobID: jobID, Stage: "resolve", Err: err})
		return
	}

	record := types.JobRecord{
		JobID:         view.JobID,
		Status:        view.Status,
		Success:       view.Success,
		ResultPayload: view.Result,
		StartTime:     parseTime(jobID, "start_time", view.StartTime),
		FinishTime:    parseTime(jobID, "finish_time", view.FinishTime),
		Username:      view.Username,
		FunctionName:  view.Function,
		ArgsPayload:   view.Args,
		ErrorMessage:  view.Error,
		Attempts:      view.Attempts,
	}

	if err := r.history.Upsert(ctx, record); err != nil {
		r.fail(&custom_errors.ReconciliationFault{JobID: jobID, Stage: "upsert", Err: err})
		return
	}

	metrics.ReconciliationsTotal.WithLabelValues("stored").Inc()
	logger.Info().Str("status", view.Status.String()).Msg("job history saved")
}

func (r *Reconciler) fail(fault *custom_errors.ReconciliationFault) {
	metrics.ReconciliationsTotal.WithLabelValues("failed").Inc()
	log.Error().Err(fault).Str("job_id", fault.JobID).Str("stage", fault.Stage).Msg("reconciliation failed")
}

// parseTime treats malformed timestamps as absent.
func parseTime(jobID, field string, value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *value)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Str("field", field).Msg("could not parse timestamp")
		return nil
	}
	return &t
}
