package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
	queuedMessage   = "Job successfully queued."
)

// JobService is what the API needs from the submission client.
type JobService interface {
	EnqueueLongCall(ctx context.Context, url string) (jobID, taskID string, err error)
	EnqueueAdd(ctx context.Context, x, y float64, username string) (string, error)
	EnqueueDivide(ctx context.Context, x, y float64, username string) (string, error)
	EnqueueScheduledAdd(ctx context.Context, x, y float64, username string, hour, minute int) (string, time.Time, error)
	FindJob(ctx context.Context, jobID string) (*types.StatusView, error)
	History(ctx context.Context, offset, limit int) (*types.PaginationResult[types.JobRecord], error)
	TaskProgress(ctx context.Context, taskID string) (map[string]string, error)
}

type HttpRouteHandler struct {
	jobs    JobService
	Address string
}

func NewRouteHandler(jobs JobService, address string) HttpRouteHandler {
	return HttpRouteHandler{jobs: jobs, Address: address}
}

type longCallRequest struct {
	URL string `json:"url"`
}

type mathRequest struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Username string   `json:"username"`
}

type enqueueResponse struct {
	JobID   string `json:"job_id"`
	TaskID  string `json:"task_id,omitempty"`
	RunAt   string `json:"run_at,omitempty"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Serve blocks until ctx is done, then drains in-flight requests.
func (handler *HttpRouteHandler) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              handler.Address,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		printBanner(handler.Address)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return server.Shutdown(shutdownCtx)
	}
}

func (handler *HttpRouteHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tasks/long_call", handler.handleLongCall)
	mux.HandleFunc("POST /tasks/add", handler.handleMath(handler.jobs.EnqueueAdd))
	mux.HandleFunc("POST /tasks/divide", handler.handleMath(handler.jobs.EnqueueDivide))
	mux.HandleFunc("POST /tasks/scheduled_add", handler.handleScheduledAdd)
	mux.HandleFunc("GET /tasks/{task_id}/progress", handler.handleTaskProgress)
	mux.HandleFunc("GET /jobs/{job_id}", handler.handleJob)
	mux.HandleFunc("GET /history", handler.handleHistory)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (handler *HttpRouteHandler) handleLongCall(w http.ResponseWriter, r *http.Request) {
	var req longCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	jobID, taskID, err := handler.jobs.EnqueueLongCall(r.Context(), req.URL)
	if err != nil {
		writeEnqueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enqueueResponse{JobID: jobID, TaskID: taskID, Message: queuedMessage, Success: true})
}

func (handler *HttpRouteHandler) handleMath(enqueue func(ctx context.Context, x, y float64, username string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMathRequest(w, r)
		if !ok {
			return
		}
		jobID, err := enqueue(r.Context(), *req.X, *req.Y, req.Username)
		if err != nil {
			writeEnqueueError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enqueueResponse{JobID: jobID, Message: queuedMessage, Success: true})
	}
}

func (handler *HttpRouteHandler) handleScheduledAdd(w http.ResponseWriter, r *http.Request) {
	hour, errHour := strconv.Atoi(r.URL.Query().Get("hour"))
	minute, errMin := strconv.Atoi(r.URL.Query().Get("min"))
	if errHour != nil || errMin != nil {
		writeError(w, http.StatusUnprocessableEntity, "query parameters 'hour' and 'min' must be integers")
		return
	}

	req, ok := decodeMathRequest(w, r)
	if !ok {
		return
	}

	jobID, runAt, err := handler.jobs.EnqueueScheduledAdd(r.Context(), *req.X, *req.Y, req.Username, hour, minute)
	if err != nil {
		writeEnqueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enqueueResponse{
		JobID:   jobID,
		RunAt:   runAt.UTC().Format(time.RFC3339),
		Message: queuedMessage,
		Success: true,
	})
}

func (handler *HttpRouteHandler) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	view, err := handler.jobs.FindJob(r.Context(), jobID)
	if errors.Is(err, custom_errors.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Job ID '%s' was not found.", jobID))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("failed to resolve job")
		writeError(w, http.StatusInternalServerError, "Failed to resolve job")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (handler *HttpRouteHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	offset := getIntParam(r, "offset", 0)
	limit := getIntParam(r, "limit", DefaultPageSize)
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	page, err := handler.jobs.History(r.Context(), offset, limit)
	if errors.Is(err, custom_errors.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to list job history")
		writeError(w, http.StatusInternalServerError, "Failed to fetch job history")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (handler *HttpRouteHandler) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")

	progress, err := handler.jobs.TaskProgress(r.Context(), taskID)
	if err != nil {
		log.Error().Err(err).Str("task_id", taskID).Msg("failed to read task progress")
		writeError(w, http.StatusInternalServerError, "Failed to read task progress")
		return
	}
	if progress == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task ID '%s' was not found.", taskID))
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func decodeMathRequest(w http.ResponseWriter, r *http.Request) (mathRequest, bool) {
	var req mathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return req, false
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusUnprocessableEntity, "fields 'x' and 'y' are required")
		return req, false
	}
	return req, true
}

func writeEnqueueError(w http.ResponseWriter, err error) {
	if errors.Is(err, custom_errors.ErrInvalidArgument) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	log.Error().Err(err).Msg("failed to enqueue job")
	writeError(w, http.StatusInternalServerError, "Failed to enqueue job")
}
