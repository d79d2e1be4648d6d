package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/rgallego/genstudio-api/internal/job"
	"github.com/rgallego/genstudio-api/internal/provider"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *job.Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /jobs requests.
// Asynchronous kinds return 201 with the pending record; synchronous kinds
// complete inline and surface generation errors directly.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
		return
	}

	rec, err := h.service.Submit(r.Context(), job.SubmitInput{
		Kind:        job.Kind(req.Kind),
		Parameters:  req.Parameters,
		OwnerID:     OwnerID(r.Context()),
		WorkspaceID: WorkspaceID(r.Context()),
	})
	if err != nil && rec == nil {
		h.writeServiceError(w, err, "job submission rejected")
		return
	}
	if err != nil {
		// Synchronous kind that failed: the record is persisted as failed
		// and the error surfaces directly.
		h.logger.Warn("synchronous job failed",
			slog.String("job_id", rec.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, statusForProviderError(err), err.Error(), "GENERATION_FAILED")
		return
	}

	resp := CreateJobResponse{JobID: rec.ID, Status: string(rec.Status)}
	if rec.Result != nil {
		full := toJobResponse(rec)
		resp.Result = full.Result
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get job")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(rec))
}

// ListJobs handles GET /jobs requests with owner/workspace/status filters and
// limit/offset pagination, newest first.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := job.Filter{
		OwnerID:     q.Get("owner_id"),
		WorkspaceID: q.Get("workspace_id"),
		Status:      job.Status(q.Get("status")),
	}
	if filter.Status != "" && !isKnownStatus(filter.Status) {
		writeError(w, http.StatusUnprocessableEntity, "unknown status filter", "VALIDATION_ERROR")
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 200", "VALIDATION_ERROR")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "offset must be non-negative", "VALIDATION_ERROR")
			return
		}
		filter.Offset = n
	}

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to list jobs")
		return
	}

	limit := filter.Limit
	if limit == 0 {
		limit = job.DefaultListLimit
	}
	resp := ListJobsResponse{
		Jobs:   make([]JobResponse, len(records)),
		Limit:  limit,
		Offset: filter.Offset,
	}
	for i, rec := range records {
		resp.Jobs[i] = toJobResponse(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelJob handles DELETE /jobs/{id} requests.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	rec, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to cancel job")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(rec))
}

// Webhook handles POST /webhooks/jobs requests: an inbound provider callback
// that triggers the same idempotent reconciliation the poller uses.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
		return
	}

	rec, err := h.service.Reconcile(r.Context(), req.JobID)
	if err != nil {
		h.writeServiceError(w, err, "failed to reconcile job")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(rec))
}

// writeServiceError maps service-layer errors onto HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, job.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrConflict):
		writeError(w, http.StatusConflict, "job is already in a terminal state", "JOB_TERMINAL")
	case errors.Is(err, job.ErrUnsupportedKind):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "UNSUPPORTED_KIND")
	case provider.KindOf(err) == provider.ErrorKindValidation:
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
	default:
		h.logger.Error(logMsg, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, logMsg, "INTERNAL_ERROR")
	}
}

// statusForProviderError maps a synchronous generation error to a status code:
// caller mistakes are 422, provider breakage is 502.
func statusForProviderError(err error) int {
	switch provider.KindOf(err) {
	case provider.ErrorKindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func isKnownStatus(s job.Status) bool {
	switch s {
	case job.StatusPending, job.StatusProcessing, job.StatusCompleted, job.StatusFailed, job.StatusCancelled:
		return true
	default:
		return false
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
