// Package server provides the HTTP surface for the generation job API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/rgallego/genstudio-api/internal/job"
)

// CreateJobRequest is the HTTP request body for submitting a new job.
type CreateJobRequest struct {
	// Kind is the generation operation to perform.
	Kind string `json:"kind" validate:"required,oneof=image video lipsync avatar-video idea"`
	// Parameters are the provider-specific parameters for the operation.
	Parameters map[string]any `json:"parameters" validate:"required"`
}

// CreateJobResponse is the HTTP response after submitting a job.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	// Result is present only for synchronous kinds that completed inline.
	Result *ResultResponse `json:"result,omitempty"`
}

// ResultResponse carries the artifacts of a completed job.
type ResultResponse struct {
	URLs        []string `json:"urls,omitempty"`
	DurationSec float64  `json:"duration_sec,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	Text        string   `json:"text,omitempty"`
}

// FailureResponse carries structured failure detail.
type FailureResponse struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// JobResponse is the full job record representation.
type JobResponse struct {
	ID            string           `json:"id"`
	ProviderJobID string           `json:"provider_job_id,omitempty"`
	Kind          string           `json:"kind"`
	Status        string           `json:"status"`
	Parameters    map[string]any   `json:"parameters,omitempty"`
	Result        *ResultResponse  `json:"result,omitempty"`
	Error         *FailureResponse `json:"error,omitempty"`
	OwnerID       string           `json:"owner_id,omitempty"`
	WorkspaceID   string           `json:"workspace_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// ListJobsResponse is the paginated list representation.
type ListJobsResponse struct {
	Jobs   []JobResponse `json:"jobs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// WebhookRequest is the body of an inbound provider callback.
type WebhookRequest struct {
	JobID string `json:"job_id" validate:"required"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// toJobResponse maps a domain record onto the wire shape.
func toJobResponse(rec *job.Record) JobResponse {
	resp := JobResponse{
		ID:            rec.ID,
		ProviderJobID: rec.ProviderJobID,
		Kind:          string(rec.Kind),
		Status:        string(rec.Status),
		Parameters:    rec.Parameters,
		OwnerID:       rec.OwnerID,
		WorkspaceID:   rec.WorkspaceID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		CompletedAt:   rec.CompletedAt,
	}
	if rec.Result != nil {
		resp.Result = &ResultResponse{
			URLs:        rec.Result.URLs,
			DurationSec: rec.Result.DurationSec,
			Width:       rec.Result.Width,
			Height:      rec.Result.Height,
			Text:        rec.Result.Text,
		}
	}
	if rec.Failure != nil {
		resp.Error = &FailureResponse{
			Kind:    rec.Failure.Kind,
			Code:    rec.Failure.Code,
			Message: rec.Failure.Message,
		}
	}
	return resp
}
