// Package job provides the JobRecord aggregate for asynchronous generation
// jobs, the state machine governing their lifecycle, and the repository and
// service layers that orchestrate them.
package job

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the generation operation a job performs.
type Kind string

const (
	// KindImage is text-to-image generation.
	KindImage Kind = "image"
	// KindVideo is text/image-to-video generation.
	KindVideo Kind = "video"
	// KindLipsync is audio-driven lip synchronization.
	KindLipsync Kind = "lipsync"
	// KindAvatarVideo is avatar-presenter video generation.
	KindAvatarVideo Kind = "avatar-video"
	// KindIdea is synchronous text idea generation. It completes in a
	// single step with no remote polling phase.
	KindIdea Kind = "idea"
)

// IsValid returns true if the kind is one of the known operations.
func (k Kind) IsValid() bool {
	switch k {
	case KindImage, KindVideo, KindLipsync, KindAvatarVideo, KindIdea:
		return true
	default:
		return false
	}
}

// Status represents the current state of a job record.
type Status string

const (
	// StatusPending indicates the job is accepted but not yet running remotely.
	StatusPending Status = "pending"
	// StatusProcessing indicates the remote provider accepted the job.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job failed.
	StatusFailed Status = "failed"
	// StatusCancelled indicates the job was cancelled before completion.
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true if the status permits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when an illegal state transition is attempted.
var ErrInvalidTransition = errors.New("job: invalid state transition")

// validTransitions defines which state transitions are allowed.
// pending may complete or fail directly: synchronous kinds skip the
// processing phase entirely.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Failure kinds recorded when submission itself gives up.
const (
	// FailureSubmissionExhausted marks a job whose remote submission kept
	// hitting transport errors until the retry budget ran out.
	FailureSubmissionExhausted = "SubmissionExhausted"
	// FailureSubmissionAborted marks a job whose submission was cancelled
	// before a provider handle was obtained.
	FailureSubmissionAborted = "SubmissionAborted"
	// FailureProvider marks a job the provider reported as failed.
	FailureProvider = "ProviderError"
)

// Result holds the artifact locations and media attributes of a completed job.
type Result struct {
	// URLs are the locations of the produced assets.
	URLs []string `json:"urls"`
	// DurationSec is the media duration, when applicable.
	DurationSec float64 `json:"duration_sec,omitempty"`
	// Width and Height are the media dimensions, when applicable.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// Text is the generated text for synchronous text kinds.
	Text string `json:"text,omitempty"`
}

// Failure holds structured detail about why a job failed.
type Failure struct {
	// Kind classifies the failure (SubmissionExhausted, ProviderError, ...).
	Kind string `json:"kind"`
	// Code is the provider's error code, if one was reported.
	Code string `json:"code,omitempty"`
	// Message is a human-readable description.
	Message string `json:"message,omitempty"`
}

// Record is the persistent state of a single generation job.
//
// Mutations flow through Repository.Update, which serializes read-modify-write
// per record; Record itself carries no lock.
type Record struct {
	// ID is the unique identifier assigned at creation.
	ID string
	// ProviderJobID is the remote provider's identifier, empty until the
	// remote submission succeeds.
	ProviderJobID string
	// Kind is the operation kind, immutable after creation.
	Kind Kind
	// Status is the current lifecycle state.
	Status Status
	// Parameters are the normalized request parameters, kept for audit.
	Parameters map[string]any
	// Result is set exactly when Status is completed.
	Result *Result
	// Failure is set exactly when Status is failed.
	Failure *Failure
	// OwnerID is the upstream-verified identity that submitted the job.
	OwnerID string
	// WorkspaceID is empty for private jobs.
	WorkspaceID string

	CreatedAt time.Time
	UpdatedAt time.Time
	// CompletedAt is nil until the record reaches a terminal state.
	CompletedAt *time.Time
}

// New creates a Record in pending state with a fresh id.
func New(kind Kind, params map[string]any, ownerID, workspaceID string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:          uuid.NewString(),
		Kind:        kind,
		Status:      StatusPending,
		Parameters:  params,
		OwnerID:     ownerID,
		WorkspaceID: workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo moves the record to the given status.
// Returns ErrInvalidTransition if the state machine forbids the move.
// Terminal transitions stamp CompletedAt.
func (r *Record) TransitionTo(status Status) error {
	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	if status.IsTerminal() {
		t := r.UpdatedAt
		r.CompletedAt = &t
	}
	return nil
}

// Complete transitions the record to completed and attaches the result.
func (r *Record) Complete(res *Result) error {
	if err := r.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	r.Result = res
	return nil
}

// Fail transitions the record to failed and attaches the failure detail.
func (r *Record) Fail(f *Failure) error {
	if err := r.TransitionTo(StatusFailed); err != nil {
		return err
	}
	r.Failure = f
	return nil
}

// Cancel transitions the record to cancelled.
func (r *Record) Cancel() error {
	return r.TransitionTo(StatusCancelled)
}

// IsTerminal returns true if the record reached a terminal state.
func (r *Record) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// Clone creates a deep copy of the record for safe reads.
func (r *Record) Clone() *Record {
	out := *r
	if r.Parameters != nil {
		params := make(map[string]any, len(r.Parameters))
		for k, v := range r.Parameters {
			params[k] = v
		}
		out.Parameters = params
	}
	if r.Result != nil {
		res := *r.Result
		res.URLs = append([]string(nil), r.Result.URLs...)
		out.Result = &res
	}
	if r.Failure != nil {
		f := *r.Failure
		out.Failure = &f
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
