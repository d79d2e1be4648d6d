package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rgallego/genstudio-api/internal/replicate"
)

// ImageParams is the parameter schema for the image kind.
type ImageParams struct {
	Prompt string `json:"prompt" validate:"required"`
	Width  int    `json:"width,omitempty" validate:"omitempty,min=64,max=4096"`
	Height int    `json:"height,omitempty" validate:"omitempty,min=64,max=4096"`
}

// VideoParams is the parameter schema for the video kind.
type VideoParams struct {
	Prompt   string `json:"prompt" validate:"required"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
	// DurationSec caps the produced clip length.
	DurationSec int `json:"duration_sec,omitempty" validate:"omitempty,min=1,max=60"`
}

// replicateBase provides poll/fetch/cancel shared by both Replicate adapters.
type replicateBase struct {
	client  replicate.Client
	version string
}

// Poll checks the status of a prediction and maps it to the common states.
func (b *replicateBase) Poll(ctx context.Context, h Handle) (Status, error) {
	res, err := b.client.Poll(ctx, h.ProviderJobID)
	if err != nil {
		return Status{}, classifyReplicateError(err)
	}

	switch res.Status {
	case replicate.StatusSucceeded:
		return Status{State: StateSucceeded, Result: &Result{URLs: res.OutputURLs}}, nil
	case replicate.StatusFailed, replicate.StatusCanceled:
		return Status{
			State:   StateFailed,
			Failure: &Failure{Message: res.ErrorMessage},
		}, nil
	case replicate.StatusProcessing:
		return Status{State: StateRunning}, nil
	default:
		// starting
		return Status{State: StateQueued}, nil
	}
}

// FetchResult retrieves the final artifact locations via one more poll.
func (b *replicateBase) FetchResult(ctx context.Context, h Handle) (*Result, error) {
	status, err := b.Poll(ctx, h)
	if err != nil {
		return nil, err
	}
	if status.State != StateSucceeded {
		return nil, Transportf("replicate prediction %s is not succeeded", h.ProviderJobID)
	}
	return status.Result, nil
}

// Cancel requests cancellation of the remote prediction.
func (b *replicateBase) Cancel(ctx context.Context, h Handle) error {
	if err := b.client.Cancel(ctx, h.ProviderJobID); err != nil {
		return classifyReplicateError(err)
	}
	return nil
}

func (b *replicateBase) submit(ctx context.Context, input map[string]any) (Handle, error) {
	predictionID, err := b.client.Submit(ctx, replicate.SubmitRequest{
		Version: b.version,
		Input:   input,
	})
	if err != nil {
		return Handle{}, classifyReplicateError(err)
	}
	return Handle{ProviderJobID: predictionID}, nil
}

// ReplicateImageAdapter serves the image kind through Replicate.
type ReplicateImageAdapter struct {
	replicateBase
}

// NewReplicateImageAdapter creates a Replicate adapter pinned to an
// image-generation model version.
func NewReplicateImageAdapter(client replicate.Client, version string) *ReplicateImageAdapter {
	return &ReplicateImageAdapter{replicateBase{client: client, version: version}}
}

// Validate checks the parameters against the image schema.
func (a *ReplicateImageAdapter) Validate(params map[string]any) error {
	var p ImageParams
	return decodeParams(params, &p)
}

// Submit creates an image prediction.
func (a *ReplicateImageAdapter) Submit(ctx context.Context, params map[string]any) (Handle, error) {
	var p ImageParams
	if err := decodeParams(params, &p); err != nil {
		return Handle{}, err
	}
	input := map[string]any{"prompt": p.Prompt}
	if p.Width > 0 {
		input["width"] = p.Width
	}
	if p.Height > 0 {
		input["height"] = p.Height
	}
	return a.submit(ctx, input)
}

// ReplicateVideoAdapter serves the video kind through Replicate.
type ReplicateVideoAdapter struct {
	replicateBase
}

// NewReplicateVideoAdapter creates a Replicate adapter pinned to a
// video-generation model version.
func NewReplicateVideoAdapter(client replicate.Client, version string) *ReplicateVideoAdapter {
	return &ReplicateVideoAdapter{replicateBase{client: client, version: version}}
}

// Validate checks the parameters against the video schema.
func (a *ReplicateVideoAdapter) Validate(params map[string]any) error {
	var p VideoParams
	return decodeParams(params, &p)
}

// Submit creates a video prediction.
func (a *ReplicateVideoAdapter) Submit(ctx context.Context, params map[string]any) (Handle, error) {
	var p VideoParams
	if err := decodeParams(params, &p); err != nil {
		return Handle{}, err
	}
	input := map[string]any{"prompt": p.Prompt}
	if p.ImageURL != "" {
		input["image"] = p.ImageURL
	}
	if p.DurationSec > 0 {
		input["duration"] = p.DurationSec
	}
	return a.submit(ctx, input)
}

// classifyReplicateError maps Replicate client errors onto the common taxonomy.
func classifyReplicateError(err error) error {
	var apiErr *replicate.APIError
	if errors.As(err, &apiErr) {
		kind := ErrorKindTransport
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			kind = ErrorKindAuth
		case apiErr.StatusCode == http.StatusNotFound:
			kind = ErrorKindNotFound
		case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
			kind = ErrorKindValidation
		}
		return NewError(kind, "", apiErr.Message, err)
	}
	return NewError(ErrorKindTransport, "", fmt.Sprintf("replicate: %v", err), err)
}

// Compile-time checks that the Replicate adapters implement Adapter.
var (
	_ Adapter = (*ReplicateImageAdapter)(nil)
	_ Adapter = (*ReplicateVideoAdapter)(nil)
)
