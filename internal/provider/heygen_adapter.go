package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rgallego/genstudio-api/internal/heygen"
)

// AvatarVideoParams is the parameter schema for the avatar-video kind.
type AvatarVideoParams struct {
	AvatarID  string `json:"avatar_id" validate:"required"`
	VoiceID   string `json:"voice_id" validate:"required"`
	InputText string `json:"input_text" validate:"required"`
	Width     int    `json:"width,omitempty" validate:"omitempty,min=1,max=4096"`
	Height    int    `json:"height,omitempty" validate:"omitempty,min=1,max=4096"`
}

// LipsyncParams is the parameter schema for the lipsync kind.
type LipsyncParams struct {
	VideoURL string `json:"video_url" validate:"required,url"`
	AudioURL string `json:"audio_url" validate:"required,url"`
}

// heygenBase provides poll/fetch/cancel shared by both HeyGen-backed adapters.
type heygenBase struct {
	client heygen.Client
}

// Poll checks the status of a HeyGen task and maps it to the common states.
func (b *heygenBase) Poll(ctx context.Context, h Handle) (Status, error) {
	res, err := b.client.Poll(ctx, h.ProviderJobID)
	if err != nil {
		return Status{}, classifyHeyGenError(err)
	}

	switch res.Status {
	case heygen.StatusCompleted:
		return Status{State: StateSucceeded, Result: heygenResult(res)}, nil
	case heygen.StatusFailed:
		return Status{
			State:   StateFailed,
			Failure: &Failure{Code: res.ErrorCode, Message: res.ErrorMessage},
		}, nil
	case heygen.StatusProcessing:
		return Status{State: StateRunning}, nil
	default:
		// pending / waiting
		return Status{State: StateQueued}, nil
	}
}

// FetchResult retrieves the final artifact locations via one more poll.
func (b *heygenBase) FetchResult(ctx context.Context, h Handle) (*Result, error) {
	status, err := b.Poll(ctx, h)
	if err != nil {
		return nil, err
	}
	if status.State != StateSucceeded {
		return nil, Transportf("heygen task %s is not succeeded", h.ProviderJobID)
	}
	return status.Result, nil
}

// Cancel requests deletion of the remote task.
func (b *heygenBase) Cancel(ctx context.Context, h Handle) error {
	if err := b.client.Cancel(ctx, h.ProviderJobID); err != nil {
		return classifyHeyGenError(err)
	}
	return nil
}

func heygenResult(res heygen.PollResult) *Result {
	urls := []string{res.VideoURL}
	if res.ThumbnailURL != "" {
		urls = append(urls, res.ThumbnailURL)
	}
	return &Result{URLs: urls, DurationSec: res.DurationSec}
}

// HeyGenAvatarAdapter serves the avatar-video kind through HeyGen.
type HeyGenAvatarAdapter struct {
	heygenBase
}

// NewHeyGenAvatarAdapter creates a HeyGen adapter for avatar video generation.
func NewHeyGenAvatarAdapter(client heygen.Client) *HeyGenAvatarAdapter {
	return &HeyGenAvatarAdapter{heygenBase{client: client}}
}

// Validate checks the parameters against the avatar-video schema.
func (a *HeyGenAvatarAdapter) Validate(params map[string]any) error {
	var p AvatarVideoParams
	return decodeParams(params, &p)
}

// Submit starts an avatar video generation task.
func (a *HeyGenAvatarAdapter) Submit(ctx context.Context, params map[string]any) (Handle, error) {
	var p AvatarVideoParams
	if err := decodeParams(params, &p); err != nil {
		return Handle{}, err
	}
	videoID, err := a.client.Submit(ctx, heygen.SubmitRequest{
		AvatarID:  p.AvatarID,
		VoiceID:   p.VoiceID,
		InputText: p.InputText,
		Width:     p.Width,
		Height:    p.Height,
	})
	if err != nil {
		return Handle{}, classifyHeyGenError(err)
	}
	return Handle{ProviderJobID: videoID}, nil
}

// HeyGenLipsyncAdapter serves the lipsync kind through HeyGen.
type HeyGenLipsyncAdapter struct {
	heygenBase
}

// NewHeyGenLipsyncAdapter creates a HeyGen adapter for lipsync generation.
func NewHeyGenLipsyncAdapter(client heygen.Client) *HeyGenLipsyncAdapter {
	return &HeyGenLipsyncAdapter{heygenBase{client: client}}
}

// Validate checks the parameters against the lipsync schema.
func (a *HeyGenLipsyncAdapter) Validate(params map[string]any) error {
	var p LipsyncParams
	return decodeParams(params, &p)
}

// Submit starts a lipsync generation task.
func (a *HeyGenLipsyncAdapter) Submit(ctx context.Context, params map[string]any) (Handle, error) {
	var p LipsyncParams
	if err := decodeParams(params, &p); err != nil {
		return Handle{}, err
	}
	videoID, err := a.client.Submit(ctx, heygen.SubmitRequest{
		VideoURL: p.VideoURL,
		AudioURL: p.AudioURL,
	})
	if err != nil {
		return Handle{}, classifyHeyGenError(err)
	}
	return Handle{ProviderJobID: videoID}, nil
}

// classifyHeyGenError maps HeyGen client errors onto the common taxonomy.
func classifyHeyGenError(err error) error {
	var apiErr *heygen.APIError
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
		return NewError(kind, apiErr.Code, apiErr.Message, err)
	}
	return NewError(ErrorKindTransport, "", fmt.Sprintf("heygen: %v", err), err)
}

// Compile-time checks that the HeyGen adapters implement Adapter.
var (
	_ Adapter = (*HeyGenAvatarAdapter)(nil)
	_ Adapter = (*HeyGenLipsyncAdapter)(nil)
)
