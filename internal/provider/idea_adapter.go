package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rgallego/genstudio-api/internal/llm"
)

// ErrSynchronousOnly is returned when the asynchronous contract methods are
// invoked on a provider that completes in a single step.
var ErrSynchronousOnly = errors.New("provider: synchronous provider has no remote job lifecycle")

// IdeaParams is the parameter schema for the idea kind.
type IdeaParams struct {
	Topic string `json:"topic" validate:"required"`
	// Count bounds how many ideas the prompt asks for.
	Count int `json:"count,omitempty" validate:"omitempty,min=1,max=20"`
	// Tone optionally steers the writing style.
	Tone string `json:"tone,omitempty" validate:"omitempty,max=64"`
}

// IdeaAdapter serves the idea kind: a synchronous call-and-complete provider
// with no remote polling phase.
type IdeaAdapter struct {
	gen llm.Generator
}

// NewIdeaAdapter creates an idea generation adapter over a text generator.
func NewIdeaAdapter(gen llm.Generator) *IdeaAdapter {
	return &IdeaAdapter{gen: gen}
}

// Validate checks the parameters against the idea schema.
func (a *IdeaAdapter) Validate(params map[string]any) error {
	var p IdeaParams
	return decodeParams(params, &p)
}

// Generate produces the ideas in a single synchronous call.
func (a *IdeaAdapter) Generate(ctx context.Context, params map[string]any) (*Result, error) {
	var p IdeaParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	count := p.Count
	if count == 0 {
		count = 5
	}
	prompt := fmt.Sprintf("Generate %d content ideas about %q.", count, p.Topic)
	if p.Tone != "" {
		prompt += fmt.Sprintf(" Use a %s tone.", p.Tone)
	}

	text, err := a.gen.Complete(ctx, prompt)
	if err != nil {
		return nil, NewError(ErrorKindTransport, "", err.Error(), err)
	}
	return &Result{Text: text}, nil
}

// Submit is not part of the synchronous lifecycle.
func (a *IdeaAdapter) Submit(context.Context, map[string]any) (Handle, error) {
	return Handle{}, ErrSynchronousOnly
}

// Poll is not part of the synchronous lifecycle.
func (a *IdeaAdapter) Poll(context.Context, Handle) (Status, error) {
	return Status{}, ErrSynchronousOnly
}

// FetchResult is not part of the synchronous lifecycle.
func (a *IdeaAdapter) FetchResult(context.Context, Handle) (*Result, error) {
	return nil, ErrSynchronousOnly
}

// Cancel is a no-op: there is never remote work in flight.
func (a *IdeaAdapter) Cancel(context.Context, Handle) error {
	return nil
}

// Compile-time checks for both capability sets.
var (
	_ Adapter     = (*IdeaAdapter)(nil)
	_ Synchronous = (*IdeaAdapter)(nil)
)
