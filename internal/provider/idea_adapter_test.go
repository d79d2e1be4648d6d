package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockGenerator is a testify mock for the llm.Generator interface.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestIdeaAdapter_Validate(t *testing.T) {
	adapter := NewIdeaAdapter(&mockGenerator{})

	assert.NoError(t, adapter.Validate(map[string]any{"topic": "ponds"}))
	assert.NoError(t, adapter.Validate(map[string]any{"topic": "ponds", "count": 3, "tone": "playful"}))

	err := adapter.Validate(map[string]any{"count": 3})
	require.Error(t, err)
	assert.Equal(t, ErrorKindValidation, KindOf(err))

	err = adapter.Validate(map[string]any{"topic": "ponds", "count": 50})
	require.Error(t, err, "count above the cap is rejected")
	assert.Equal(t, ErrorKindValidation, KindOf(err))
}

func TestIdeaAdapter_Generate(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, `Generate 3 content ideas about "ponds". Use a playful tone.`).
		Return("1. duck races\n2. lily pad tours\n3. frog karaoke", nil)

	adapter := NewIdeaAdapter(gen)
	result, err := adapter.Generate(context.Background(), map[string]any{
		"topic": "ponds",
		"count": 3,
		"tone":  "playful",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "duck races")
	gen.AssertExpectations(t)
}

func TestIdeaAdapter_Generate_DefaultCount(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, `Generate 5 content ideas about "ponds".`).Return("ideas", nil)

	adapter := NewIdeaAdapter(gen)
	_, err := adapter.Generate(context.Background(), map[string]any{"topic": "ponds"})
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestIdeaAdapter_Generate_GeneratorError(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))

	adapter := NewIdeaAdapter(gen)
	_, err := adapter.Generate(context.Background(), map[string]any{"topic": "ponds"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindTransport, KindOf(err))
}

func TestIdeaAdapter_AsyncMethodsAreUnsupported(t *testing.T) {
	adapter := NewIdeaAdapter(&mockGenerator{})
	ctx := context.Background()

	_, err := adapter.Submit(ctx, map[string]any{"topic": "ponds"})
	assert.ErrorIs(t, err, ErrSynchronousOnly)

	_, err = adapter.Poll(ctx, Handle{ProviderJobID: "x"})
	assert.ErrorIs(t, err, ErrSynchronousOnly)

	_, err = adapter.FetchResult(ctx, Handle{ProviderJobID: "x"})
	assert.ErrorIs(t, err, ErrSynchronousOnly)

	assert.NoError(t, adapter.Cancel(ctx, Handle{}))
}
