package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_ReturnsScriptedResponsesInOrder(t *testing.T) {
	f := NewFake(
		CompletionResponse{Text: "first"},
		CompletionResponse{ToolCall: &ToolCall{Name: "get_status"}},
	)

	r1, err := f.Complete(context.Background(), CompletionRequest{System: "s"})
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Text)

	r2, err := f.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	require.NotNil(t, r2.ToolCall)
	assert.Equal(t, "get_status", r2.ToolCall.Name)

	assert.Len(t, f.Requests, 2)
}

func TestFake_ExhaustedFallsBackToPlaceholder(t *testing.T) {
	f := NewFake(CompletionResponse{Text: "only one"})
	_, err := f.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	r, err := f.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Text)
}

func TestNewAnthropicClient_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(Config{})
	require.Error(t, err)
}

func TestNewAnthropicClient_DefaultsModel(t *testing.T) {
	c, err := NewAnthropicClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-20250514", c.model)
}
