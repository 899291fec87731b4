package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEmptyPrompt(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "tinyllama")
	_, err := client.Generate(context.Background(), "", Options{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.False(t, called, "empty prompt must be rejected before any network call")
}

func TestGenerateSendsPromptVerbatim(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "  the reply  "})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "tinyllama")
	reply, err := client.Generate(context.Background(), "a complete prompt", Options{
		Temperature: 0.2,
		TopP:        0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, "the reply", reply)

	assert.Equal(t, "tinyllama", got.Model)
	assert.Equal(t, "a complete prompt", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 0.8, got.TopP)
}

func TestGenerateWrapsPrompt(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "Question: echoed Answer: just this"})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "tinyllama")
	reply, err := client.Generate(context.Background(), "  what time is it?  ", Options{WrapPrompt: true})
	require.NoError(t, err)

	assert.Contains(t, got.Prompt, "Answer the following question clearly and concisely.")
	assert.Contains(t, got.Prompt, "Question:\nwhat time is it?")
	assert.True(t, len(got.Prompt) > len("what time is it?"))

	// Wrapping strips everything up to the scaffold's own Answer: cue.
	assert.Equal(t, "just this", reply)
}

func TestGenerateStripAfterMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "User: hi\nAnswer: We open at nine. "})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "tinyllama")
	reply, err := client.Generate(context.Background(), "prompt", Options{StripAfter: "Answer:"})
	require.NoError(t, err)
	assert.Equal(t, "We open at nine.", reply)
}

func TestGenerateStripAfterAbsentMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "plain reply"})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "tinyllama")
	reply, err := client.Generate(context.Background(), "prompt", Options{StripAfter: "Answer:"})
	require.NoError(t, err)
	assert.Equal(t, "plain reply", reply)
}

func TestGenerateBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "tinyllama")
	_, err := client.Generate(context.Background(), "prompt", Options{})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Detail, "model not loaded")
}

func TestGenerateBackendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // deliberately closed

	client := NewOllamaClient(server.URL, "tinyllama")
	_, err := client.Generate(context.Background(), "prompt", Options{})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Detail, "unreachable")
}

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		opts Options
		want string
	}{
		{"trims whitespace", "  hello  ", Options{}, "hello"},
		{"strip marker", "scaffold Answer: real", Options{StripAfter: "Answer:"}, "real"},
		{"strip first occurrence only", "Answer: one Answer: two", Options{StripAfter: "Answer:"}, "one Answer: two"},
		{"wrap fallback", "echo Answer: tail", Options{WrapPrompt: true}, "tail"},
		{"no marker no wrap", "plain", Options{}, "plain"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanReply(tc.raw, tc.opts))
		})
	}
}
