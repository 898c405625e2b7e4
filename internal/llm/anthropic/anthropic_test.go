package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/broadcomms/brainstormx/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComplete_TextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System != "You are a facilitator." {
			t.Errorf("system = %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.MaxTokens <= 0 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "Welcome "}, {"type": "text", "text": "everyone."}],
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", "claude-sonnet-4-5", discardLogger(), WithBaseURL(srv.URL))
	resp, err := client.Complete(context.Background(), &llm.Request{
		SystemPrompt: "You are a facilitator.",
		Prompt:       "Open the session.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Welcome everyone." {
		t.Errorf("text blocks not concatenated: %q", resp.Text)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 4 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"type": "overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient("test-key", "claude-sonnet-4-5", discardLogger(), WithBaseURL(srv.URL))
	if _, err := client.Complete(context.Background(), &llm.Request{Prompt: "Hi"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
