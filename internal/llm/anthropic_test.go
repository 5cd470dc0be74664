package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicClient_Complete(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path=%s", r.URL.Path)
		}
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "The answer [Source 1]."},
			},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{BaseURL: srv.URL, APIKey: "ak-test", MaxTokens: 512})
	out, err := c.Complete(context.Background(), "question with context")
	if err != nil {
		t.Fatal(err)
	}
	if out != "The answer [Source 1]." {
		t.Errorf("content=%q", out)
	}
	if gotKey != "ak-test" {
		t.Errorf("x-api-key=%q", gotKey)
	}
	if gotVersion != anthropicVersion {
		t.Errorf("anthropic-version=%q", gotVersion)
	}
	if gotReq.MaxTokens != 512 {
		t.Errorf("max_tokens=%d", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("messages=%+v", gotReq.Messages)
	}
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad request"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{BaseURL: srv.URL, APIKey: "x"})
	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Error("expected error for API error response")
	}
}

func TestAnthropicClient_NoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{BaseURL: srv.URL, APIKey: "x"})
	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Error("expected error when no text block is returned")
	}
}
