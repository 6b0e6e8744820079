package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"doc-assistant/internal/llm"
)

const okResponse = `{"id":"msg_01","type":"message","role":"assistant","model":"claude-3-sonnet-20240229",` +
	`"content":[{"type":"text","text":"## Summary\nShort."}],"stop_reason":"end_turn","stop_sequence":null,` +
	`"usage":{"input_tokens":12,"output_tokens":4}}`

func TestCompleteSendsFixedParameters(t *testing.T) {
	var (
		mu       sync.Mutex
		lastBody map[string]any
		apiKey   string
		calls    int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		lastBody = payload
		apiKey = r.Header.Get("X-Api-Key")
		calls++
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "claude-3-sonnet-20240229", server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	prompt := llm.BuildPrompt("Summarize.", "body text")
	got, err := client.Complete(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "## Summary\nShort." {
		t.Fatalf("unexpected text %q", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 request, got %d", calls)
	}
	if apiKey != "test-key" {
		t.Fatalf("expected api key header, got %q", apiKey)
	}
	if lastBody["model"] != "claude-3-sonnet-20240229" {
		t.Fatalf("unexpected model %v", lastBody["model"])
	}
	if lastBody["max_tokens"] != float64(4096) {
		t.Fatalf("unexpected max_tokens %v", lastBody["max_tokens"])
	}
	if lastBody["temperature"] != 0.7 {
		t.Fatalf("unexpected temperature %v", lastBody["temperature"])
	}
	raw, _ := json.Marshal(lastBody["messages"])
	if !strings.Contains(string(raw), `Summarize.\n\nDocument Content:\nbody text`) {
		t.Fatalf("combined prompt missing from messages: %s", raw)
	}
}

func TestCompleteReturnsErrorWithoutRetry(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "claude-3-sonnet-20240229", server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := client.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatalf("expected error, got text %q", got)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status in error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "m", ""); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewClient("k", " ", ""); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
