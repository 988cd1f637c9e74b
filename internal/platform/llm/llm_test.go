package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("expected error for missing model")
	}
	if err := (Config{Model: "gpt-4o-mini"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_Complete(t *testing.T) {
	var gotMessages []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]any `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		gotMessages = req.Messages

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Patient prefers evening telehealth sessions."}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := client.Complete(context.Background(), "You generate handoff briefs.", "Summarize the profile.")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Patient prefers evening telehealth sessions." {
		t.Errorf("completion = %q", out)
	}
	if len(gotMessages) != 2 {
		t.Fatalf("expected 2 messages sent, got %d", len(gotMessages))
	}
	if gotMessages[0]["role"] != "system" {
		t.Errorf("first message role = %v", gotMessages[0]["role"])
	}
	if gotMessages[1]["role"] != "user" {
		t.Errorf("second message role = %v", gotMessages[1]["role"])
	}
}

func TestClient_CompleteEmptyPrompt(t *testing.T) {
	client, err := NewClient(Config{Model: "gpt-4o-mini", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty user prompt")
	}
}

func TestClient_CompleteVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), "", "hi"); err == nil {
		t.Fatal("expected vendor error")
	}
}
