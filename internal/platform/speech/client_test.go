package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Transcribe(t *testing.T) {
	var gotAuth, gotModel, gotPrompt, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotPrompt = r.FormValue("prompt")
		if f, hdr, err := r.FormFile("file"); err == nil {
			gotFile = hdr.Filename
			f.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "I take sertraline and have Aetna."}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Model:   "whisper-1",
	})

	text, err := client.Transcribe(context.Background(), []byte("fake-webm"), "combined.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "I take sertraline and have Aetna." {
		t.Errorf("transcript = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if gotPrompt != ContextPrompt {
		t.Errorf("prompt = %q", gotPrompt)
	}
	if gotFile != "combined.webm" {
		t.Errorf("file name = %q", gotFile)
	}
}

func TestClient_TranscribeVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Unsupported file format"}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Transcribe(context.Background(), []byte("bad"), "x.bin")
	if err == nil {
		t.Fatal("expected vendor error")
	}
	if !strings.Contains(err.Error(), "Unsupported file format") {
		t.Errorf("expected vendor message in error, got: %v", err)
	}
}

func TestClient_TranscribeEmptyAudio(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost:0"})
	if _, err := client.Transcribe(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestClient_TranscribeEmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "   "}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	if _, err := client.Transcribe(context.Background(), []byte("a"), "a.webm"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestParseSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12.5", 12.5},
		{" 3 ", 3},
		{"", 0},
		{"N/A", 0},
		{"-4", 0},
	}
	for _, tc := range cases {
		if got := parseSeconds(tc.in); got != tc.want {
			t.Errorf("parseSeconds(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
