package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ContextPrompt is sent with every transcription request so the vendor model
// biases toward intake vocabulary (medication names, insurance terms).
const ContextPrompt = "This is a recorded mental health intake conversation " +
	"between a patient and a virtual intake assistant. It may include " +
	"medication names, insurance providers, and scheduling preferences."

// Transcriber converts recorded audio into text.
type Transcriber interface {
	// Transcribe sends audio bytes to the vendor and returns the transcript.
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
}

// ClientConfig configures the hosted speech-to-text client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client
}

// Client calls an OpenAI-compatible /audio/transcriptions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient returns a configured speech-to-text client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// The vendor call dominates the five-minute transcription budget.
		httpClient = &http.Client{Timeout: 4 * time.Minute}
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		http:    httpClient,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type vendorError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads the audio as multipart form data and returns the
// transcript text. Vendor errors are returned verbatim in the error message
// so the job record can store them.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}
	if fileName == "" {
		fileName = "audio.webm"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("transcribe: building form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("transcribe: writing audio: %w", err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("transcribe: writing model field: %w", err)
	}
	if err := w.WriteField("prompt", ContextPrompt); err != nil {
		return "", fmt.Errorf("transcribe: writing prompt field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("transcribe: closing form: %w", err)
	}

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: building request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("transcribe: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ve vendorError
		if json.Unmarshal(respBody, &ve) == nil && ve.Error.Message != "" {
			return "", fmt.Errorf("transcribe: vendor returned %d: %s", resp.StatusCode, ve.Error.Message)
		}
		return "", fmt.Errorf("transcribe: vendor returned %d", resp.StatusCode)
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("transcribe: decoding response: %w", err)
	}
	if strings.TrimSpace(tr.Text) == "" {
		return "", fmt.Errorf("transcribe: vendor returned empty transcript")
	}

	return tr.Text, nil
}
