package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zhouzirui/medassist/backend/internal/model/genai"
	"github.com/zhouzirui/medassist/backend/internal/service/ai"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *ai.Client {
	t.Helper()
	client, err := ai.NewClient(ai.ClientConfig{APIKey: "test-key", BaseURL: baseURL, Model: "gemini-test", Timeout: timeout})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}
	return client
}

func sampleRequest() *genai.GenerateContentRequest {
	return &genai.GenerateContentRequest{
		Contents:          []genai.Content{{Role: genai.RoleUser, Parts: []genai.Part{{Text: "hi"}}}},
		SystemInstruction: &genai.Content{Parts: []genai.Part{{Text: "preamble"}}},
		SafetySettings:    genai.DefaultSafetySettings(""),
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := ai.NewClient(ai.ClientConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestSendSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotBody genai.GenerateContentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello"}],"role":"model"},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":3}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "preamble" {
		t.Fatalf("system instruction not sent: %+v", gotBody.SystemInstruction)
	}
	if len(gotBody.SafetySettings) != 4 {
		t.Fatalf("expected safety settings in body, got %d", len(gotBody.SafetySettings))
	}
	if resp.Text() != "Hello" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
}

func TestSendAPIErrorUsesBodyMessage(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())

	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if apiErr.Message != "API key not valid. Please pass a valid API key." {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestSendAPIErrorFallsBackToStatusLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream overloaded"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())

	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "503 Service Unavailable" {
		t.Fatalf("expected status line, got %q", apiErr.Message)
	}
}

func TestSendPayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())

	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsPayloadTooLarge() {
		t.Fatalf("expected payload too large APIError, got %v", err)
	}
}

func TestSendMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 50*time.Millisecond).Send(context.Background(), sampleRequest())

	var transportErr *ai.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !transportErr.Timeout {
		t.Fatalf("expected timeout flag, got %+v", transportErr)
	}
}

func TestSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, time.Second).Send(context.Background(), sampleRequest())

	var transportErr *ai.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Timeout {
		t.Fatal("connection refused is not a timeout")
	}
}

func TestSendAcceptsVersionedBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL+"/v1beta/", time.Second).Send(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
}

func TestSendForwardsGenerationConfig(t *testing.T) {
	var gotBody genai.GenerateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	temperature := 0.5
	maxTokens := 256
	req := sampleRequest()
	req.GenerationConfig = &genai.GenerationConfig{Temperature: &temperature, MaxOutputTokens: &maxTokens}

	if _, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), req); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	cfg := gotBody.GenerationConfig
	if cfg == nil || cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Fatalf("temperature not forwarded: %+v", cfg)
	}
	if cfg.MaxOutputTokens == nil || *cfg.MaxOutputTokens != 256 {
		t.Fatalf("max output tokens not forwarded: %+v", cfg)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "hi" {
		t.Fatalf("contents not forwarded: %+v", gotBody.Contents)
	}
}

func TestSendKeepsFilterSignals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY"}],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if resp.BlockReason() != "SAFETY" {
		t.Fatalf("unexpected block reason %q", resp.BlockReason())
	}
	if c := resp.FirstCandidate(); c == nil || c.FinishReason != genai.FinishReasonSafety {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if resp.Text() != "" {
		t.Fatalf("expected no text, got %q", resp.Text())
	}
}

func TestSendSkipsThoughtParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"thinking","thought":true},{"text":"answer"}]}}]}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if resp.Text() != "answer" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
}
