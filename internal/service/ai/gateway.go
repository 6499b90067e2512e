package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gemini "google.golang.org/genai"

	"github.com/zhouzirui/medassist/backend/internal/model/genai"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
	DefaultModel      = "gemini-2.0-flash"
	DefaultTimeout    = 30 * time.Second
)

// ClientConfig carries everything the gateway needs; it is resolved before the
// client is constructed.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues generateContent calls against one fixed model. It never retries.
type Client struct {
	models  *gemini.Models
	timeout time.Duration
	model   string
}

// NewClient validates cfg and builds a Client on the Gemini SDK.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	baseURL, version := splitAPIVersion(strings.TrimSpace(cfg.BaseURL))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gemini base url %q: %w", baseURL, err)
	}
	if v := strings.TrimSpace(cfg.APIVersion); v != "" {
		version = v
	}
	if version == "" {
		version = DefaultAPIVersion
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	sdk, err := gemini.NewClient(context.Background(), &gemini.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    gemini.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: gemini.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		models:  sdk.Models,
		timeout: timeout,
		model:   model,
	}, nil
}

// splitAPIVersion accepts base urls written with a trailing version segment,
// e.g. https://host/v1beta.
func splitAPIVersion(baseURL string) (string, string) {
	trimmed := strings.TrimRight(baseURL, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return baseURL, ""
	}
	switch last := trimmed[i+1:]; last {
	case "v1", "v1beta", "v1alpha":
		return trimmed[:i+1], last
	}
	return baseURL, ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Send posts the request and returns the decoded body. Failures come back as
// *TransportError, *APIError or ErrMalformedResponse.
func (c *Client) Send(ctx context.Context, req *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	if req == nil {
		return nil, errors.New("generateContent request is nil")
	}
	contents, config := toSDKRequest(req)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	elapsed := time.Since(started)
	if err != nil {
		mapped := c.mapError(err, elapsed)
		log.Printf("[ai] generateContent model=%s failed after %s: %v", c.model, elapsed.Round(time.Millisecond), mapped)
		return nil, mapped
	}

	decoded := fromSDKResponse(resp)
	log.Printf("[ai] generateContent model=%s candidates=%d elapsed=%s", c.model, len(decoded.Candidates), elapsed.Round(time.Millisecond))
	return decoded, nil
}

func (c *Client) mapError(err error, elapsed time.Duration) error {
	var apiErr gemini.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Message: apiErrorMessage(apiErr)}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &TransportError{Cause: err, Timeout: timeout, After: elapsed}
}

// apiErrorMessage prefers error.message from a JSON body. For bodies that are
// not a Gemini error envelope the SDK fills Status with the HTTP status line,
// which is what gets surfaced.
func apiErrorMessage(err gemini.APIError) string {
	statusLine := strings.HasPrefix(err.Status, strconv.Itoa(err.Code)+" ")
	if msg := strings.TrimSpace(err.Message); msg != "" && !statusLine {
		return msg
	}
	if statusLine {
		return err.Status
	}
	return fmt.Sprintf("%d %s", err.Code, http.StatusText(err.Code))
}

func toSDKRequest(req *genai.GenerateContentRequest) ([]*gemini.Content, *gemini.GenerateContentConfig) {
	contents := make([]*gemini.Content, 0, len(req.Contents))
	for i := range req.Contents {
		contents = append(contents, toSDKContent(&req.Contents[i]))
	}

	config := &gemini.GenerateContentConfig{}
	if req.SystemInstruction != nil {
		config.SystemInstruction = toSDKContent(req.SystemInstruction)
	}
	for _, s := range req.SafetySettings {
		config.SafetySettings = append(config.SafetySettings, &gemini.SafetySetting{
			Category:  gemini.HarmCategory(s.Category),
			Threshold: gemini.HarmBlockThreshold(s.Threshold),
		})
	}
	if g := req.GenerationConfig; g != nil {
		if g.Temperature != nil {
			config.Temperature = gemini.Ptr(float32(*g.Temperature))
		}
		if g.TopP != nil {
			config.TopP = gemini.Ptr(float32(*g.TopP))
		}
		if g.TopK != nil {
			config.TopK = gemini.Ptr(float32(*g.TopK))
		}
		if g.MaxOutputTokens != nil {
			config.MaxOutputTokens = int32(*g.MaxOutputTokens)
		}
	}
	return contents, config
}

func toSDKContent(content *genai.Content) *gemini.Content {
	out := &gemini.Content{Role: content.Role}
	for _, part := range content.Parts {
		out.Parts = append(out.Parts, &gemini.Part{Text: part.Text})
	}
	return out
}

// fromSDKResponse keeps only the fields the interpreter reads. Thought parts are skipped.
func fromSDKResponse(resp *gemini.GenerateContentResponse) *genai.GenerateContentResponse {
	out := &genai.GenerateContentResponse{}
	if resp == nil {
		return out
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		converted := genai.Candidate{FinishReason: string(candidate.FinishReason)}
		if candidate.Content != nil {
			content := &genai.Content{Role: candidate.Content.Role}
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				content.Parts = append(content.Parts, genai.Part{Text: part.Text})
			}
			converted.Content = content
		}
		out.Candidates = append(out.Candidates, converted)
	}
	if resp.PromptFeedback != nil {
		out.PromptFeedback = &genai.PromptFeedback{BlockReason: string(resp.PromptFeedback.BlockReason)}
	}
	return out
}
