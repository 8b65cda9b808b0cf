// Package llm implements the specialist opinion producer client. Each
// specialist role is backed by a role-specific system prompt sent to an
// OpenAI-compatible chat-completions endpoint; the free-form analysis is
// parsed into the structured opinion fields the consensus core consumes.
// The core never inspects how the text was generated.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ahrav/go-consilium/internal/domain"
)

// Client produces one specialist's structured assessment of a case.
// Implementations map the case and role to a provider request and parse the
// response into opinion fields; transport resilience (retry classification)
// is surfaced through ProviderError.
type Client interface {
	// Consult asks the specialist backing the given role to analyze the
	// case and returns its structured reply.
	Consult(ctx context.Context, in ConsultPromptInput) (*SpecialistReply, error)
}

// ConsultPromptInput carries everything needed to produce one specialist
// opinion: the role to impersonate, the case under review, and the
// generation configuration.
type ConsultPromptInput struct {
	Role   domain.SpecialistRole `json:"role"`
	Case   domain.MedicalCase    `json:"case"`
	Config domain.ConsultConfig  `json:"config"`
}

// SpecialistReply is the parsed, structured result of one specialist call.
// Values are already clamped to their domain ranges; missing fields carry
// the documented defaults.
type SpecialistReply struct {
	Narrative       string   `json:"narrative"`
	Confidence      float64  `json:"confidence"`
	PriorityScore   float64  `json:"priority_score"`
	Recommendations []string `json:"recommendations"`
	Concerns        []string `json:"concerns"`

	Provider  string `json:"provider"`
	Model     string `json:"model"`
	LatencyMs int64  `json:"latency_ms"`
	Tokens    int64  `json:"tokens"`
}

// ProviderError wraps a provider failure with enough classification for the
// activity layer to decide between retryable and non-retryable handling.
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure is transient. Rate limits and
// server-side errors retry; client errors do not.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrEmptyCompletion indicates the provider returned no choices.
var ErrEmptyCompletion = errors.New("provider returned empty completion")

// Config holds the HTTP client configuration for the specialist backend.
type Config struct {
	// BaseURL is the OpenAI-compatible API root, e.g.
	// "https://api.openai.com/v1" or a self-hosted deployment.
	BaseURL string

	// APIKey authenticates requests; sent as a bearer token.
	APIKey string

	// Model is the default model when the consultation config names none.
	Model string

	// HTTPClient optionally overrides the transport; a default client with
	// a 90 second timeout is used when nil.
	HTTPClient *http.Client
}

const defaultHTTPTimeout = 90 * time.Second

// httpClient is the production Client implementation over an
// OpenAI-compatible chat-completions endpoint.
type httpClient struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a specialist client from the provided configuration.
func NewClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("llm: base URL is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &httpClient{cfg: cfg, http: hc}, nil
}

// chatRequest and chatResponse mirror the OpenAI chat-completions wire
// format, reduced to the fields this client uses.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Consult implements Client over the configured endpoint. The specialist's
// reply is requested as JSON and parsed with defaulting and clamping so a
// sloppy completion still yields a usable structured opinion.
func (c *httpClient) Consult(ctx context.Context, in ConsultPromptInput) (*SpecialistReply, error) {
	model := in.Config.Model
	if model == "" {
		model = c.cfg.Model
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: rolePrompt(in.Role)},
			{Role: "user", Content: casePrompt(in.Case)},
		},
		Temperature: in.Config.Temperature,
		MaxTokens:   in.Config.MaxOpinionTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &ProviderError{StatusCode: httpResp.StatusCode, Message: string(body)}
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	reply := parseSpecialistReply(resp.Choices[0].Message.Content)
	reply.Provider = in.Config.Provider
	reply.Model = resp.Model
	reply.LatencyMs = time.Since(start).Milliseconds()
	reply.Tokens = resp.Usage.TotalTokens

	return reply, nil
}
