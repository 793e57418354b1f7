package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultChatBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultChatModel   = "gpt-4o"
	defaultRetryDelay  = 2 * time.Second
)

// ChatGenerator is an OpenAI-compatible chat completions client. It works
// against OpenAI, OpenRouter, and AI-core style deployments that accept a
// bearer token and an optional resource-group header.
type ChatGenerator struct {
	apiKey        string
	model         string
	baseURL       string
	resourceGroup string
	temperature   float64
	maxRetries    int
	retryDelay    time.Duration
	tokens        TokenSource
	http          *http.Client
}

// ChatOption configures a ChatGenerator.
type ChatOption func(*ChatGenerator)

// WithTokenSource authenticates with tokens from ts instead of a static key.
func WithTokenSource(ts TokenSource) ChatOption {
	return func(g *ChatGenerator) { g.tokens = ts }
}

// WithResourceGroup sets the AI-Resource-Group header.
func WithResourceGroup(rg string) ChatOption {
	return func(g *ChatGenerator) { g.resourceGroup = rg }
}

// WithRetries sets the number of attempts for retryable failures and the
// base delay between them. Delay grows linearly with the attempt number.
func WithRetries(n int, delay time.Duration) ChatOption {
	return func(g *ChatGenerator) {
		g.maxRetries = n
		g.retryDelay = delay
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ChatOption {
	return func(g *ChatGenerator) { g.temperature = t }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ChatOption {
	return func(g *ChatGenerator) { g.http = c }
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatGenerator creates a chat completions client. baseURL may be the
// API root or the full /chat/completions endpoint.
func NewChatGenerator(apiKey, model, baseURL string, opts ...ChatOption) *ChatGenerator {
	if model == "" {
		model = defaultChatModel
	}
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	} else {
		baseURL = strings.TrimRight(baseURL, "/")
		if !strings.HasSuffix(baseURL, "/chat/completions") {
			baseURL += "/chat/completions"
		}
	}
	g := &ChatGenerator{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		maxRetries: 3,
		retryDelay: defaultRetryDelay,
		http:       &http.Client{Timeout: 90 * time.Second},
	}
	for _, o := range opts {
		o(g)
	}
	if g.maxRetries < 1 {
		g.maxRetries = 1
	}
	return g
}

// Name returns "chat:<model>".
func (g *ChatGenerator) Name() string { return "chat:" + g.model }

// Generate sends prompt as a single user message. Rate-limit and
// unavailable responses are retried; everything else returns immediately.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxOutputTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fromContext("chat", ctx.Err())
			case <-time.After(g.retryDelay * time.Duration(attempt)):
			}
		}

		text, err := g.doRequest(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", g.maxRetries, lastErr)
}

func (g *ChatGenerator) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token := g.apiKey
	if g.tokens != nil {
		token, err = g.tokens.Token(ctx)
		if err != nil {
			return "", err
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if g.resourceGroup != "" {
		req.Header.Set("AI-Resource-Group", g.resourceGroup)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fromContext("chat", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fromContext("chat", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := g.tokens.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
		}
		return "", &BackendError{
			Kind:       KindFromStatus(resp.StatusCode),
			Provider:   "chat",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", malformed("chat", "unmarshal response: "+err.Error())
	}
	if result.Error != nil {
		return "", &BackendError{Kind: KindUnknown, Provider: "chat", Message: result.Error.Message}
	}
	if len(result.Choices) == 0 {
		return "", malformed("chat", "no choices in response")
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", malformed("chat", "empty completion")
	}
	return text, nil
}
