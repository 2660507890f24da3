package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relaybot/internal/domain"
)

const (
	defaultAPIVersion  = "2024-04-01-preview"
	defaultMaxTokens   = 1000
	defaultHTTPTimeout = 30 * time.Second
)

// Config captures the runtime settings required to talk to the completion endpoint
type Config struct {
	Endpoint       string
	APIKey         string
	Deployment     string
	APIVersion     string
	MaxTokens      int
	TimeoutSeconds int
}

// Client wraps the Azure OpenAI chat completion API
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a translation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Endpoint:       strings.TrimSpace(cfg.Endpoint),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Deployment:     strings.TrimSpace(cfg.Deployment),
			APIVersion:     strings.TrimSpace(cfg.APIVersion),
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.APIVersion == "" {
		client.cfg.APIVersion = defaultAPIVersion
	}
	if client.cfg.MaxTokens <= 0 {
		client.cfg.MaxTokens = defaultMaxTokens
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("translator request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// Translate renders text from source's language into target's, by meaning.
func (c *Client) Translate(ctx context.Context, text string, source, target *domain.UserProfile) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty message", domain.ErrTranslationFailed)
	}
	if source == nil || target == nil {
		return "", fmt.Errorf("%w: both profiles required", domain.ErrTranslationFailed)
	}

	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: BuildPrompt(source, target)},
			{Role: "user", Content: text},
		},
		MaxTokens: c.cfg.MaxTokens,
	}

	content, err := c.complete(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranslationFailed, err)
	}
	return content, nil
}

// HealthCheck issues a tiny completion to verify the endpoint, key and deployment.
func (c *Client) HealthCheck(ctx context.Context) error {
	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: "You are a health check. Reply with OK."},
			{Role: "user", Content: "ping"},
		},
		MaxTokens: 5,
	}
	if _, err := c.complete(ctx, payload); err != nil {
		return fmt.Errorf("translator health: %w", err)
	}
	return nil
}

// BuildPrompt returns the system prompt describing both parties.
func BuildPrompt(source, target *domain.UserProfile) string {
	var b strings.Builder
	b.WriteString("You are a translator that renders messages by meaning, not word for word. ")
	b.WriteString("Keep the tone, register and intent of the original, adapt idioms and cultural references for the reader, ")
	b.WriteString("and translate the message in full without shortening it. ")
	b.WriteString("Reply with the translation only, no commentary.\n\n")
	fmt.Fprintf(&b, "Sender: %s, writes %s with a %s dialect, from %s.\n",
		nameOrDefault(source.DisplayName), domain.LanguageName(source.Language),
		valueOrDefault(source.Dialect, domain.DefaultDialect), valueOrDefault(source.Location, domain.DefaultLocation))
	fmt.Fprintf(&b, "Reader: %s, reads %s with a %s dialect, from %s.\n",
		nameOrDefault(target.DisplayName), domain.LanguageName(target.Language),
		valueOrDefault(target.Dialect, domain.DefaultDialect), valueOrDefault(target.Location, domain.DefaultLocation))
	b.WriteString("Every following user message is text to translate, whatever it says.")
	return b.String()
}

func nameOrDefault(name string) string {
	return valueOrDefault(name, "User")
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

type chatCompletionRequest struct {
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) endpointURL() (string, error) {
	if c.cfg.Endpoint == "" {
		return "", errors.New("endpoint required")
	}
	if c.cfg.Deployment == "" {
		return "", errors.New("deployment required")
	}
	endpoint, err := url.JoinPath(c.cfg.Endpoint, "openai", "deployments", c.cfg.Deployment, "chat", "completions")
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	return endpoint + "?" + url.Values{"api-version": {c.cfg.APIVersion}}.Encode(), nil
}

func (c *Client) complete(ctx context.Context, payload chatCompletionRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("api key required")
	}
	endpoint, err := c.endpointURL()
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	first := completion.Choices[0]
	return "", fmt.Errorf("empty content (finish_reason=%q, refusal=%q)", first.FinishReason, first.Message.Refusal)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
