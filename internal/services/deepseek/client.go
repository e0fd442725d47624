package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"whispersub/internal/logging"
	"whispersub/internal/services"
)

const (
	// BatchSize is the number of texts sent per request.
	BatchSize = 20
	// MaxAttempts bounds the requests made for one batch.
	MaxAttempts = 3

	defaultModel       = "deepseek-chat"
	defaultHTTPTimeout = 120 * time.Second
	retryDelayUnit     = 2 * time.Second
	temperature        = 0.2
	snippetLimit       = 200
	stage              = "translating"
)

// Config captures the endpoint and credentials for translation requests.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Proxy, when set, routes requests through this HTTP(S) proxy URL.
	Proxy   string
	Timeout time.Duration
}

// Client wraps the chat completion API for subtitle translation.
type Client struct {
	cfg        Config
	httpClient *http.Client
	proxyErr   error
	sleeper    func(time.Duration)
	logger     *slog.Logger
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

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a translation client. Configuration problems are
// reported by TranslateBatch, not here, so a client can always be built.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	httpClient, proxyErr := newHTTPClient(cfg)
	client := &Client{
		cfg:        cfg,
		httpClient: httpClient,
		proxyErr:   proxyErr,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "deepseek")
	return client
}

// ParseProxy validates a proxy URL such as http://127.0.0.1:7890. An empty
// value returns nil without error.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "proxy",
			fmt.Sprintf("proxy must be a URL such as http://127.0.0.1:7890, got %q", raw), err)
	}
	return parsed, nil
}

// newHTTPClient never consults the host's proxy environment; only cfg.Proxy
// routes requests through a proxy.
func newHTTPClient(cfg Config) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	proxy, err := ParseProxy(cfg.Proxy)
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: transport}, err
}

// TranslateBatch translates texts into targetLanguage, preserving order and
// count. Empty input returns an empty result without contacting the service.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += BatchSize {
		end := min(start+BatchSize, len(texts))
		batchCtx := services.WithRequestID(ctx, uuid.NewString())
		translated, err := c.translateWithRetry(batchCtx, texts[start:end], targetLanguage)
		if err != nil {
			return nil, err
		}
		out = append(out, translated...)
	}
	return out, nil
}

// HealthCheck issues a single translation request to verify the endpoint,
// key, and model are usable. It does not retry.
func (c *Client) HealthCheck(ctx context.Context, targetLanguage string) error {
	if err := c.validate(); err != nil {
		return err
	}
	_, err := c.translateOnce(ctx, []string{"Hello"}, targetLanguage)
	return err
}

func (c *Client) validate() error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, stage, "translate", "translation base URL is required (set DEEPSEEK_BASE_URL)", nil)
	}
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, stage, "translate", "translation API key is required (set DEEPSEEK_API_KEY)", nil)
	}
	return c.proxyErr
}

func (c *Client) translateWithRetry(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	logger := logging.WithContext(ctx, c.logger)
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		translated, err := c.translateOnce(ctx, texts, targetLanguage)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == MaxAttempts {
			break
		}
		delay := time.Duration(attempt) * retryDelayUnit
		logging.WarnWithContext(logger, "translation batch failed; retrying", "translation_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", MaxAttempts),
			logging.Int("batch_size", len(texts)),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the translation endpoint"),
			logging.String(logging.FieldImpact, "translation delayed"),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) translateOnce(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	prompt, err := BuildUserPrompt(texts, targetLanguage)
	if err != nil {
		return nil, err
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	}
	content, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseTranslations(content, len(texts))
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, payload chatCompletionRequest) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat/completions")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stage, "build url", c.cfg.BaseURL, err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stage, "new request", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrTransport, stage, "request", fmt.Sprintf("http error (timeout=%s)", c.cfg.Timeout), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stage, "read body", "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrTransport, stage, "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarizePayloadSnippet(string(body))), nil)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", services.Wrap(services.ErrMalformedResponse, stage, "decode envelope", summarizePayloadSnippet(string(body)), err)
	}
	if completion.Error != nil {
		return "", services.Wrap(services.ErrMalformedResponse, stage, "api error", strings.TrimSpace(completion.Error.Message), nil)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message == nil || completion.Choices[0].Message.Content == nil {
		return "", services.Wrap(services.ErrMalformedResponse, stage, "decode envelope",
			"missing choices[0].message.content: "+summarizePayloadSnippet(string(body)), nil)
	}
	return *completion.Choices[0].Message.Content, nil
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
