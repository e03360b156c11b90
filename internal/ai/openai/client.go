package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/criteria"
	"github.com/spigell/cv-scorer/internal/logger"
	"github.com/spigell/cv-scorer/internal/utils"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-4-32k"
	defaultMaxLogLength = 200
	maxAttempts         = 3
	initialBackoff      = 500 * time.Millisecond
)

var sleep = time.Sleep

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
	maxLogLen  int
}

// New creates a client from settings. An empty endpoint means the public OpenAI API.
func New(settings ai.Settings, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(settings.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(settings.Endpoint), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(settings.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ai.DefaultMaxTokens
	}
	maxLogLen := settings.MaxLogLen
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{},
		logger:     logger.WithCommonFields(log, ai.ProviderOpenAI, model),
		maxLogLen:  maxLogLen,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// Score sends the JSON-only wrapped request and parses the reply into a result.
func (c *Client) Score(ctx context.Context, req ai.Request) (criteria.Result, error) {
	system, user := ai.BuildMessages(req)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: req.Temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("openai chat completion request",
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, c.maxLogLen)),
	)

	raw, err := c.complete(ctx, body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &ai.ServiceError{Provider: ai.ProviderOpenAI, Err: err}
	}

	c.logger.Debug("openai chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return ai.ParseResult(raw)
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	var lastErr error
	for attempt := range maxAttempts {
		content, err := c.doChat(ctx, body)
		if err == nil {
			return content, nil
		}

		var rateErr *rateLimitError
		if !errors.As(err, &rateErr) {
			return "", err
		}

		lastErr = err
		if attempt < maxAttempts-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			c.logger.Warn("openai rate limited, retrying", zap.Int("attempt", attempt+1), zap.Duration("delay", backoff))
			if err := utils.WaitWith(ctx, backoff, sleep); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("rate limited after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doChat(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &rateLimitError{status: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}

var _ ai.Scorer = (*Client)(nil)
