package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/config"
)

// TextGenerator is the call primitive shared by classification and reply
// suggestion.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to the generative-text backend over HTTP with a bounded
// retry policy for transient failures.
type Client struct {
	httpClient      *http.Client
	endpoint        string
	apiKey          string
	temperature     float64
	maxOutputTokens int
	policy          Policy
	logger          *zap.Logger
}

// NewClient builds a client from configuration. Retries happen only on
// HTTP 429 and 503, up to three attempts with 2s/4s backoff in between.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := time.Duration(cfg.InitialBackoffSeconds) * time.Second
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		endpoint:        cfg.Endpoint,
		apiKey:          cfg.APIKey,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		policy: Policy{
			MaxAttempts:    attempts,
			InitialBackoff: backoff,
			Retryable:      retryableStatus,
		},
		logger: logger,
	}
}

type generateRequest struct {
	Prompt          string  `json:"prompt"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	ResponseFormat  string  `json:"responseFormat"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// httpStatusError carries only the numeric status of a failed request so no
// credential material from the keyed URL can leak through error text.
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return "backend returned status " + strconv.Itoa(e.code)
}

func retryableStatus(err error) bool {
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.code == http.StatusTooManyRequests || statusErr.code == http.StatusServiceUnavailable
}

// Generate sends one prompt and returns the generated text. Transient
// failures (429/503) are retried per policy; every other failure is raised
// immediately. After the retry budget is exhausted the call fails with
// ErrRateLimited regardless of the last observed status.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		generated, reqErr := c.doRequest(ctx, prompt)
		if reqErr != nil {
			return reqErr
		}
		text = generated
		return nil
	})
	if err == nil {
		return text, nil
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return "", fmt.Errorf("%w: request budget exhausted, try again later", ErrRateLimited)
		default:
			return "", fmt.Errorf("%w: backend returned status %d", ErrGenerationFailed, statusErr.code)
		}
	}
	return "", err
}

func (c *Client) doRequest(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Prompt:          prompt,
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxOutputTokens,
		ResponseFormat:  "json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request", ErrGenerationFailed)
	}

	url := c.endpoint
	if c.apiKey != "" {
		url += "?key=" + c.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request", ErrGenerationFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The transport error string includes the keyed URL; log the
		// status only and hand callers a generic message.
		if c.logger != nil {
			c.logger.Warn("generative backend unreachable")
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: could not reach generative backend", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		if c.logger != nil {
			c.logger.Warn("generative request failed", zap.Int("status", resp.StatusCode))
		}
		return "", &httpStatusError{code: resp.StatusCode}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response envelope", ErrGenerationFailed)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("%w: backend returned empty text", ErrGenerationFailed)
	}
	return parsed.Text, nil
}
