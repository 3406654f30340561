// Package ai produces diagnoses by calling the Anthropic Messages API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/kfix-sh/kfix/internal/logging"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	maxOutputTokens  = 1024
	defaultRetries   = 3
	defaultRetryWait = 2 * time.Second
)

// TokenUsage reports the token spend and model of the last completion.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	Model        string
}

// DiagnosisError is returned when the provider fails after retries are
// exhausted (transport, rate limit, timeout, API error).
type DiagnosisError struct {
	Status int // 0 for transport errors
	Err    error
}

func (e *DiagnosisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("diagnosis request failed (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("diagnosis request failed: %v", e.Err)
}

func (e *DiagnosisError) Unwrap() error { return e.Err }

// Client is a minimal Anthropic Messages API client with retry on rate
// limits and server errors. A kfix invocation owns exactly one client;
// nothing here is shared across processes.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
	lastUsage  *TokenUsage
	log        *slog.Logger
}

// NewClient creates a client for the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		maxRetries: defaultRetries,
		retryWait:  defaultRetryWait,
		log:        logging.Component("ai"),
	}
}

// LastUsage returns the token usage of the most recent completed call,
// or nil before the first one.
func (c *Client) LastUsage() *TokenUsage {
	return c.lastUsage
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Complete sends one user prompt and returns the full response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.send(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", &DiagnosisError{Err: errors.Wrap(err, "read response")}
	}

	var resp messageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &DiagnosisError{Err: errors.Wrap(err, "parse response")}
	}
	if len(resp.Content) == 0 {
		return "", &DiagnosisError{Err: errors.New("empty response content")}
	}

	c.lastUsage = &TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        resp.Model,
	}
	return resp.Content[0].Text, nil
}

// send performs the HTTP exchange with retries and returns the response
// body on success. The caller owns closing it.
func (c *Client) send(ctx context.Context, prompt string, stream bool) (io.ReadCloser, error) {
	payload, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		Stream:    stream,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, &DiagnosisError{Err: errors.Wrap(err, "marshal request")}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying diagnosis request", "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, &DiagnosisError{Err: ctx.Err()}
			case <-time.After(c.retryWait * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return nil, &DiagnosisError{Err: errors.Wrap(err, "create request")}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &DiagnosisError{Err: errors.Wrap(err, "request")}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastErr = &DiagnosisError{
			Status: resp.StatusCode,
			Err:    errors.New(apiErrorMessage(raw)),
		}
		if !retryable(resp.StatusCode) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func apiErrorMessage(raw []byte) string {
	var resp struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(raw, &resp) == nil && resp.Error != nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	return string(raw)
}
