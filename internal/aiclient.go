package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lychee-technology/sift"
)

// AIClient talks to the external text-generation service. The caller
// bounds every Generate with a context timeout; the client adds a rate
// limit and a circuit breaker so a misbehaving upstream degrades the AI
// tier instead of the whole pipeline.
type AIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
}

// NewAIClient creates a client from config. Returns nil when no base URL
// is configured, which the pipeline reads as "no AI tier".
func NewAIClient(cfg sift.AIConfig) *AIClient {
	if !cfg.Enabled() {
		return nil
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &AIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		breaker:    NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerWindow, cfg.BreakerOpenFor),
	}
}

// Probe checks that the service answers at all before the pipeline
// commits to the AI tier.
func (c *AIClient) Probe(ctx context.Context) error {
	if c.breaker.IsOpen() {
		return sift.NewUpstreamError("text-generation service breaker open", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return sift.NewUpstreamError("build probe request", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return sift.NewSiftError(sift.ErrorTypeUpstream, sift.ErrCodeUpstreamTimeout, "probe timed out").WithCause(err)
		}
		return sift.NewUpstreamError("text-generation service unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return sift.NewUpstreamError(fmt.Sprintf("probe returned status %d", resp.StatusCode), nil)
	}
	c.breaker.RecordSuccess()
	return nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends a system instruction and user prompt and returns the
// raw completion text.
func (c *AIClient) Generate(ctx context.Context, system, user string) (string, error) {
	if c.breaker.IsOpen() {
		return "", sift.NewUpstreamError("text-generation service breaker open", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", sift.NewUpstreamError("rate limiter wait canceled", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", sift.NewUpstreamError("encode generate request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", sift.NewUpstreamError("build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return "", sift.NewSiftError(sift.ErrorTypeUpstream, sift.ErrCodeUpstreamTimeout, "text-generation call timed out").WithCause(err)
		}
		return "", sift.NewUpstreamError("text-generation call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return "", sift.NewUpstreamError("read generate response", err)
	}
	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		zap.S().Warnw("text-generation service error", "status", resp.StatusCode)
		return "", sift.NewUpstreamError(fmt.Sprintf("generate returned status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		c.breaker.RecordFailure()
		return "", sift.NewUpstreamError("generate response missing completion", err)
	}

	c.breaker.RecordSuccess()
	return parsed.Choices[0].Message.Content, nil
}

func (c *AIClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
