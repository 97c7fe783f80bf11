// Package llm talks to an Ollama-compatible text-generation endpoint
// and wraps it with retry/backoff so transient service failures never
// escape into the scan pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimited marks the one recoverable failure class: the service
// shed load and the call may be retried after a backoff.
var ErrRateLimited = errors.New("generation service rate limited")

// minResponseTokens is the floor for the derived response-size hint.
const minResponseTokens = 256

// Backend is the raw generation capability. Implementations return the
// generated text or an error; rate limiting must be reported by
// wrapping ErrRateLimited.
type Backend interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Ollama calls the Ollama /api/generate endpoint.
type Ollama struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

// NewOllama creates a backend targeting the given Ollama instance and
// default model. The HTTP client carries a hard per-call timeout so a
// misbehaving service cannot hang a worker indefinitely.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

type generateOptions struct {
	NumPredict int `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends a single non-streaming completion request. model
// overrides the client default when non-empty.
func (o *Ollama) Generate(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = o.Model
	}

	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict: responseBudget(len(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generate returned %d: %w", resp.StatusCode, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generate returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}

// responseBudget derives a token ceiling for the response: the smallest
// power of two at or above a third of the prompt length, floored so
// short prompts still get a usable completion window.
func responseBudget(promptLen int) int {
	target := promptLen / 3
	n := minResponseTokens
	for n < target {
		n <<= 1
	}
	return n
}
