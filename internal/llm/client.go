package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// retryState is the explicit retry state machine. Transitions are
// driven by the classified error kind: rate limiting moves through
// BackoffWait back to Attempting until the retry budget runs out;
// everything else fails permanently on the first occurrence.
type retryState int

const (
	stateAttempting retryState = iota
	stateBackoffWait
	stateSucceeded
	stateFailedPermanent
	stateFailedExhausted
)

// Client wraps a Backend with bounded exponential backoff. It never
// propagates an error past its own boundary: callers receive the
// generated text, or an empty string meaning "no result".
type Client struct {
	Backend    Backend
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
	Jitter     float64
}

// NewClient returns a Client with the default retry policy: up to 10
// retries, starting at 1s, doubling each time, with ±10% jitter so
// concurrent workers don't resynchronize their retries.
func NewClient(backend Backend) *Client {
	return &Client{
		Backend:    backend,
		MaxRetries: 10,
		BaseDelay:  time.Second,
		Factor:     2,
		Jitter:     0.10,
	}
}

// Generate invokes the backend, absorbing transient failures. An empty
// result is "no result", never a signal the caller must branch on; the
// failure class is logged here for observability.
func (c *Client) Generate(ctx context.Context, prompt, model string) string {
	st := stateAttempting
	attempt := 0
	delay := c.BaseDelay
	var text string

	for {
		switch st {
		case stateAttempting:
			out, err := c.Backend.Generate(ctx, prompt, model)
			switch {
			case err == nil:
				text = out
				st = stateSucceeded
			case errors.Is(err, ErrRateLimited):
				if attempt >= c.MaxRetries {
					logrus.WithField("attempts", attempt+1).Warn("generation retries exhausted, dropping result")
					st = stateFailedExhausted
				} else {
					st = stateBackoffWait
				}
			default:
				logrus.WithError(err).Warn("generation failed permanently, dropping result")
				st = stateFailedPermanent
			}

		case stateBackoffWait:
			wait := c.jittered(delay)
			logrus.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"wait":    wait.Round(time.Millisecond),
			}).Debug("rate limited, backing off")

			select {
			case <-ctx.Done():
				return ""
			case <-time.After(wait):
			}

			delay = time.Duration(float64(delay) * c.Factor)
			attempt++
			st = stateAttempting

		case stateSucceeded:
			return text

		case stateFailedPermanent, stateFailedExhausted:
			return ""
		}
	}
}

// jittered spreads a delay across ±Jitter of its nominal value.
func (c *Client) jittered(d time.Duration) time.Duration {
	if c.Jitter <= 0 {
		return d
	}
	span := 2 * c.Jitter * rand.Float64()
	return time.Duration(float64(d) * (1 - c.Jitter + span))
}
