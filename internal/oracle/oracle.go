// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle defines the generative-model capability used by the
// model-assisted validators, a Claude-backed implementation, and a retry
// wrapper that bounds each call with a timeout and exponential backoff.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Task names the validator asking the model a question. Backends may use it
// for logging or routing; fakes use it to select canned responses.
type Task string

const (
	TaskConsistency Task = "consistency"
	TaskTraps       Task = "traps"
	TaskEvidence    Task = "evidence"
)

// Request is one prompt sent to the model.
type Request struct {
	Task   Task
	Prompt string
}

// Oracle answers a prompt with the model's raw text response. Implementations
// must honour ctx cancellation.
type Oracle interface {
	Ask(ctx context.Context, req Request) (string, error)
}

// Func adapts an ordinary function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

// Ask calls f.
func (f Func) Ask(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// RetryPolicy bounds transient-failure handling for one model call.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// Timeout applies to each attempt separately. Zero disables it.
	Timeout time.Duration
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

type retrying struct {
	next   Oracle
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps o so each Ask is attempted up to MaxRetries+1 times with a
// per-attempt timeout. The error from the final attempt is returned once
// retries are exhausted. A nil logger discards retry logging.
func WithRetry(o Oracle, policy RetryPolicy, logger *slog.Logger) Oracle {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &retrying{next: o, policy: policy, logger: logger}
}

func (r *retrying) Ask(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			r.logger.WarnContext(ctx, "model call failed, retrying",
				"task", req.Task,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := r.ask(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("after %d retries: %w", r.policy.MaxRetries, lastErr)
}

func (r *retrying) ask(ctx context.Context, req Request) (string, error) {
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}
	resp, err := r.next.Ask(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", ErrEmptyResponse
	}
	return resp, nil
}
