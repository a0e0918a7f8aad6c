// Package integration wraps every external system call (chat, ticketing,
// paging, firewall, identity, container-orchestrator) behind a uniform
// three-layer resilience wrapper: timeout, then retry with exponential
// backoff and jitter, then a circuit breaker (§4.4). Credential absence puts
// an integration in mock mode (decided once, when New builds it) rather
// than failing startup, so demo mode and
// partial-credential environments behave the same way.
package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/vigil-soc/vigil/pkg/config"
	"github.com/vigil-soc/vigil/pkg/metrics"
)

// ErrCircuitOpen is surfaced to callers when gobreaker refuses a call
// because the breaker for this integration is open.
var ErrCircuitOpen = errors.New("integration circuit breaker open")

// RetryableError marks an adapter failure as transient and eligible for
// §4.4's retry-with-backoff treatment. Adapters wrap rate-limit/timeout-ish
// failures in this type; anything else callWithRetry treats as permanent
// and gives up on immediately. RetryAfter, when set, is honored as a
// minimum wait before the next attempt (e.g. a rate limiter's advertised
// Retry-After), on top of the exponential backoff's own jittered delay.
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Integration is the uniform surface every external-system adapter
// implements. Call dispatches one named operation with arbitrary
// arguments; adapters decode args themselves.
type Integration interface {
	Name() string
	IsMock() bool
	Call(ctx context.Context, op string, args map[string]any) (map[string]any, error)
}

// Adapter is the mockable unit an Integration wraps: the real call when
// credentials are present, or a canned mock response otherwise.
type Adapter interface {
	Call(ctx context.Context, op string, args map[string]any) (map[string]any, error)
	MockCall(ctx context.Context, op string, args map[string]any) (map[string]any, error)
}

// wrapped is an Integration backed by an Adapter plus the resilience stack.
type wrapped struct {
	name    string
	mock    bool
	adapter Adapter
	timeout time.Duration
	retries int
	breaker *gobreaker.CircuitBreaker
}

// New builds a resilience-wrapped Integration. Mock mode is decided once,
// at construction, from whether cfg.CredentialEnv resolves to a non-empty
// environment variable — exactly the rule §4.4 specifies.
func New(name string, cfg config.IntegrationConfig, adapter Adapter) *wrapped {
	mock := os.Getenv(cfg.CredentialEnv) == ""

	breakerCfg := cfg.Breaker
	if breakerCfg == nil {
		breakerCfg = config.DefaultBreakerConfig()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerCfg.HalfOpenMaxCalls,
		Timeout:     breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerCfg.FailureThreshold
		},
	})

	return &wrapped{
		name:    name,
		mock:    mock,
		adapter: adapter,
		timeout: timeout,
		retries: cfg.MaxRetries,
		breaker: cb,
	}
}

func (w *wrapped) Name() string   { return w.name }
func (w *wrapped) IsMock() bool   { return w.mock }

// Call runs one operation through timeout → retry → circuit-breaker, in
// that order: the breaker sees one decision per Call (open/allow), the
// retry loop runs inside it, and each attempt gets its own timeout.
func (w *wrapped) Call(ctx context.Context, op string, args map[string]any) (map[string]any, error) {
	result, err := w.breaker.Execute(func() (any, error) {
		return w.callWithRetry(ctx, op, args)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordIntegrationError(w.name, "circuit_open")
			return nil, fmt.Errorf("%s: %w", w.name, ErrCircuitOpen)
		}
		metrics.RecordIntegrationError(w.name, "call_failed")
		return nil, err
	}
	return result.(map[string]any), nil
}

func (w *wrapped) callWithRetry(ctx context.Context, op string, args map[string]any) (map[string]any, error) {
	var result map[string]any

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()

		var err error
		if w.mock {
			result, err = w.adapter.MockCall(callCtx, op, args)
		} else {
			result, err = w.adapter.Call(callCtx, op, args)
		}
		if err == nil {
			return nil
		}

		var retryable *RetryableError
		if errors.As(err, &retryable) {
			if retryable.RetryAfter > 0 {
				select {
				case <-time.After(retryable.RetryAfter):
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				}
			}
			return retryable.Err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not wall-clock

	policy := backoff.WithMaxRetries(bo, uint64(maxInt(w.retries, 0)))
	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	return result, err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
