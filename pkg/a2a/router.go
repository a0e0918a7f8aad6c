// Package a2a implements the agent-to-agent router: a static agent-id to
// handler registry, per-agent timeouts, a one-retry-on-429/5xx policy, and
// best-effort telemetry recording for every dispatched call (§4.7).
package a2a

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/metrics"
	"github.com/vigil-soc/vigil/pkg/store"
)

// Handler processes one envelope and returns its response payload, or a
// RetryableError to ask the router for one more attempt.
type Handler func(ctx context.Context, env contracts.Envelope) (any, error)

// RetryableError marks an error as eligible for the router's single retry
// (the A2A equivalent of an upstream 429/5xx).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// AgentTimeoutError reports that a dispatched agent did not return within
// its configured per-agent timeout (§7).
type AgentTimeoutError struct {
	AgentID string
	Timeout time.Duration
}

func (e *AgentTimeoutError) Error() string {
	return fmt.Sprintf("agent %q: timed out after %s", e.AgentID, e.Timeout)
}

// A2AError wraps a non-timeout handler failure with the agent and task that
// produced it, the named error shape §7 specifies for agent-to-agent
// dispatch failures.
type A2AError struct {
	AgentID string
	Task    contracts.Task
	Err     error
}

func (e *A2AError) Error() string {
	return fmt.Sprintf("agent %q task %q: %v", e.AgentID, e.Task, e.Err)
}
func (e *A2AError) Unwrap() error { return e.Err }

// EnvelopeValidationError reports an inbound envelope missing a field
// Dispatch requires before it will route the call (§4.7 "validate
// envelope").
type EnvelopeValidationError struct {
	MessageID string
	Reason    string
}

func (e *EnvelopeValidationError) Error() string {
	return fmt.Sprintf("a2a: envelope %s: %s", e.MessageID, e.Reason)
}

func validateEnvelope(env contracts.Envelope) error {
	switch {
	case env.Task == "":
		return &EnvelopeValidationError{MessageID: env.MessageID, Reason: "task is required"}
	case env.ToAgent == "":
		return &EnvelopeValidationError{MessageID: env.MessageID, Reason: "to_agent is required"}
	case env.CorrelationID == "":
		return &EnvelopeValidationError{MessageID: env.MessageID, Reason: "correlation_id is required"}
	}
	return nil
}

// TelemetryRecorder persists one AgentTelemetry row. Recording is
// best-effort: a recorder failure is logged, never surfaced to the caller.
type TelemetryRecorder interface {
	Record(ctx context.Context, rec store.AgentTelemetry)
}

// Router dispatches envelopes to registered agent handlers.
type Router struct {
	handlers   map[string]Handler
	timeoutFor func(agentID string) time.Duration
	telemetry  TelemetryRecorder
}

// NewRouter builds an empty router. timeoutFor resolves the per-agent
// timeout (config.AgentTimeoutRegistry.TimeoutFor); telemetry may be nil to
// disable recording entirely (e.g. in unit tests).
func NewRouter(timeoutFor func(agentID string) time.Duration, telemetry TelemetryRecorder) *Router {
	return &Router{
		handlers:   make(map[string]Handler),
		timeoutFor: timeoutFor,
		telemetry:  telemetry,
	}
}

// Register binds an agent id to its handler. Registering the same id twice
// overwrites the previous handler, matching a static-registry startup
// pattern rather than append-only registration.
func (r *Router) Register(agentID string, h Handler) {
	r.handlers[agentID] = h
}

// ErrAgentNotFound is returned when Dispatch targets an unregistered agent.
var ErrAgentNotFound = errors.New("agent not found in router")

// Dispatch sends env to its ToAgent handler, enforcing the agent's timeout,
// retrying once on a RetryableError, and recording telemetry regardless of
// outcome.
func (r *Router) Dispatch(ctx context.Context, env contracts.Envelope) (any, error) {
	if err := validateEnvelope(env); err != nil {
		r.record(ctx, env, store.TelemetryError, 0)
		return nil, err
	}

	handler, ok := r.handlers[env.ToAgent]
	if !ok {
		r.record(ctx, env, store.TelemetryCardUnavail, 0)
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, env.ToAgent)
	}

	timeout := r.timeoutFor(env.ToAgent)
	start := time.Now()

	result, status, err := r.attempt(ctx, handler, env, timeout)
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		result, status, err = r.attempt(ctx, handler, env, timeout)
	}

	r.record(ctx, env, status, time.Since(start))
	return result, err
}

func (r *Router) attempt(ctx context.Context, h Handler, env contracts.Envelope, timeout time.Duration) (any, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := h(callCtx, env)
	switch {
	case err == nil:
		return result, store.TelemetrySuccess, nil
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return nil, store.TelemetryTimeout, &AgentTimeoutError{AgentID: env.ToAgent, Timeout: timeout}
	default:
		return nil, store.TelemetryError, &A2AError{AgentID: env.ToAgent, Task: env.Task, Err: err}
	}
}

func (r *Router) record(ctx context.Context, env contracts.Envelope, status string, elapsed time.Duration) {
	metrics.RecordA2ACall(env.ToAgent, status, elapsed)

	if r.telemetry == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("a2a telemetry recorder panicked", "panic", p)
		}
	}()
	r.telemetry.Record(ctx, store.AgentTelemetry{
		Timestamp:       time.Now(),
		FromAgent:       env.FromAgent,
		ToAgent:         env.ToAgent,
		CorrelationID:   env.CorrelationID,
		Task:            string(env.Task),
		ExecutionTimeMs: elapsed.Milliseconds(),
		Status:          status,
	})
}
