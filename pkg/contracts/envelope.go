// Package contracts defines the typed request/response schemas exchanged
// between Vigil's agents and the message envelope that carries them. Every
// response is validated against its schema before it is handed back to the
// state machine — no response is ever delivered unvalidated (§4.1).
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Task identifies which of the six request/response contract pairs an
// envelope carries.
type Task string

const (
	TaskEnrichAndScore    Task = "enrich_and_score"
	TaskInvestigate       Task = "investigate"
	TaskSweepEnvironment  Task = "sweep_environment"
	TaskPlanRemediation   Task = "plan_remediation"
	TaskExecutePlan       Task = "execute_plan"
	TaskVerifyResolution  Task = "verify_resolution"
)

// Envelope wraps a payload with routing and correlation metadata.
// CorrelationID is the incident id for every task except enrich_and_score,
// where it is the alert id (an incident does not exist yet).
type Envelope struct {
	MessageID     string    `json:"message_id"`
	CorrelationID string    `json:"correlation_id"`
	FromAgent     string    `json:"from_agent"`
	ToAgent       string    `json:"to_agent"`
	Task          Task      `json:"task"`
	CreatedAt     time.Time `json:"created_at"`
	Payload       any       `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh message id and current
// timestamp.
func NewEnvelope(from, to string, task Task, correlationID string, payload any) Envelope {
	return Envelope{
		MessageID:     uuid.NewString(),
		CorrelationID: correlationID,
		FromAgent:     from,
		ToAgent:       to,
		Task:          task,
		CreatedAt:     time.Now(),
		Payload:       payload,
	}
}
