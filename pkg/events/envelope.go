// Package events provides the generic event infrastructure for domain event
// emission. It defines the Envelope type for wrapping domain events with
// consistent metadata and the EventSink interface for event storage or
// transmission.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps domain events with consistent metadata for reliable event
// processing. It is a generic container for any domain-specific payload
// while maintaining standard fields for routing, idempotency, and
// observability.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "OpinionRecorded", "DecisionReached".
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	// Examples: "activity.collect_opinion", "activity.reach_decision".
	Source string `json:"source"`

	// Version enables schema evolution and backward compatibility.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	// Generated deterministically from workflow context and event content.
	IdempotencyKey string `json:"idempotency_key"`

	// WorkflowID identifies the workflow that triggered this event.
	WorkflowID string `json:"workflow_id"`

	// RunID identifies the specific workflow execution run.
	RunID string `json:"run_id"`

	// Payload contains the domain-specific event data as JSON.
	// Schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// EventSink defines the interface for emitting events to downstream
// consumers. Implementations could include database outbox patterns,
// message queues, or simple log outputs.
//
// Implementations should handle idempotency (duplicate events are no-ops)
// and return quickly to avoid blocking the caller. Events matter for
// observability but not for correctness; callers must not fail their
// primary operation on sink errors.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null implementation of EventSink for testing or when
// events are disabled. All Append calls succeed immediately.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }
