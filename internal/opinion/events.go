package opinion

import (
	"context"
	"fmt"

	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/pkg/activity"
	"github.com/ahrav/go-consilium/pkg/events"
)

// EventEmitter handles event emission for the opinion domain.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates an EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitOpinionRecorded emits an OpinionRecorded event for a collected
// opinion. Emission is best-effort; failures are logged without affecting
// the activity result.
func (e *EventEmitter) EmitOpinionRecorded(
	ctx context.Context,
	caseID string,
	op domain.Opinion,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewOpinionRecordedEvent(wfCtx.WorkflowID, wfCtx.RunID, caseID, op)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create OpinionRecorded event",
			"case_id", caseID,
			"role", op.Role,
			"error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEvent(domainEvent),
		fmt.Sprintf("OpinionRecorded[%s/%s]", caseID, op.Role))
}

// convertDomainEvent converts a domain.EventEnvelope to an events.Envelope,
// bridging the domain event system with the base activity infrastructure.
func convertDomainEvent(domainEvent domain.EventEnvelope) events.Envelope {
	return events.Envelope{
		ID:             domainEvent.IdempotencyKey,
		Type:           string(domainEvent.EventType),
		Source:         domainEvent.Producer,
		Version:        fmt.Sprintf("%d.0.0", domainEvent.Version),
		Timestamp:      domainEvent.OccurredAt,
		IdempotencyKey: domainEvent.IdempotencyKey,
		WorkflowID:     domainEvent.WorkflowID,
		RunID:          domainEvent.RunID,
		Payload:        domainEvent.Payload,
	}
}
