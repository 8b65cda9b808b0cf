package consensus

import (
	"context"
	"fmt"

	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/pkg/activity"
	"github.com/ahrav/go-consilium/pkg/events"
)

// EventEmitter handles event emission for the decision domain.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates an EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitDecisionReached emits a DecisionReached event with the report's
// headline metrics. Emission is best-effort; failures are logged without
// affecting the activity result.
func (e *EventEmitter) EmitDecisionReached(
	ctx context.Context,
	report *domain.DecisionReport,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewDecisionReachedEvent(wfCtx.WorkflowID, wfCtx.RunID, report)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create DecisionReached event",
			"case_id", report.CaseID,
			"report_id", report.ID,
			"error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEvent(domainEvent),
		fmt.Sprintf("DecisionReached[%s]", report.CaseID))
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
