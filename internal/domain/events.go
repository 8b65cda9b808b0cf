package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event emitted by the system.
// Typed constants provide compile-time safety and enable exhaustive
// switch statements for event handling.
type EventType string

const (
	// EventTypeOpinionRecorded is emitted when a specialist opinion is
	// collected. One event per specialist with opinion metadata.
	EventTypeOpinionRecorded EventType = "OpinionRecorded"

	// EventTypeDecisionReached is emitted when a decision report is
	// produced for a case. One event per consultation.
	EventTypeDecisionReached EventType = "DecisionReached"
)

// EventEnvelope wraps all events with consistent metadata for projection
// processing: workflow context, idempotency, sequencing, and a typed JSON
// payload.
type EventEnvelope struct {
	// IdempotencyKey ensures events are processed exactly once during
	// retries. Generated deterministically from workflow context and
	// event content.
	IdempotencyKey string `json:"idempotency_key" validate:"required"`

	// EventType identifies the specific type of event for routing.
	EventType EventType `json:"event_type" validate:"required"`

	// Version enables event schema evolution. Starts at 1.
	Version int `json:"version" validate:"required,min=1"`

	// OccurredAt records when the event occurred.
	OccurredAt time.Time `json:"occurred_at" validate:"required"`

	// WorkflowID identifies the workflow that generated this event.
	WorkflowID string `json:"workflow_id" validate:"required"`

	// RunID identifies the specific workflow execution run.
	RunID string `json:"run_id" validate:"required"`

	// Sequence enables ordered event processing for projections.
	Sequence int `json:"sequence" validate:"min=0"`

	// Payload contains the event-specific data as JSON.
	// Schema varies by EventType and Version.
	Payload json.RawMessage `json:"payload" validate:"required"`

	// Producer identifies the component that emitted this event.
	Producer string `json:"producer" validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error { return validate.Struct(e) }

// OpinionRecordedPayload contains the data for OpinionRecorded events.
// One event per collected specialist opinion.
type OpinionRecordedPayload struct {
	// CaseID references the case the opinion belongs to.
	CaseID string `json:"case_id" validate:"required"`

	// SpecialistID identifies the specialist that produced the opinion.
	SpecialistID string `json:"specialist_id" validate:"required"`

	// Role is the specialist category behind the opinion.
	Role SpecialistRole `json:"role" validate:"required"`

	// Confidence is the specialist's self-reported certainty.
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`

	// PriorityScore is the urgency assessed by the specialist.
	PriorityScore float64 `json:"priority_score" validate:"min=0,max=10"`

	// RecommendationCount is the number of actions proposed.
	RecommendationCount int `json:"recommendation_count" validate:"min=0"`

	// ConcernCount is the number of risk observations raised.
	ConcernCount int `json:"concern_count" validate:"min=0"`
}

// Validate checks if the payload meets all requirements.
func (p *OpinionRecordedPayload) Validate() error { return validate.Struct(p) }

// DecisionReachedPayload contains the data for DecisionReached events.
// One event per produced decision report.
type DecisionReachedPayload struct {
	// ReportID identifies the produced decision report.
	ReportID string `json:"report_id" validate:"required,uuid"`

	// CaseID references the decided case.
	CaseID string `json:"case_id" validate:"required"`

	// ConsensusScore is the panel agreement measure.
	ConsensusScore float64 `json:"consensus_score" validate:"min=0,max=1"`

	// WeightedPriority is the blended urgency.
	WeightedPriority float64 `json:"weighted_priority" validate:"min=0,max=10"`

	// OpinionCount is the number of opinions that participated.
	OpinionCount int `json:"opinion_count" validate:"min=1"`

	// DissentCount is the number of dissent flags raised.
	DissentCount int `json:"dissent_count" validate:"min=0"`
}

// Validate checks if the payload meets all requirements.
func (p *DecisionReachedPayload) Validate() error { return validate.Struct(p) }

// NewEventEnvelope creates an EventEnvelope with required fields populated.
// OccurredAt uses wall clock time; activities are the only emitters so no
// workflow determinism constraint applies.
func NewEventEnvelope(
	eventType EventType,
	workflowID, runID string,
	payload json.RawMessage,
	producer string,
) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		Version:    1,
		WorkflowID: workflowID,
		RunID:      runID,
		Sequence:   0,
		Payload:    payload,
		Producer:   producer,
		OccurredAt: time.Now(),
	}
}

// GenerateIdempotencyKey creates a deterministic key for event deduplication.
// Combines workflow execution context with event-specific content so retries
// and replays produce identical keys for the same logical event.
func GenerateIdempotencyKey(workflowID, eventSuffix string) string {
	hasher := sha256.New()
	hasher.Write([]byte(workflowID + eventSuffix))
	return hex.EncodeToString(hasher.Sum(nil))
}

// OpinionRecordedIdempotencyKey generates the idempotency key for opinion
// events: H(workflow_id || ":opinion:" || role).
func OpinionRecordedIdempotencyKey(workflowID string, role SpecialistRole) string {
	return GenerateIdempotencyKey(workflowID, fmt.Sprintf(":opinion:%s", role))
}

// DecisionReachedIdempotencyKey generates the idempotency key for decision
// events: H(workflow_id || ":decision:" || case_id).
func DecisionReachedIdempotencyKey(workflowID, caseID string) string {
	return GenerateIdempotencyKey(workflowID, fmt.Sprintf(":decision:%s", caseID))
}

// NewOpinionRecordedEvent creates an OpinionRecorded event envelope from a
// collected opinion.
func NewOpinionRecordedEvent(workflowID, runID, caseID string, opinion Opinion) (EventEnvelope, error) {
	payload := OpinionRecordedPayload{
		CaseID:              caseID,
		SpecialistID:        opinion.SpecialistID,
		Role:                opinion.Role,
		Confidence:          opinion.Confidence,
		PriorityScore:       opinion.PriorityScore,
		RecommendationCount: len(opinion.Recommendations),
		ConcernCount:        len(opinion.Concerns),
	}

	if err := payload.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid opinion recorded payload: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := NewEventEnvelope(
		EventTypeOpinionRecorded,
		workflowID,
		runID,
		payloadJSON,
		"activity.collect_opinion",
	)
	envelope.IdempotencyKey = OpinionRecordedIdempotencyKey(workflowID, opinion.Role)

	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}

	return envelope, nil
}

// NewDecisionReachedEvent creates a DecisionReached event envelope from a
// produced decision report.
func NewDecisionReachedEvent(workflowID, runID string, report *DecisionReport) (EventEnvelope, error) {
	payload := DecisionReachedPayload{
		ReportID:         report.ID,
		CaseID:           report.CaseID,
		ConsensusScore:   report.ConsensusResult.ConsensusScore,
		WeightedPriority: report.ConsensusResult.WeightedPriority,
		OpinionCount:     len(report.Opinions),
		DissentCount:     len(report.ConsensusResult.DissentingOpinions),
	}

	if err := payload.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid decision reached payload: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := NewEventEnvelope(
		EventTypeDecisionReached,
		workflowID,
		runID,
		payloadJSON,
		"activity.reach_decision",
	)
	envelope.IdempotencyKey = DecisionReachedIdempotencyKey(workflowID, report.CaseID)

	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}

	return envelope, nil
}
