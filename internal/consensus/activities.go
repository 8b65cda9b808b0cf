// Package consensus implements the Temporal activity that turns collected
// specialist opinions into a decision report. It wraps the pure domain
// consensus and decision engines with input validation, error
// classification, and event emission.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/pkg/activity"
)

// ReachDecisionInput is the activity input: the case and every opinion the
// panel produced for it.
type ReachDecisionInput struct {
	// CaseID references the case being decided.
	CaseID string `json:"case_id"`

	// Opinions are the collected specialist opinions. Must be non-empty;
	// an empty panel is a programming error, not a decidable case.
	Opinions []domain.Opinion `json:"opinions"`
}

// Validate checks the activity input contract. The non-empty opinion check
// itself lives in the consensus engine; this only guards the envelope.
func (in *ReachDecisionInput) Validate() error {
	if in.CaseID == "" {
		return fmt.Errorf("%w: case_id is required", domain.ErrInvalidRequest)
	}
	return nil
}

// ReachDecisionOutput carries the produced decision report.
type ReachDecisionOutput struct {
	Report domain.DecisionReport `json:"report"`

	// ProcessingMs measures decision derivation time for observability.
	ProcessingMs int64 `json:"processing_ms"`
}

// Activities handles decision-specific Temporal activities. The decision
// engine instance is shared across invocations so the append-only decision
// history accumulates for the worker process lifetime.
type Activities struct {
	activity.BaseActivities
	engine *domain.DecisionEngine
	events *EventEmitter
}

// NewActivities creates decision activities around the provided decision
// engine. The base activities provide common infrastructure for logging and
// event emission.
func NewActivities(base activity.BaseActivities, engine *domain.DecisionEngine) *Activities {
	return &Activities{
		BaseActivities: base,
		engine:         engine,
		events:         NewEventEmitter(base),
	}
}

// ReachDecision computes consensus over the collected opinions and derives
// the decision report. An empty opinion set is a non-retryable failure that
// propagates the domain's ErrNoOpinions; the activity never fabricates a
// placeholder decision.
func (a *Activities) ReachDecision(
	ctx context.Context,
	input ReachDecisionInput,
) (*ReachDecisionOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("ReachDecision", err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "Starting ReachDecision activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"case_id", input.CaseID,
		"opinion_count", len(input.Opinions))

	startTime := time.Now()
	report, err := a.engine.MakeDecision(input.CaseID, input.Opinions)
	if err != nil {
		if errors.Is(err, domain.ErrNoOpinions) {
			return nil, nonRetryable("ReachDecision", err, "no opinions to decide on")
		}
		return nil, nonRetryable("ReachDecision", err, "decision derivation failed")
	}

	processingMs := time.Since(startTime).Milliseconds()
	a.events.EmitDecisionReached(ctx, report, wfCtx)

	activity.SafeLog(ctx, "ReachDecision completed",
		"case_id", input.CaseID,
		"consensus_score", report.ConsensusResult.ConsensusScore,
		"weighted_priority", report.ConsensusResult.WeightedPriority,
		"dissent_count", len(report.ConsensusResult.DissentingOpinions),
		"processing_ms", processingMs)

	return &ReachDecisionOutput{
		Report:       *report,
		ProcessingMs: processingMs,
	}, nil
}

// Error helpers - wrap errors as Temporal application errors.

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
