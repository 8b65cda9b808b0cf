// Package opinion implements Temporal activities for collecting specialist
// opinions. One activity invocation produces one specialist's structured
// opinion for a case by calling the configured LLM-backed specialist client.
package opinion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/internal/llm"
	"github.com/ahrav/go-consilium/pkg/activity"
)

// heartbeatInterval keeps the activity well inside the workflow's 30 second
// heartbeat timeout while a provider call is in flight.
const heartbeatInterval = 10 * time.Second

// CollectOpinionInput is the activity input: which specialist to consult
// about which case.
type CollectOpinionInput struct {
	// Role selects the specialist to consult.
	Role domain.SpecialistRole `json:"role"`

	// Case is the structured case record under review.
	Case domain.MedicalCase `json:"case"`

	// Config controls opinion generation.
	Config domain.ConsultConfig `json:"config"`
}

// Validate checks the activity input contract.
func (in *CollectOpinionInput) Validate() error {
	if err := in.Case.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := in.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	if in.Role == "" {
		return fmt.Errorf("%w: role is required", domain.ErrInvalidRequest)
	}
	return nil
}

// CollectOpinionOutput carries the produced opinion plus resource usage for
// observability.
type CollectOpinionOutput struct {
	Opinion    domain.Opinion `json:"opinion"`
	TokensUsed int64          `json:"tokens_used"`
	LatencyMs  int64          `json:"latency_ms"`
}

// Activities handles opinion-collection Temporal activities. It wraps the
// specialist client with input validation, error classification, and event
// emission.
type Activities struct {
	activity.BaseActivities
	client llm.Client
	events *EventEmitter
}

// NewActivities creates opinion activities with the provided dependencies.
// The base activities provide common infrastructure for logging and event
// emission.
func NewActivities(base activity.BaseActivities, client llm.Client) *Activities {
	return &Activities{
		BaseActivities: base,
		client:         client,
		events:         NewEventEmitter(base),
	}
}

// CollectOpinion consults one specialist about the case and returns the
// structured opinion. Provider rate limits and server errors surface as
// retryable application errors so the workflow retry policy applies;
// validation failures and client errors are non-retryable.
func (a *Activities) CollectOpinion(
	ctx context.Context,
	input CollectOpinionInput,
) (*CollectOpinionOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("CollectOpinion", err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "Starting CollectOpinion activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"case_id", input.Case.CaseID,
		"role", input.Role)

	// Specialist calls can run well past the workflow's heartbeat timeout,
	// so keep heartbeating for the duration of the provider request.
	stopHeartbeat := a.HeartbeatEvery(ctx, heartbeatInterval,
		fmt.Sprintf("consulting %s for case %s", input.Role, input.Case.CaseID))
	reply, err := a.client.Consult(ctx, llm.ConsultPromptInput{
		Role:   input.Role,
		Case:   input.Case,
		Config: input.Config,
	})
	stopHeartbeat()
	if err != nil {
		var provErr *llm.ProviderError
		if errors.As(err, &provErr) && provErr.Retryable() {
			return nil, retryable("CollectOpinion", err, "transient provider failure")
		}
		return nil, nonRetryable("CollectOpinion", err, "opinion production failed")
	}

	op, err := domain.MakeOpinion(
		specialistID(input.Role, wfCtx.WorkflowID),
		input.Role,
		reply.Narrative,
		reply.Confidence,
		reply.PriorityScore,
		reply.Recommendations,
		reply.Concerns,
		time.Now(),
	)
	if err != nil {
		return nil, nonRetryable("CollectOpinion", err, "reply violates opinion constraints")
	}

	a.events.EmitOpinionRecorded(ctx, input.Case.CaseID, *op, wfCtx)

	activity.SafeLog(ctx, "CollectOpinion completed",
		"role", input.Role,
		"confidence", op.Confidence,
		"priority", op.PriorityScore,
		"tokens_used", reply.Tokens)

	return &CollectOpinionOutput{
		Opinion:    *op,
		TokensUsed: reply.Tokens,
		LatencyMs:  reply.LatencyMs,
	}, nil
}

// specialistID derives a stable per-workflow specialist identifier so
// retries of the same consultation reuse the same identity.
func specialistID(role domain.SpecialistRole, workflowID string) string {
	return fmt.Sprintf("%s-%s", role, workflowID)
}

// Error helpers - wrap errors as Temporal application errors.

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
