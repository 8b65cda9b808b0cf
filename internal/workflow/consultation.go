package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-consilium/internal/consensus"
	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/internal/opinion"
)

// Activity names registered by the worker. Workflows invoke activities by
// name so activity structs can carry non-serializable dependencies.
const (
	CollectOpinionActivity = "CollectOpinion"
	ReachDecisionActivity  = "ReachDecision"
)

// ConsultationWorkflow orchestrates a multidisciplinary case review with
// deterministic execution. It fans out opinion collection to every specialist
// on the configured panel, tolerates individual specialist failures, and
// produces a decision report from whatever opinions were gathered.
//
// A consultation fails only when the request is invalid or when no specialist
// produced an opinion; a partial panel still yields a report.
func ConsultationWorkflow(
	ctx workflow.Context,
	req domain.ConsultationRequest,
) (*domain.DecisionReport, error) {
	// Version gate enables safe evolution and backward compatibility.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "consultation.v", workflow.DefaultVersion, currentVersion)

	// Validate request early to fail fast on invalid input.
	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid consultation request",
			"Validation",
			err,
		)
	}

	logger := workflow.GetLogger(ctx)

	// Configure standard timeouts and retry policy for all activities.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(req.Config.Timeout) * time.Second,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Fan out one collection activity per panel role. Futures run in
	// parallel; gathering below preserves panel order so replay stays
	// deterministic.
	roles := req.Config.PanelRoles()
	futures := make([]workflow.Future, len(roles))
	for i, role := range roles {
		futures[i] = workflow.ExecuteActivity(ctx, CollectOpinionActivity, opinion.CollectOpinionInput{
			Role:   role,
			Case:   req.Case,
			Config: req.Config,
		})
	}

	opinions := make([]domain.Opinion, 0, len(roles))
	for i, future := range futures {
		var out opinion.CollectOpinionOutput
		if err := future.Get(ctx, &out); err != nil {
			// A single specialist failing (after retries) does not sink
			// the consultation; the decision engine works with the panel
			// that responded.
			logger.Warn("specialist opinion unavailable, continuing without it",
				"role", roles[i], "error", err)
			continue
		}
		opinions = append(opinions, out.Opinion)
	}

	if len(opinions) == 0 {
		return nil, temporal.NewNonRetryableApplicationError(
			"no specialist opinions collected",
			"Validation",
			nil,
		)
	}

	var decision consensus.ReachDecisionOutput
	err := workflow.ExecuteActivity(ctx, ReachDecisionActivity, consensus.ReachDecisionInput{
		CaseID:   req.Case.CaseID,
		Opinions: opinions,
	}).Get(ctx, &decision)
	if err != nil {
		return nil, err
	}

	logger.Info("consultation completed",
		"case_id", req.Case.CaseID,
		"opinions", len(opinions),
		"consensus_score", decision.Report.ConsensusResult.ConsensusScore)

	return &decision.Report, nil
}
