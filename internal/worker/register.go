// Package worker exposes helpers to register workflows/activities with a Temporal worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-consilium/internal/consensus"
	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/internal/llm"
	"github.com/ahrav/go-consilium/internal/opinion"
	"github.com/ahrav/go-consilium/internal/workflow"
	"github.com/ahrav/go-consilium/pkg/activity"
	"github.com/ahrav/go-consilium/pkg/events"
)

// RegisterAll registers all workflows and activities with the Temporal worker.
// This function must be called during worker initialization before starting
// the worker. The registration is not thread-safe and should only be called
// once during application startup.
//
// A single DecisionEngine instance is shared across decision activities so
// the in-memory decision history spans the worker's lifetime.
func RegisterAll(w sdkworker.Worker, llmClient llm.Client, policy domain.RolePolicy) {
	eventSink := events.NewNoOpEventSink()

	base := activity.NewBaseActivities(eventSink)

	engine := domain.NewDecisionEngine(domain.NewConsensusEngine(policy))

	opinionActivities := opinion.NewActivities(base, llmClient)
	consensusActivities := consensus.NewActivities(base, engine)

	w.RegisterWorkflow(workflow.ConsultationWorkflow)

	// Method names double as the activity names the workflow invokes.
	w.RegisterActivity(opinionActivities.CollectOpinion)
	w.RegisterActivity(consensusActivities.ReachDecision)
}
