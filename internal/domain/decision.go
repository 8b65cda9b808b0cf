// Package domain decision provides the rule-based decision engine that
// consumes a consensus result and produces an actionable decision report:
// a narrative summary, prioritized next steps, a tiered follow-up plan, and
// quality metrics about the aggregation itself.
package domain

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Next-step actions appended by the decision rule list. Rules are evaluated
// in fixed order; priority gating is applied last and inserted at the front.
const (
	StepFurtherDiscussion  = "need further multidisciplinary discussion"
	StepSecondOpinion      = "consider second opinion"
	StepUrgentMedical      = "urgent medical evaluation and monitoring"
	StepPsychIntervention  = "psychological intervention"
	StepSocialWorkReferral = "social-work / financial-support referral"
	StepHighPriority       = "high priority — initiate within 48h"
	StepModeratePriority   = "moderate priority — complete workup within one week"
	StepProceed            = "proceed with recommended plan"
)

// Decision rule thresholds.
const (
	lowConsensusThreshold     = 0.5
	medicalRiskThreshold      = 0.7
	psychRiskThreshold        = 0.5
	economicRiskThreshold     = 0.5
	highPriorityThreshold     = 8.0
	moderatePriorityThreshold = 6.0
	shortTermRiskThreshold    = 0.6

	// Risk label boundaries for the decision summary.
	riskLabelLowBound  = 0.3
	riskLabelHighBound = 0.7

	// recommendationTargetLines normalizes the recommendation-completeness
	// quality metric: a narrative of this many lines scores 1.0.
	recommendationTargetLines = 10
)

// Quality metric keys reported on every decision.
const (
	MetricOpinionDiversity           = "opinion_diversity"
	MetricAverageConfidence          = "average_confidence"
	MetricConsensusStrength          = "consensus_strength"
	MetricRiskCoverage               = "risk_coverage"
	MetricRecommendationCompleteness = "recommendation_completeness"
)

// FollowUpPlan holds the tiered follow-up checklists. The medium and long
// term buckets are static scaffolding; the short term bucket fills only when
// a risk category exceeds the short-term risk threshold.
type FollowUpPlan struct {
	ShortTerm  []string `json:"short_term"`
	MediumTerm []string `json:"medium_term"`
	LongTerm   []string `json:"long_term"`
}

// DecisionReport is the final bundle handed to the transport layer: the
// consensus result, the originating opinions, a narrative summary,
// prioritized next steps, the follow-up plan, and aggregation quality
// metrics.
type DecisionReport struct {
	// ID uniquely identifies this report for audit purposes.
	ID string `json:"id" validate:"required,uuid"`

	// CaseID references the clinical case this decision belongs to.
	CaseID string `json:"case_id" validate:"required"`

	// ConsensusResult is the aggregation output this decision derives from.
	ConsensusResult ConsensusResult `json:"consensus_result"`

	// Opinions are the originating specialist opinions, passed through
	// unchanged for audit and display.
	Opinions []Opinion `json:"opinions"`

	// DecisionSummary is the deterministic narrative summary.
	DecisionSummary string `json:"decision_summary"`

	// NextSteps is the prioritized action list, urgent-first.
	NextSteps []string `json:"next_steps"`

	// FollowUpPlan holds the tiered follow-up checklists.
	FollowUpPlan FollowUpPlan `json:"follow_up_plan"`

	// QualityMetrics are diagnostic meta-scores about the aggregation.
	QualityMetrics map[string]float64 `json:"quality_metrics"`

	// DecidedAt records when the decision was produced.
	DecidedAt time.Time `json:"decided_at" validate:"required"`
}

// DecisionEngine orchestrates the consensus engine and derives decision
// reports. Each produced report is appended to an in-memory, append-only
// decision history owned by the engine instance; the append is the only
// locked operation, all derivation runs unlocked and is safe to invoke
// concurrently for independent cases.
type DecisionEngine struct {
	consensus *ConsensusEngine

	mu      sync.Mutex
	history []DecisionReport
}

// NewDecisionEngine creates a decision engine around the provided consensus
// engine. The decision history starts empty and lives for the engine's
// lifetime.
func NewDecisionEngine(consensus *ConsensusEngine) *DecisionEngine {
	return &DecisionEngine{consensus: consensus}
}

// MakeDecision computes consensus over the opinions and derives the full
// decision report for the case. A consensus failure (empty opinion set)
// propagates unchanged; the engine never fabricates a placeholder decision.
// The produced report is appended to the decision history.
func (e *DecisionEngine) MakeDecision(caseID string, opinions []Opinion) (*DecisionReport, error) {
	consensusResult, err := e.consensus.ComputeConsensus(opinions)
	if err != nil {
		return nil, err
	}

	report := &DecisionReport{
		ID:              uuid.New().String(),
		CaseID:          caseID,
		ConsensusResult: *consensusResult,
		Opinions:        append([]Opinion(nil), opinions...),
		DecisionSummary: decisionSummary(consensusResult),
		NextSteps:       nextSteps(consensusResult),
		FollowUpPlan:    followUpPlan(consensusResult),
		QualityMetrics:  qualityMetrics(opinions, consensusResult),
		DecidedAt:       time.Now(),
	}

	e.mu.Lock()
	e.history = append(e.history, *report)
	e.mu.Unlock()

	return report, nil
}

// History returns a copy of the decision history in append order. The
// underlying history is never rewritten or pruned within the engine's
// lifetime.
func (e *DecisionEngine) History() []DecisionReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DecisionReport, len(e.history))
	copy(out, e.history)
	return out
}

// decisionSummary renders the deterministic summary template: core scores,
// the recommendation narrative, labeled risk levels, and any dissent.
func decisionSummary(result *ConsensusResult) string {
	var b strings.Builder

	b.WriteString("Decision Summary:\n\n")
	fmt.Fprintf(&b, "Consensus: %.2f (of 1.0)\n", result.ConsensusScore)
	fmt.Fprintf(&b, "Priority: %.1f (of 10.0)\n", result.WeightedPriority)
	fmt.Fprintf(&b, "Confidence interval: %.2f - %.2f\n\n",
		result.ConfidenceInterval.Lower, result.ConfidenceInterval.Upper)

	b.WriteString("Recommended plan:\n")
	b.WriteString(result.FinalRecommendation)

	b.WriteString("\nRisk assessment:\n")
	for _, category := range AllRiskCategories() {
		level := result.RiskAssessment[category]
		fmt.Fprintf(&b, "- %s: %s (%.2f)\n", category, riskLabel(level), level)
	}

	if len(result.DissentingOpinions) > 0 {
		b.WriteString("\nDissenting views:\n")
		for _, dissent := range result.DissentingOpinions {
			fmt.Fprintf(&b, "- %s\n", dissent)
		}
	}

	return b.String()
}

// riskLabel maps a risk value to its human label.
func riskLabel(level float64) string {
	switch {
	case level < riskLabelLowBound:
		return "low"
	case level < riskLabelHighBound:
		return "medium"
	default:
		return "high"
	}
}

// nextSteps evaluates the decision rule list in fixed order. Consensus and
// risk rules append; priority gating runs last and prepends. If no rule
// fires the plan proceeds as recommended.
func nextSteps(result *ConsensusResult) []string {
	var steps []string

	if result.ConsensusScore < lowConsensusThreshold {
		steps = append(steps, StepFurtherDiscussion, StepSecondOpinion)
	}

	risks := result.RiskAssessment
	if risks[RiskMedical] > medicalRiskThreshold {
		steps = append(steps, StepUrgentMedical)
	}
	if risks[RiskPsychological] > psychRiskThreshold {
		steps = append(steps, StepPsychIntervention)
	}
	if risks[RiskEconomic] > economicRiskThreshold {
		steps = append(steps, StepSocialWorkReferral)
	}

	switch {
	case result.WeightedPriority > highPriorityThreshold:
		steps = append([]string{StepHighPriority}, steps...)
	case result.WeightedPriority > moderatePriorityThreshold:
		steps = append([]string{StepModeratePriority}, steps...)
	}

	if len(steps) == 0 {
		return []string{StepProceed}
	}
	return steps
}

// followUpPlan builds the tiered follow-up checklists. Short-term items are
// added only when any risk category exceeds the short-term risk threshold;
// the medium and long term checklists are intentionally static scaffolding.
func followUpPlan(result *ConsensusResult) FollowUpPlan {
	plan := FollowUpPlan{
		ShortTerm: []string{},
		MediumTerm: []string{
			"treatment efficacy assessment",
			"quality-of-life assessment",
			"psychological status review",
		},
		LongTerm: []string{
			"regular re-examination",
			"recurrence surveillance",
			"rehabilitation assessment",
		},
	}

	for _, level := range result.RiskAssessment {
		if level > shortTermRiskThreshold {
			plan.ShortTerm = []string{
				"symptom monitoring and assessment",
				"treatment response evaluation",
				"side-effect management",
			}
			break
		}
	}

	return plan
}

// qualityMetrics derives diagnostic meta-scores about the aggregation:
// panel diversity, mean confidence, consensus strength, risk coverage, and
// recommendation completeness.
func qualityMetrics(opinions []Opinion, result *ConsensusResult) map[string]float64 {
	roles := make(map[SpecialistRole]struct{})
	var confidenceSum float64
	for _, op := range opinions {
		roles[op.Role] = struct{}{}
		confidenceSum += op.Confidence
	}

	var coveredRisks int
	for _, level := range result.RiskAssessment {
		if level > 0 {
			coveredRisks++
		}
	}

	lineCount := len(strings.Split(result.FinalRecommendation, "\n"))

	return map[string]float64{
		MetricOpinionDiversity:           float64(len(roles)) / float64(len(AllSpecialistRoles())),
		MetricAverageConfidence:          confidenceSum / float64(len(opinions)),
		MetricConsensusStrength:          result.ConsensusScore,
		MetricRiskCoverage:               float64(coveredRisks) / float64(len(result.RiskAssessment)),
		MetricRecommendationCompleteness: math.Min(float64(lineCount)/recommendationTargetLines, 1.0),
	}
}
