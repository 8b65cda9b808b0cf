// Package domain consensus provides the aggregation algorithms that blend
// multiple weighted specialist opinions into a single consensus result.
// It computes a consensus strength score from recommendation overlap and
// confidence dispersion, a blended confidence interval, a ranked
// recommendation narrative, dissent detection, and a per-category risk
// profile.
//
// Consensus Architecture:
//   - Role-weighted statistical combination of opinion metrics
//   - Overlap-plus-dispersion consensus scoring with single-opinion short-circuit
//   - Deterministic ranked recommendation rendering with lexicographic tie-breaks
//   - Outlier detection by low confidence and unique-concern set difference
//   - Keyword-driven risk assessment over authoritative roles
//   - Pure functions: identical inputs always yield identical results
package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// highConsensusThreshold is the consensus score above which dissent
	// flagging is suppressed and the panel is treated as unanimous.
	highConsensusThreshold = 0.8

	// lowConfidenceThreshold flags an opinion as dissenting when the
	// specialist's self-reported confidence falls below it.
	lowConfidenceThreshold = 0.5

	// overlapWeight and consistencyWeight blend recommendation overlap and
	// confidence consistency into the final consensus score.
	overlapWeight     = 0.7
	consistencyWeight = 0.3

	// maxConfidenceDispersion caps the confidence standard deviation used
	// in the consistency term; dispersion at or beyond it scores 0.
	maxConfidenceDispersion = 0.5

	// zScore95 is the critical value for a 95% confidence interval.
	zScore95 = 1.96

	// Rendering limits for the final recommendation narrative.
	maxCoreRecommendations          = 5
	maxSupplementaryRecommendations = 3
	maxRenderedConcerns             = 3

	// dissentEvidenceRunes bounds the narrative excerpt attached to a
	// low-confidence dissent entry.
	dissentEvidenceRunes = 100
)

// ConfidenceInterval is a closed interval over blended specialist confidence.
// Both bounds are clamped to [0,1] and Lower <= Upper always holds.
type ConfidenceInterval struct {
	Lower float64 `json:"lower" validate:"min=0,max=1"`
	Upper float64 `json:"upper" validate:"min=0,max=1"`
}

// ConsensusResult is the derived outcome of blending one set of specialist
// opinions. It carries no identity and is recomputed fresh per call; it is
// a pure function of its input opinions and the role policy.
type ConsensusResult struct {
	// FinalRecommendation is the deterministic, explainable ranked
	// recommendation narrative: core items first, then supplementary,
	// then key concerns.
	FinalRecommendation string `json:"final_recommendation"`

	// ConsensusScore measures panel agreement in [0,1]. A single opinion
	// is full consensus by definition (1.0).
	ConsensusScore float64 `json:"consensus_score" validate:"min=0,max=1"`

	// WeightedConfidence is the role-weighted mean of specialist
	// confidences in [0,1].
	WeightedConfidence float64 `json:"weighted_confidence" validate:"min=0,max=1"`

	// WeightedPriority is the role-weighted mean urgency in [0,10].
	WeightedPriority float64 `json:"weighted_priority" validate:"min=0,max=10"`

	// DissentingOpinions lists human-readable outlier flags. Empty when
	// the consensus score exceeds the high-consensus threshold.
	DissentingOpinions []string `json:"dissenting_opinions"`

	// ConfidenceInterval is the 95% interval around the weighted mean
	// confidence, clamped to [0,1].
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`

	// RiskAssessment maps every defined risk category to a value in [0,1].
	// Categories without evidence default to 0.
	RiskAssessment map[RiskCategory]float64 `json:"risk_assessment"`
}

// Validate checks the consensus result invariants.
func (r *ConsensusResult) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.ConfidenceInterval.Lower > r.ConfidenceInterval.Upper {
		return fmt.Errorf("confidence interval lower bound %f exceeds upper bound %f",
			r.ConfidenceInterval.Lower, r.ConfidenceInterval.Upper)
	}
	return nil
}

// ConsensusEngine computes consensus results under a fixed role policy.
// It holds no mutable state and is safe for concurrent use.
type ConsensusEngine struct {
	policy RolePolicy
}

// NewConsensusEngine creates a consensus engine with the provided role
// policy. Use DefaultRolePolicy() for the standard weights and keyword sets.
func NewConsensusEngine(policy RolePolicy) *ConsensusEngine {
	return &ConsensusEngine{policy: policy}
}

// ComputeConsensus blends a non-empty sequence of specialist opinions into a
// consensus result. Calling it with an empty sequence is a programming error
// and fails fast with ErrNoOpinions; every numeric edge case inside the
// algorithm resolves to a defined default instead.
//
// Algorithm:
//  1. Look up role weights (unknown roles use the default weight).
//  2. Weighted means of confidence and priority.
//  3. Consensus score from recommendation overlap and confidence dispersion.
//  4. Ranked recommendation narrative weighted by role weight x confidence.
//  5. Dissent detection by low confidence and unique concerns.
//  6. 95% weighted confidence interval, clamped to [0,1].
//  7. Keyword risk assessment over authoritative roles.
func (e *ConsensusEngine) ComputeConsensus(opinions []Opinion) (*ConsensusResult, error) {
	if len(opinions) == 0 {
		return nil, ErrNoOpinions
	}

	confidences := make([]float64, len(opinions))
	priorities := make([]float64, len(opinions))
	weights := make([]float64, len(opinions))
	for i, op := range opinions {
		confidences[i] = op.Confidence
		priorities[i] = op.PriorityScore
		weights[i] = e.policy.RoleWeight(op.Role)
	}

	consensusScore := e.consensusScore(opinions, confidences)

	result := &ConsensusResult{
		FinalRecommendation: e.finalRecommendation(opinions, weights),
		ConsensusScore:      consensusScore,
		WeightedConfidence:  weightedMean(confidences, weights),
		WeightedPriority:    weightedMean(priorities, weights),
		DissentingOpinions:  e.dissentingOpinions(opinions, consensusScore),
		ConfidenceInterval:  confidenceInterval(confidences, weights),
		RiskAssessment:      e.assessRisks(opinions),
	}

	return result, nil
}

// consensusScore blends recommendation overlap with confidence consistency.
// A single opinion is full consensus by definition.
func (e *ConsensusEngine) consensusScore(opinions []Opinion, confidences []float64) float64 {
	if len(opinions) <= 1 {
		return 1.0
	}

	var total int
	counts := make(map[string]int)
	for _, op := range opinions {
		for _, rec := range op.Recommendations {
			counts[rec]++
			total++
		}
	}

	overlapRatio := 0.0
	if total > 0 {
		var overlapping int
		for _, count := range counts {
			if count > 1 {
				overlapping += count
			}
		}
		overlapRatio = float64(overlapping) / float64(total)
	}

	dispersion := math.Min(populationStd(confidences), maxConfidenceDispersion)
	consistency := 1 - dispersion/maxConfidenceDispersion

	return math.Min(overlapWeight*overlapRatio+consistencyWeight*consistency, 1.0)
}

// finalRecommendation renders the ranked recommendation narrative. Each
// recommendation accumulates weight x confidence from every opinion listing
// it; items above the mean accumulated weight are core, the rest
// supplementary. Ordering is descending by weight with lexicographic
// tie-breaking so the output is deterministic.
func (e *ConsensusEngine) finalRecommendation(opinions []Opinion, weights []float64) string {
	accumulated := make(map[string]float64)
	var order []string
	for i, op := range opinions {
		contribution := weights[i] * op.Confidence
		for _, rec := range op.Recommendations {
			if _, seen := accumulated[rec]; !seen {
				order = append(order, rec)
			}
			accumulated[rec] += contribution
		}
	}

	sort.Slice(order, func(i, j int) bool {
		wi, wj := accumulated[order[i]], accumulated[order[j]]
		if wi != wj {
			return wi > wj
		}
		return order[i] < order[j]
	})

	var meanWeight float64
	if len(order) > 0 {
		var sum float64
		for _, w := range accumulated {
			sum += w
		}
		meanWeight = sum / float64(len(order))
	}

	var core, supplementary []string
	for _, rec := range order {
		if accumulated[rec] > meanWeight {
			core = append(core, rec)
		} else {
			supplementary = append(supplementary, rec)
		}
	}

	var b strings.Builder
	b.WriteString("Integrated multidisciplinary treatment recommendation:\n\n")

	if len(core) > 0 {
		b.WriteString("Core recommendations:\n")
		for i, rec := range limitStrings(core, maxCoreRecommendations) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}

	if len(supplementary) > 0 {
		b.WriteString("\nSupplementary recommendations:\n")
		for i, rec := range limitStrings(supplementary, maxSupplementaryRecommendations) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}

	concerns := dedupeFirstSeen(opinions)
	if len(concerns) > 0 {
		b.WriteString("\nKey concerns:\n")
		for i, concern := range limitStrings(concerns, maxRenderedConcerns) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, concern)
		}
	}

	return b.String()
}

// dissentingOpinions flags outlier specialists. High consensus suppresses
// all flagging. Otherwise each opinion is checked independently for low
// confidence and for holding concerns no other opinion shares; a single
// opinion may contribute zero, one, or two entries. The result is never
// nil so the field marshals as an empty JSON array rather than null.
func (e *ConsensusEngine) dissentingOpinions(opinions []Opinion, consensusScore float64) []string {
	dissenting := []string{}
	if consensusScore > highConsensusThreshold {
		return dissenting
	}

	for i, op := range opinions {
		if op.Confidence < lowConfidenceThreshold {
			dissenting = append(dissenting, fmt.Sprintf("%s: low confidence (%.2f) - %s...",
				op.Role, op.Confidence, truncateRunes(op.Narrative, dissentEvidenceRunes)))
		}

		otherConcerns := make(map[string]struct{})
		for j, other := range opinions {
			if j == i || other.SpecialistID == op.SpecialistID {
				continue
			}
			for _, c := range other.Concerns {
				otherConcerns[c] = struct{}{}
			}
		}

		uniqueSet := make(map[string]struct{})
		for _, c := range op.Concerns {
			if _, shared := otherConcerns[c]; !shared {
				uniqueSet[c] = struct{}{}
			}
		}

		if len(uniqueSet) > 0 {
			unique := make([]string, 0, len(uniqueSet))
			for c := range uniqueSet {
				unique = append(unique, c)
			}
			sort.Strings(unique)
			dissenting = append(dissenting, fmt.Sprintf("%s: unique concerns - %s",
				op.Role, strings.Join(unique, "; ")))
		}
	}

	return dissenting
}

// assessRisks scans the concerns of authoritative roles against each
// category's keyword set. The risk value is the fraction of that opinion's
// concerns containing at least one keyword, clamped to [0,1]. Categories
// without an authoritative opinion, or whose opinion has no concerns,
// stay at 0.
func (e *ConsensusEngine) assessRisks(opinions []Opinion) map[RiskCategory]float64 {
	risks := make(map[RiskCategory]float64, len(AllRiskCategories()))
	for _, category := range AllRiskCategories() {
		risks[category] = 0.0
	}

	for _, op := range opinions {
		for _, category := range AllRiskCategories() {
			keywords, authoritative := e.policy.Keywords[category][op.Role]
			if !authoritative {
				continue
			}

			if len(op.Concerns) == 0 {
				risks[category] = 0.0
				continue
			}

			var matched int
			for _, concern := range op.Concerns {
				for _, keyword := range keywords {
					if strings.Contains(concern, keyword) {
						matched++
						break
					}
				}
			}
			risks[category] = clamp01(float64(matched) / float64(len(op.Concerns)))
		}
	}

	return risks
}

// confidenceInterval builds the 95% interval around the weighted mean
// confidence using the weighted standard deviation, clamping both bounds
// to [0,1].
func confidenceInterval(confidences, weights []float64) ConfidenceInterval {
	mean := weightedMean(confidences, weights)
	std := weightedStd(confidences, weights, mean)
	margin := zScore95 * std / math.Sqrt(float64(len(confidences)))

	return ConfidenceInterval{
		Lower: clamp01(mean - margin),
		Upper: clamp01(mean + margin),
	}
}

// weightedMean computes the weighted arithmetic mean. Falls back to the
// unweighted mean when all weights are zero.
func weightedMean(values, weights []float64) float64 {
	var sum, weightSum float64
	for i, v := range values {
		sum += v * weights[i]
		weightSum += weights[i]
	}
	if weightSum == 0 {
		if len(values) == 0 {
			return 0
		}
		var total float64
		for _, v := range values {
			total += v
		}
		return total / float64(len(values))
	}
	return sum / weightSum
}

// weightedStd computes the weighted population standard deviation around the
// provided mean.
func weightedStd(values, weights []float64, mean float64) float64 {
	var sum, weightSum float64
	for i, v := range values {
		d := v - mean
		sum += weights[i] * d * d
		weightSum += weights[i]
	}
	if weightSum == 0 {
		return 0
	}
	return math.Sqrt(sum / weightSum)
}

// populationStd computes the unweighted population standard deviation.
func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// clamp01 ensures a value is within the range [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// limitStrings returns at most n leading elements of s.
func limitStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// dedupeFirstSeen gathers every concern across opinions, deduplicated in
// first-seen order so the rendered narrative is deterministic.
func dedupeFirstSeen(opinions []Opinion) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, op := range opinions {
		for _, c := range op.Concerns {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// truncateRunes shortens s to at most n runes without splitting a
// multi-byte character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
