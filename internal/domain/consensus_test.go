package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOpinion builds a valid opinion with sensible defaults for tests.
// Override fields on the returned value as needed.
func testOpinion(role SpecialistRole, confidence, priority float64, recommendations, concerns []string) Opinion {
	return Opinion{
		SpecialistID:    fmt.Sprintf("%s-test", role),
		Role:            role,
		Narrative:       fmt.Sprintf("assessment from %s", role),
		Confidence:      confidence,
		PriorityScore:   priority,
		Recommendations: recommendations,
		Concerns:        concerns,
		CreatedAt:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func newTestEngine() *ConsensusEngine {
	return NewConsensusEngine(DefaultRolePolicy())
}

func TestComputeConsensusEmptyInput(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.ComputeConsensus(nil)
	require.Error(t, err, "empty opinion set must fail fast")
	assert.ErrorIs(t, err, ErrNoOpinions)
	assert.Nil(t, result)

	result, err = engine.ComputeConsensus([]Opinion{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoOpinions)
	assert.Nil(t, result)
}

func TestComputeConsensusSingleOpinion(t *testing.T) {
	engine := newTestEngine()

	op := testOpinion(RoleOncologist, 0.4, 7.0, []string{"biopsy"}, []string{"metastasis risk"})

	result, err := engine.ComputeConsensus([]Opinion{op})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.ConsensusScore, 1e-9, "single opinion is full consensus by definition")
	assert.Empty(t, result.DissentingOpinions, "single opinion produces no dissent even at low confidence")
	assert.InDelta(t, 0.4, result.WeightedConfidence, 1e-9)
	assert.InDelta(t, 7.0, result.WeightedPriority, 1e-9)
}

func TestComputeConsensusTwoOpinionScenario(t *testing.T) {
	// Oncologist (weight 0.35) at confidence 0.9 recommends biopsy and MRI;
	// radiologist (weight 0.25) at confidence 0.3 recommends biopsy only.
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.9, 8.0, []string{"biopsy", "MRI"}, nil),
		testOpinion(RoleRadiologist, 0.3, 6.0, []string{"biopsy"}, nil),
	}

	result, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)

	// Weighted confidence: (0.35*0.9 + 0.25*0.3) / 0.6.
	assert.InDelta(t, 0.65, result.WeightedConfidence, 1e-9)

	// Overlap: "biopsy" counts twice out of 3 total items -> 2/3.
	// Confidence std of [0.9, 0.3] is 0.3 -> consistency 0.4.
	// Consensus: 0.7*(2/3) + 0.3*0.4.
	expectedScore := 0.7*(2.0/3.0) + 0.3*0.4
	assert.InDelta(t, expectedScore, result.ConsensusScore, 1e-9)
	assert.Less(t, result.ConsensusScore, 0.8, "score below threshold so dissent detection applies")

	// The radiologist's confidence is below 0.5 and must be flagged.
	require.NotEmpty(t, result.DissentingOpinions)
	found := false
	for _, dissent := range result.DissentingOpinions {
		if strings.Contains(dissent, "radiologist: low confidence (0.30)") {
			found = true
		}
	}
	assert.True(t, found, "dissent should cite the radiologist's low confidence, got %v", result.DissentingOpinions)
}

func TestComputeConsensusScoreBounds(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name     string
		opinions []Opinion
	}{
		{
			name: "full agreement",
			opinions: []Opinion{
				testOpinion(RoleOncologist, 0.9, 8.0, []string{"surgery"}, nil),
				testOpinion(RoleRadiologist, 0.9, 8.0, []string{"surgery"}, nil),
				testOpinion(RoleNurse, 0.9, 8.0, []string{"surgery"}, nil),
			},
		},
		{
			name: "no overlap and maximal dispersion",
			opinions: []Opinion{
				testOpinion(RoleOncologist, 1.0, 10.0, []string{"surgery"}, nil),
				testOpinion(RolePsychologist, 0.0, 0.0, []string{"counseling"}, nil),
			},
		},
		{
			name: "no recommendations at all",
			opinions: []Opinion{
				testOpinion(RoleOncologist, 0.7, 5.0, nil, nil),
				testOpinion(RoleNurse, 0.7, 5.0, nil, nil),
			},
		},
		{
			name: "unknown role falls back to default weight",
			opinions: []Opinion{
				testOpinion(SpecialistRole("pharmacist"), 0.8, 5.0, []string{"review medication"}, nil),
				testOpinion(RoleNurse, 0.6, 5.0, []string{"review medication"}, nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.ComputeConsensus(tt.opinions)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, result.ConsensusScore, 0.0)
			assert.LessOrEqual(t, result.ConsensusScore, 1.0)
			assert.GreaterOrEqual(t, result.ConfidenceInterval.Lower, 0.0)
			assert.LessOrEqual(t, result.ConfidenceInterval.Upper, 1.0)
			assert.LessOrEqual(t, result.ConfidenceInterval.Lower, result.ConfidenceInterval.Upper)
			for category, level := range result.RiskAssessment {
				assert.GreaterOrEqual(t, level, 0.0, "category %s", category)
				assert.LessOrEqual(t, level, 1.0, "category %s", category)
			}
			require.NoError(t, result.Validate())
		})
	}
}

func TestComputeConsensusIdempotence(t *testing.T) {
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.85, 8.5, []string{"biopsy", "chemotherapy"}, []string{"metastasis risk"}),
		testOpinion(RoleRadiologist, 0.75, 7.0, []string{"biopsy", "MRI"}, []string{"image quality limited"}),
		testOpinion(RolePsychologist, 0.45, 5.0, []string{"counseling"}, []string{"anxiety about prognosis"}),
	}

	first, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)
	second, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must yield identical results")
}

func TestComputeConsensusDispersionMonotonicity(t *testing.T) {
	// Pulling every confidence toward the mean while holding the
	// recommendations fixed must never decrease the consensus score.
	engine := newTestEngine()

	recommendations := [][]string{{"biopsy"}, {"biopsy", "MRI"}}
	confidencePairs := [][2]float64{
		{0.1, 0.9},
		{0.3, 0.7},
		{0.4, 0.6},
		{0.5, 0.5},
	}

	var previous float64
	for i, pair := range confidencePairs {
		opinions := []Opinion{
			testOpinion(RoleOncologist, pair[0], 5.0, recommendations[0], nil),
			testOpinion(RoleRadiologist, pair[1], 5.0, recommendations[1], nil),
		}
		result, err := engine.ComputeConsensus(opinions)
		require.NoError(t, err)

		if i > 0 {
			assert.GreaterOrEqual(t, result.ConsensusScore, previous,
				"reducing dispersion from %v must not decrease the score", confidencePairs[i-1])
		}
		previous = result.ConsensusScore
	}
}

func TestDissentSuppressionAtHighConsensus(t *testing.T) {
	// Full recommendation overlap with tight confidences pushes the score
	// above 0.8; dissent must then be empty even though the nurse holds a
	// unique concern and one confidence would otherwise be borderline.
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.9, 8.0, []string{"surgery"}, nil),
		testOpinion(RoleRadiologist, 0.88, 8.0, []string{"surgery"}, nil),
		testOpinion(RoleNurse, 0.92, 8.0, []string{"surgery"}, []string{"wound care capacity"}),
	}

	result, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)

	require.Greater(t, result.ConsensusScore, 0.8)
	assert.Empty(t, result.DissentingOpinions)

	// The suppressed list must still marshal as [] rather than null so the
	// wire shape is stable for transport clients.
	assert.NotNil(t, result.DissentingOpinions)
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"dissenting_opinions":[]`)
}

func TestDissentUniqueConcerns(t *testing.T) {
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.7, 8.0, []string{"surgery"}, []string{"shared concern"}),
		testOpinion(RoleRadiologist, 0.7, 7.0, []string{"biopsy"}, []string{"shared concern"}),
		testOpinion(RolePatientAdvocate, 0.6, 5.0, []string{"second opinion"}, []string{"shared concern", "treatment cost burden"}),
	}

	result, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)
	require.Less(t, result.ConsensusScore, 0.8, "dissent detection must apply")

	require.Len(t, result.DissentingOpinions, 1)
	assert.Equal(t, "patient_advocate: unique concerns - treatment cost burden", result.DissentingOpinions[0])
}

func TestDissentLowConfidenceAndUniqueConcernAreIndependent(t *testing.T) {
	// One opinion can produce two dissent entries: one for low confidence,
	// one for holding a concern nobody else raised.
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.9, 8.0, []string{"surgery"}, []string{"shared"}),
		testOpinion(RolePsychologist, 0.3, 4.0, []string{"counseling"}, []string{"shared", "severe anxiety"}),
	}

	result, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)
	require.Less(t, result.ConsensusScore, 0.8)

	require.Len(t, result.DissentingOpinions, 2)
	assert.Contains(t, result.DissentingOpinions[0], "psychologist: low confidence (0.30)")
	assert.Equal(t, "psychologist: unique concerns - severe anxiety", result.DissentingOpinions[1])
}

func TestConfidenceIntervalTwoOpinions(t *testing.T) {
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.9, 8.0, []string{"biopsy", "MRI"}, nil),
		testOpinion(RoleRadiologist, 0.3, 6.0, []string{"biopsy"}, nil),
	}

	result, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)

	// Weighted mean 0.65, weighted std sqrt(0.0875), margin 1.96*std/sqrt(2).
	assert.InDelta(t, 0.24004, result.ConfidenceInterval.Lower, 1e-4)
	assert.InDelta(t, 1.0, result.ConfidenceInterval.Upper, 1e-9, "upper bound clamps to 1")
}

func TestRiskAssessmentKeywordMatching(t *testing.T) {
	engine := newTestEngine()

	t.Run("medical risk from oncologist concerns", func(t *testing.T) {
		opinions := []Opinion{
			testOpinion(RoleOncologist, 0.8, 8.0, []string{"chemotherapy"},
				[]string{"metastasis to lymph nodes", "staging still uncertain"}),
		}

		result, err := engine.ComputeConsensus(opinions)
		require.NoError(t, err)

		// One of two concerns contains a medical keyword.
		assert.InDelta(t, 0.5, result.RiskAssessment[RiskMedical], 1e-9)
		assert.InDelta(t, 0.0, result.RiskAssessment[RiskPsychological], 1e-9)
	})

	t.Run("matching is case-sensitive substring", func(t *testing.T) {
		opinions := []Opinion{
			testOpinion(RoleOncologist, 0.8, 8.0, nil, []string{"Metastasis suspected"}),
		}

		result, err := engine.ComputeConsensus(opinions)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, result.RiskAssessment[RiskMedical], 1e-9,
			"capitalized keyword must not match the lowercase keyword set")
	})

	t.Run("advocate drives economic and quality-of-life categories", func(t *testing.T) {
		opinions := []Opinion{
			testOpinion(RolePatientAdvocate, 0.7, 5.0, nil,
				[]string{"treatment cost is high", "quality of life during chemo", "transport logistics"}),
		}

		result, err := engine.ComputeConsensus(opinions)
		require.NoError(t, err)
		assert.InDelta(t, 1.0/3.0, result.RiskAssessment[RiskEconomic], 1e-9)
		assert.InDelta(t, 1.0/3.0, result.RiskAssessment[RiskQualityOfLife], 1e-9)
	})

	t.Run("all categories default to zero without evidence", func(t *testing.T) {
		opinions := []Opinion{
			testOpinion(RoleNurse, 0.7, 5.0, []string{"monitor vitals"}, nil),
		}

		result, err := engine.ComputeConsensus(opinions)
		require.NoError(t, err)

		require.Len(t, result.RiskAssessment, len(AllRiskCategories()),
			"every category key must be present even without evidence")
		for _, category := range AllRiskCategories() {
			assert.InDelta(t, 0.0, result.RiskAssessment[category], 1e-9, "category %s", category)
		}
	})
}

func TestFinalRecommendationRendering(t *testing.T) {
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.9, 8.0, []string{"biopsy", "chemotherapy"}, []string{"metastasis risk"}),
		testOpinion(RoleRadiologist, 0.8, 7.0, []string{"biopsy", "MRI"}, []string{"image quality limited"}),
		testOpinion(RoleNurse, 0.7, 6.0, []string{"biopsy"}, []string{"metastasis risk"}),
	}

	result, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)

	narrative := result.FinalRecommendation
	assert.True(t, strings.HasPrefix(narrative, "Integrated multidisciplinary treatment recommendation:"))
	assert.Contains(t, narrative, "Core recommendations:\n1. biopsy",
		"biopsy carries the highest accumulated weight and leads the core list")
	assert.Contains(t, narrative, "Supplementary recommendations:")
	assert.Contains(t, narrative, "Key concerns:")

	// Concerns deduplicate in first-seen order.
	assert.Contains(t, narrative, "1. metastasis risk")
	assert.Contains(t, narrative, "2. image quality limited")
	assert.Equal(t, 1, strings.Count(narrative, "metastasis risk"))
}

func TestFinalRecommendationDeterministicTieBreak(t *testing.T) {
	// Two recommendations with identical accumulated weight must render in
	// lexicographic order every time.
	engine := newTestEngine()

	opinions := []Opinion{
		testOpinion(RoleOncologist, 0.8, 8.0, []string{"zoledronic acid", "analgesia"}, nil),
	}

	first, err := engine.ComputeConsensus(opinions)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := engine.ComputeConsensus(opinions)
		require.NoError(t, err)
		assert.Equal(t, first.FinalRecommendation, again.FinalRecommendation, "iteration %d", i)
	}

	analgesia := strings.Index(first.FinalRecommendation, "analgesia")
	zoledronic := strings.Index(first.FinalRecommendation, "zoledronic acid")
	require.GreaterOrEqual(t, analgesia, 0)
	require.GreaterOrEqual(t, zoledronic, 0)
	assert.Less(t, analgesia, zoledronic, "equal weights break ties lexicographically")
}

func TestRolePolicyDefaults(t *testing.T) {
	policy := DefaultRolePolicy()

	var sum float64
	for _, role := range AllSpecialistRoles() {
		sum += policy.RoleWeight(role)
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "defined role weights sum to 1.0")

	assert.InDelta(t, DefaultRoleWeight, policy.RoleWeight(SpecialistRole("pharmacist")), 1e-9,
		"unknown roles use the default weight")
}
