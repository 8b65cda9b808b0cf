package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpinionRecordedEvent(t *testing.T) {
	opinion := testOpinion(RoleOncologist, 0.85, 8.0,
		[]string{"biopsy", "chemotherapy"}, []string{"metastasis risk"})

	envelope, err := NewOpinionRecordedEvent("wf-123", "run-456", "case-001", opinion)
	require.NoError(t, err)

	assert.Equal(t, EventTypeOpinionRecorded, envelope.EventType)
	assert.Equal(t, "wf-123", envelope.WorkflowID)
	assert.Equal(t, "activity.collect_opinion", envelope.Producer)
	assert.NotEmpty(t, envelope.IdempotencyKey)

	var payload OpinionRecordedPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, "case-001", payload.CaseID)
	assert.Equal(t, RoleOncologist, payload.Role)
	assert.Equal(t, 2, payload.RecommendationCount)
	assert.Equal(t, 1, payload.ConcernCount)
}

func TestNewDecisionReachedEvent(t *testing.T) {
	report := &DecisionReport{
		ID:     "550e8400-e29b-41d4-a716-446655440000",
		CaseID: "case-001",
		ConsensusResult: ConsensusResult{
			ConsensusScore:     0.72,
			WeightedPriority:   7.5,
			DissentingOpinions: []string{"radiologist: low confidence (0.30) - ..."},
		},
		Opinions:  []Opinion{testOpinion(RoleOncologist, 0.8, 7.0, nil, nil)},
		DecidedAt: time.Now(),
	}

	envelope, err := NewDecisionReachedEvent("wf-123", "run-456", report)
	require.NoError(t, err)

	assert.Equal(t, EventTypeDecisionReached, envelope.EventType)

	var payload DecisionReachedPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, report.ID, payload.ReportID)
	assert.InDelta(t, 0.72, payload.ConsensusScore, 1e-9)
	assert.Equal(t, 1, payload.OpinionCount)
	assert.Equal(t, 1, payload.DissentCount)
}

func TestIdempotencyKeysAreDeterministic(t *testing.T) {
	first := OpinionRecordedIdempotencyKey("wf-123", RoleOncologist)
	second := OpinionRecordedIdempotencyKey("wf-123", RoleOncologist)
	assert.Equal(t, first, second, "same logical event must produce the same key")

	other := OpinionRecordedIdempotencyKey("wf-123", RoleRadiologist)
	assert.NotEqual(t, first, other, "different roles must produce different keys")

	decision := DecisionReachedIdempotencyKey("wf-123", "case-001")
	assert.NotEqual(t, first, decision)
	assert.Equal(t, decision, DecisionReachedIdempotencyKey("wf-123", "case-001"))
}
