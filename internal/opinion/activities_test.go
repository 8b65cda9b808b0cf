//nolint:testpackage // Tests need access to unexported helpers like specialistID
package opinion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/internal/llm"
	"github.com/ahrav/go-consilium/pkg/activity"
)

// mockClient implements llm.Client with canned replies.
type mockClient struct {
	reply *llm.SpecialistReply
	err   error

	lastInput llm.ConsultPromptInput
	calls     int
}

func (m *mockClient) Consult(_ context.Context, input llm.ConsultPromptInput) (*llm.SpecialistReply, error) {
	m.calls++
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func validCollectInput() CollectOpinionInput {
	return CollectOpinionInput{
		Role: domain.RoleOncologist,
		Case: domain.MedicalCase{
			CaseID:   "case-7",
			Symptoms: []string{"persistent cough"},
		},
		Config: domain.DefaultConsultConfig(),
	}
}

func TestCollectOpinion(t *testing.T) {
	t.Run("produces validated opinion from specialist reply", func(t *testing.T) {
		client := &mockClient{reply: &llm.SpecialistReply{
			Narrative:       "Findings consistent with stage II disease.",
			Confidence:      0.85,
			PriorityScore:   7.5,
			Recommendations: []string{"chemotherapy", "surgical consult"},
			Concerns:        []string{"metastasis risk"},
			Tokens:          412,
			LatencyMs:       930,
		}}
		activities := NewActivities(activity.BaseActivities{}, client)

		out, err := activities.CollectOpinion(context.Background(), validCollectInput())
		require.NoError(t, err)
		require.NotNil(t, out)

		assert.Equal(t, domain.RoleOncologist, out.Opinion.Role)
		assert.Equal(t, specialistID(domain.RoleOncologist, "test-workflow"), out.Opinion.SpecialistID)
		assert.InDelta(t, 0.85, out.Opinion.Confidence, 1e-9)
		assert.InDelta(t, 7.5, out.Opinion.PriorityScore, 1e-9)
		assert.Equal(t, []string{"chemotherapy", "surgical consult"}, out.Opinion.Recommendations)
		assert.Equal(t, []string{"metastasis risk"}, out.Opinion.Concerns)
		assert.Equal(t, int64(412), out.TokensUsed)
		assert.Equal(t, int64(930), out.LatencyMs)

		require.Equal(t, 1, client.calls)
		assert.Equal(t, domain.RoleOncologist, client.lastInput.Role)
		assert.Equal(t, "case-7", client.lastInput.Case.CaseID)
	})

	t.Run("invalid input is non-retryable", func(t *testing.T) {
		client := &mockClient{}
		activities := NewActivities(activity.BaseActivities{}, client)

		input := validCollectInput()
		input.Case.CaseID = ""

		out, err := activities.CollectOpinion(context.Background(), input)
		require.Error(t, err)
		assert.Nil(t, out)
		assert.Zero(t, client.calls, "client must not be consulted on invalid input")

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CollectOpinion", appErr.Type())
		assert.True(t, appErr.NonRetryable())
	})

	t.Run("missing role is non-retryable", func(t *testing.T) {
		activities := NewActivities(activity.BaseActivities{}, &mockClient{})

		input := validCollectInput()
		input.Role = ""

		_, err := activities.CollectOpinion(context.Background(), input)
		require.Error(t, err)

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.True(t, appErr.NonRetryable())
	})

	t.Run("provider error classification", func(t *testing.T) {
		tests := []struct {
			name      string
			status    int
			retryable bool
		}{
			{"rate limited retries", 429, true},
			{"server error retries", 503, true},
			{"bad request does not retry", 400, false},
			{"unauthorized does not retry", 401, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client := &mockClient{err: &llm.ProviderError{
					StatusCode: tt.status,
					Message:    "provider rejected request",
				}}
				activities := NewActivities(activity.BaseActivities{}, client)

				out, err := activities.CollectOpinion(context.Background(), validCollectInput())
				require.Error(t, err)
				assert.Nil(t, out)

				var appErr *temporal.ApplicationError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.retryable, !appErr.NonRetryable())
			})
		}
	})

	t.Run("reply violating opinion constraints is non-retryable", func(t *testing.T) {
		client := &mockClient{reply: &llm.SpecialistReply{
			Narrative:  "overconfident assessment",
			Confidence: 1.5, // out of range, bypassing the parser's clamp
		}}
		activities := NewActivities(activity.BaseActivities{}, client)

		out, err := activities.CollectOpinion(context.Background(), validCollectInput())
		require.Error(t, err)
		assert.Nil(t, out)

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.True(t, appErr.NonRetryable())
	})
}

func TestCollectOpinionInputValidate(t *testing.T) {
	t.Run("valid input passes", func(t *testing.T) {
		input := validCollectInput()
		require.NoError(t, input.Validate())
	})

	t.Run("bad config is rejected", func(t *testing.T) {
		input := validCollectInput()
		input.Config.Temperature = 5.0

		err := input.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}
