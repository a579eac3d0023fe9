package loan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		decision string
		want     bool
	}{
		{"Approved", true},
		{"approved", true},
		{"Approved (Fair Model)", true},
		{"Loan APPROVED with conditions", true},
		{"Rejected", false},
		{"Not eligible", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAffirmative(tt.decision), tt.decision)
	}
}

func TestPresent_StandardMode(t *testing.T) {
	in, err := Interpret(RawResponse(`{"prediction": "Rejected", "explanation": "Low credit history."}`), false)
	require.NoError(t, err)

	view := Present(in, false)
	assert.Equal(t, "Rejected", view.Decision)
	assert.Equal(t, "Low credit history.", view.Rationale)
	assert.False(t, view.Affirmative)
	assert.Equal(t, "Standard Model Mode", view.Mode)
	assert.Nil(t, view.Fairness)
}

func TestPresent_FairnessTablesKeepOrder(t *testing.T) {
	in, err := Interpret(RawResponse(fairBody), true)
	require.NoError(t, err)

	view := Present(in, true)
	require.NotNil(t, view.Fairness)
	assert.True(t, view.Affirmative)
	assert.Equal(t, "Fair Model Mode", view.Mode)

	fv := view.Fairness
	assert.Equal(t, "0.82", fv.ApprovalProbability)
	assert.Equal(t, "91", fv.ModelAccuracy)
	assert.Equal(t, []string{"Feature", "Current Value", "Impact"}, fv.KeyFactors.Header)
	assert.Equal(t, [][]string{
		{"A", "1", "0.5"},
		{"B", "urban", "0.1"},
		{"C", "", "0.9"},
	}, fv.KeyFactors.Rows)
	assert.Equal(t, [][]string{{"LoanAmount", "150", "120", "0.07", "0.89"}}, fv.Suggestions.Rows)
	assert.Empty(t, fv.KeyFactorsNote)
	assert.JSONEq(t, `{"disparate_impact": 0.71, "statistical_parity_difference": -0.12}`, fv.InitialMetrics)
	assert.JSONEq(t, `{"disparate_impact": 0.96}`, fv.PostMetrics)
}

func TestPresent_EmptyFairnessNotes(t *testing.T) {
	in, err := Interpret(RawResponse(`{"prediction": "Rejected", "fairness": {"approval_probability": 0.3}}`), true)
	require.NoError(t, err)

	fv := Present(in, true).Fairness
	require.NotNil(t, fv)
	assert.Equal(t, NoKeyFactorsMessage, fv.KeyFactorsNote)
	assert.Equal(t, NoSuggestionsMessage, fv.SuggestionsNote)
	assert.Equal(t, "{}", fv.InitialMetrics)
}

func TestPresent_AbsentNumbersRenderNotAvailable(t *testing.T) {
	body := `{
		"prediction": "Approved (Fair Model)",
		"fairness": {
			"suggestions": [{"feature": "Credit_History", "current": 0, "target": 1, "action": "increase", "contribution": -0.21}],
			"key_factors": [{"feature": "LoanAmount", "current_value": 150, "impact": "high"}],
			"initial_metrics": {"disparate_impact": 0.71}
		}
	}`
	in, err := Interpret(RawResponse(body), true)
	require.NoError(t, err)

	fv := Present(in, true).Fairness
	require.NotNil(t, fv)
	assert.Equal(t, NotAvailable, fv.ApprovalProbability)
	assert.Equal(t, NotAvailable, fv.ModelAccuracy)
	assert.Equal(t, [][]string{{"LoanAmount", "150", NotAvailable}}, fv.KeyFactors.Rows)
	assert.Equal(t, [][]string{{"Credit_History", "0", "1", NotAvailable, NotAvailable}}, fv.Suggestions.Rows)
}
