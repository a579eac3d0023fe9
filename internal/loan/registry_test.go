package loan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsFor_NonEmptyAndUnique(t *testing.T) {
	for _, c := range Categories() {
		t.Run(c.String(), func(t *testing.T) {
			fields := FieldsFor(c)
			require.NotEmpty(t, fields)

			seen := make(map[string]bool, len(fields))
			for _, f := range fields {
				assert.NotEmpty(t, f.Name)
				assert.NotEmpty(t, f.Label)
				assert.False(t, seen[f.Name], "duplicate field %s", f.Name)
				seen[f.Name] = true
			}
		})
	}
}

func TestFieldsFor_KnownLists(t *testing.T) {
	assert.Len(t, FieldsFor(Home), 11)
	assert.Len(t, FieldsFor(General), 11)
	assert.Len(t, FieldsFor(CreditCard), 17)

	assert.Equal(t, "Gender", FieldsFor(Home)[0].Name)
	assert.Equal(t, "no_of_dependents", FieldsFor(General)[0].Name)
	assert.Equal(t, "CODE_GENDER", FieldsFor(CreditCard)[0].Name)
}

func TestFieldsFor_ReturnsCopy(t *testing.T) {
	fields := FieldsFor(Home)
	fields[0].Name = "mutated"
	assert.Equal(t, "Gender", FieldsFor(Home)[0].Name)
}

func TestFieldsFor_UnknownCategoryPanics(t *testing.T) {
	assert.Panics(t, func() { FieldsFor(LoanCategory(42)) })
	assert.Panics(t, func() { EndpointFor(LoanCategory(-1), false) })
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want LoanCategory
	}{
		{"home", Home},
		{"HOME", Home},
		{"general", General},
		{"personal", General},
		{"credit", CreditCard},
		{"credit-card", CreditCard},
		{"credit_card", CreditCard},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseCategory("auto")
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestCategory_TextRoundTrip(t *testing.T) {
	for _, c := range Categories() {
		text, err := c.MarshalText()
		require.NoError(t, err)

		var back LoanCategory
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, c, back)
	}
}

func TestEndpointFor_AllCombinations(t *testing.T) {
	want := map[LoanCategory][2]string{
		Home:       {"/api/loan-approval/predict-home", "/api/loan-approval/predict-home-fair"},
		General:    {"/api/loan-approval/predict-general", "/api/loan-approval/predict-general-fair"},
		CreditCard: {"/api/loan-approval/predict-credit", "/api/loan-approval/predict-credit-fair"},
	}
	seen := make(map[string]bool)
	for _, c := range Categories() {
		assert.Equal(t, want[c][0], EndpointFor(c, false))
		assert.Equal(t, want[c][1], EndpointFor(c, true))
		seen[EndpointFor(c, false)] = true
		seen[EndpointFor(c, true)] = true
	}
	assert.Len(t, seen, 6)
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "Fair Model Mode", ModeLabel(true))
	assert.Equal(t, "Standard Model Mode", ModeLabel(false))
}
