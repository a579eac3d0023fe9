package loan

import (
	"encoding/json"
	"errors"
	"testing"

	"ethoscore/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filledForm returns a form of category with every field set to 1.
func filledForm(t *testing.T, category LoanCategory) *ApplicationForm {
	t.Helper()
	form := NewApplicationForm(category)
	for _, f := range FieldsFor(category) {
		require.NoError(t, form.Set(f.Name, "1"))
	}
	return form
}

func TestNewApplicationForm_KeyedByCategoryFields(t *testing.T) {
	for _, c := range Categories() {
		form := NewApplicationForm(c)
		values := form.Values()
		assert.Len(t, values, len(FieldsFor(c)))
		for _, name := range FieldNames(c) {
			assert.Equal(t, "", values[name])
		}
	}
}

func TestApplicationForm_SetParsesNumbers(t *testing.T) {
	form := NewApplicationForm(Home)

	require.NoError(t, form.Set("ApplicantIncome", " 5849 "))
	v, ok := form.Get("ApplicantIncome")
	require.True(t, ok)
	assert.Equal(t, 5849.0, v)

	require.NoError(t, form.Set("LoanAmount", "lots"))
	v, _ = form.Get("LoanAmount")
	assert.Equal(t, "lots", v)

	require.NoError(t, form.Set("Dependents", ""))
	v, _ = form.Get("Dependents")
	assert.Equal(t, "", v)

	require.NoError(t, form.Set("Credit_History", "NaN"))
	v, _ = form.Get("Credit_History")
	assert.Equal(t, "NaN", v)
}

func TestApplicationForm_UnknownField(t *testing.T) {
	form := NewApplicationForm(General)
	err := form.Set("Gender", "1")
	assert.True(t, errors.Is(err, ErrUnknownField))

	_, err = FormFromValues(Home, map[string]interface{}{"cibil_score": 700})
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestFormFromValues_WidensNumbers(t *testing.T) {
	form, err := FormFromValues(General, map[string]interface{}{
		"cibil_score":  int64(720),
		"loan_term":    12,
		"loan_amount":  json.Number("250000"),
		"income_annum": float32(1.5),
	})
	require.NoError(t, err)

	values := form.Values()
	assert.Equal(t, 720.0, values["cibil_score"])
	assert.Equal(t, 12.0, values["loan_term"])
	assert.Equal(t, 250000.0, values["loan_amount"])
	assert.Equal(t, 1.5, values["income_annum"])
	assert.Equal(t, "", values["education"])
}

func TestApplicationForm_ValidateComplete(t *testing.T) {
	for _, c := range Categories() {
		assert.NoError(t, filledForm(t, c).Validate(), c.String())
	}
}

func TestApplicationForm_ValidateMarksOffendingFields(t *testing.T) {
	form := filledForm(t, Home)
	require.NoError(t, form.Set("LoanAmount", ""))
	require.NoError(t, form.Set("Property_Area", "urban"))

	err := form.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, Home, verr.Category)
	assert.True(t, verr.HasField("LoanAmount"))
	assert.True(t, verr.HasField("Property_Area"))
	assert.False(t, verr.HasField("Gender"))

	codes := map[string]string{}
	for _, f := range verr.Fields {
		codes[f.Field] = f.Code
	}
	assert.Equal(t, validation.CodeRequiredFieldMissing, codes["LoanAmount"])
	assert.Equal(t, validation.CodeInvalidType, codes["Property_Area"])
}

func TestApplicationForm_CloneIsIndependent(t *testing.T) {
	form := filledForm(t, CreditCard)
	clone := form.Clone()
	require.NoError(t, form.Set("CNT_CHILDREN", "3"))

	v, _ := clone.Get("CNT_CHILDREN")
	assert.Equal(t, 1.0, v)
	assert.Equal(t, CreditCard, clone.Category())
}

func TestApplicationForm_MarshalJSONSendsValuesAsIs(t *testing.T) {
	form := NewApplicationForm(Home)
	require.NoError(t, form.Set("Gender", "1"))

	raw, err := json.Marshal(form)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Len(t, body, 11)
	assert.Equal(t, 1.0, body["Gender"])
	assert.Equal(t, "", body["Married"])
}

func TestSchema_EveryFieldRequired(t *testing.T) {
	schema := Schema(CreditCard)
	assert.Equal(t, "object", schema.Type)
	assert.False(t, schema.AdditionalProperties)
	assert.ElementsMatch(t, FieldNames(CreditCard), schema.Required)
	for _, name := range FieldNames(CreditCard) {
		assert.Equal(t, "number", schema.Properties[name].Type)
	}
}
