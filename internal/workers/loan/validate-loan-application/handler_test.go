package validateloanapplication

import (
	"context"
	stderrors "errors"
	"testing"

	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/validation"
	"ethoscore/internal/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

func completeData(category loan.LoanCategory) map[string]interface{} {
	data := make(map[string]interface{})
	for _, name := range loan.FieldNames(category) {
		data[name] = 1
	}
	return data
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Valid(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	for _, category := range loan.Categories() {
		t.Run(category.String(), func(t *testing.T) {
			output, err := handler.Execute(context.Background(), &Input{
				LoanType:        category.String(),
				ApplicationData: completeData(category),
			})
			require.NoError(t, err)
			assert.True(t, output.IsValid)
			assert.Equal(t, category.String(), output.LoanType)
			assert.Empty(t, output.ValidationErrors)
		})
	}
}

func TestHandler_Execute_MissingAndMistyped(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	data := completeData(loan.General)
	delete(data, "cibil_score")
	data["loan_amount"] = "lots"

	output, err := handler.Execute(context.Background(), &Input{LoanType: "general", ApplicationData: data})
	require.NoError(t, err)
	assert.False(t, output.IsValid)

	byField := map[string]string{}
	for _, fe := range output.ValidationErrors {
		byField[fe.Field] = fe.Code
	}
	assert.Equal(t, validation.CodeRequiredFieldMissing, byField["cibil_score"])
	assert.Equal(t, validation.CodeInvalidType, byField["loan_amount"])
}

func TestHandler_Execute_ForeignField(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	// A home-loan key sent with a credit-card application.
	data := completeData(loan.CreditCard)
	data["Credit_History"] = 1

	output, err := handler.Execute(context.Background(), &Input{LoanType: "credit", ApplicationData: data})
	require.NoError(t, err)
	assert.False(t, output.IsValid)
	require.Len(t, output.ValidationErrors, 1)
	assert.Equal(t, "Credit_History", output.ValidationErrors[0].Field)
	assert.Equal(t, validation.CodeExtraField, output.ValidationErrors[0].Code)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_UnknownLoanType(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{LoanType: "mortgage-plus"})
	assert.Nil(t, output)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeUnknownLoanCategory, stdErr.Code)
}

func TestHandler_Execute_FailOnInvalid(t *testing.T) {
	config := LoadConfig()
	config.FailOnInvalid = true
	handler := NewHandler(config, newTestLogger(t))

	data := completeData(loan.Home)
	delete(data, "Gender")
	delete(data, "Married")

	_, err := handler.Execute(context.Background(), &Input{LoanType: "home", ApplicationData: data})

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeFormValidationFailed, stdErr.Code)
	assert.ElementsMatch(t, []string{"Gender", "Married"}, stdErr.Metadata["fields"])
}
