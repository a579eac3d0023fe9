package predictloanoutcome

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ethoscore/internal/common/errors"
	commonhttp "ethoscore/internal/common/http"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type scoringService struct {
	mu     sync.Mutex
	paths  []string
	status int
	body   string
	delay  time.Duration
}

func (s *scoringService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	status, body, delay := s.status, s.body, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *scoringService) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func newTestHandler(t *testing.T, svc *scoringService, timeout time.Duration) *Handler {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger(t)
	client := commonhttp.NewClientWithHTTP(srv.URL, srv.Client())
	dispatcher := loan.NewDispatcher(client, loan.DispatcherConfig{Timeout: timeout}, log)
	return NewHandler(LoadConfig(), dispatcher, log)
}

func createTestInput(category loan.LoanCategory, fair bool) *Input {
	data := make(map[string]interface{})
	for _, name := range loan.FieldNames(category) {
		data[name] = 1.0
	}
	return &Input{
		ApplicationID:   "app-001",
		LoanType:        category.String(),
		FairMode:        fair,
		ApplicationData: data,
	}
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) *errors.StandardError {
	t.Helper()
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr), "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
	return stdErr
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_StandardMode(t *testing.T) {
	svc := &scoringService{body: `{"prediction": "Rejected", "explanation": "Low credit history."}`}
	handler := newTestHandler(t, svc, time.Second)

	output, err := handler.Execute(context.Background(), createTestInput(loan.Home, false))
	require.NoError(t, err)

	assert.Equal(t, "Rejected", output.Decision)
	assert.Equal(t, "Low credit history.", output.Rationale)
	assert.False(t, output.Approved)
	assert.Equal(t, "Standard Model Mode", output.Mode)
	assert.Nil(t, output.Fairness)
	assert.Equal(t, []string{loan.EndpointFor(loan.Home, false)}, svc.requested())
}

func TestHandler_Execute_FairMode(t *testing.T) {
	svc := &scoringService{body: `{
		"prediction": "Approved (Fair Model)",
		"fairness": {
			"approval_probability": 0.82,
			"model_accuracy": 0.91,
			"key_factors": [{"feature": "cibil_score", "current_value": 710, "impact": 0.4}],
			"suggestions": [],
			"initial_metrics": {"disparate_impact": 0.71},
			"post_metrics": {"disparate_impact": 0.96}
		}
	}`}
	handler := newTestHandler(t, svc, time.Second)

	output, err := handler.Execute(context.Background(), createTestInput(loan.General, true))
	require.NoError(t, err)

	assert.True(t, output.Approved)
	assert.Equal(t, "Fair Model Mode", output.Mode)
	require.NotNil(t, output.Fairness)
	require.NotNil(t, output.Fairness.ApprovalProbability)
	assert.Equal(t, 0.82, *output.Fairness.ApprovalProbability)
	require.Len(t, output.Fairness.KeyFactors, 1)
	assert.Equal(t, "cibil_score", output.Fairness.KeyFactors[0].Feature)
	assert.Empty(t, output.Fairness.Suggestions)
	assert.Equal(t, []string{loan.EndpointFor(loan.General, true)}, svc.requested())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InvalidForm(t *testing.T) {
	svc := &scoringService{body: `{"prediction": "Approved"}`}
	handler := newTestHandler(t, svc, time.Second)

	input := createTestInput(loan.CreditCard, false)
	delete(input.ApplicationData, "DAYS_BIRTH")

	_, err := handler.Execute(context.Background(), input)
	stdErr := requireCode(t, err, errors.ErrCodeFormValidationFailed)
	assert.Equal(t, []string{"DAYS_BIRTH"}, stdErr.Metadata["fields"])
	assert.Empty(t, svc.requested(), "an invalid form must not be sent")
}

func TestHandler_Execute_UnknownLoanType(t *testing.T) {
	handler := newTestHandler(t, &scoringService{}, time.Second)

	input := createTestInput(loan.Home, false)
	input.LoanType = "auto"
	_, err := handler.Execute(context.Background(), input)
	requireCode(t, err, errors.ErrCodeUnknownLoanCategory)
}

func TestHandler_Execute_ServiceError(t *testing.T) {
	svc := &scoringService{status: http.StatusInternalServerError, body: `{"error": "model not loaded"}`}
	handler := newTestHandler(t, svc, time.Second)

	_, err := handler.Execute(context.Background(), createTestInput(loan.Home, true))
	stdErr := requireCode(t, err, errors.ErrCodePredictionTransportFailed)
	assert.Equal(t, http.StatusInternalServerError, stdErr.Metadata["statusCode"])
	assert.Equal(t, 0, errors.ConvertToBPMNError(stdErr).Retries)
}

func TestHandler_Execute_Timeout(t *testing.T) {
	svc := &scoringService{body: `{"prediction": "Approved"}`, delay: time.Second}
	handler := newTestHandler(t, svc, 50*time.Millisecond)

	_, err := handler.Execute(context.Background(), createTestInput(loan.Home, false))
	requireCode(t, err, errors.ErrCodePredictionTimeout)
}

func TestHandler_Execute_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>gateway</html>`},
		{"missing prediction", `{"explanation": "x"}`},
		{"prediction not a string", `{"prediction": 1}`},
		{"blank prediction", `{"prediction": "  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(t, &scoringService{body: tt.body}, time.Second)
			_, err := handler.Execute(context.Background(), createTestInput(loan.General, false))
			requireCode(t, err, errors.ErrCodePredictionResponseInvalid)
		})
	}
}
