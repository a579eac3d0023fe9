package indexloandecision

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ethoscore/internal/common/config"
	"ethoscore/internal/common/database"
	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake Elasticsearch
// ==========================

type fakeES struct {
	mu     sync.Mutex
	paths  []string
	docs   []map[string]interface{}
	status int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)
	var doc map[string]interface{}
	_ = json.Unmarshal(body, &doc)

	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.docs = append(f.docs, doc)
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error": {"type": "mapper_parsing_exception"}, "status": 400}`))
		return
	}

	id := "generated-id"
	if parts := strings.Split(r.URL.Path, "/"); len(parts) == 4 {
		id = parts[3]
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"_index": "loan-decisions",
		"_id":    id,
		"result": "created",
	})
}

func (f *fakeES) last() (string, map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.paths) == 0 {
		return "", nil
	}
	return f.paths[len(f.paths)-1], f.docs[len(f.docs)-1]
}

func newTestHandler(t *testing.T, fake *fakeES) *Handler {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	h := NewHandler(LoadConfig(), es, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	return h
}

func float(v float64) *float64 { return &v }

func fairInput() *Input {
	return &Input{
		ApplicationID: "app-123",
		LoanType:      "general",
		FairMode:      true,
		Decision:      "Approved (Fair Model)",
		Approved:      true,
		Fairness: &loan.FairnessReport{
			ApprovalProbability: float(0.82),
			ModelAccuracy:       float(0.91),
			KeyFactors: []loan.KeyFactor{
				{Feature: "cibil_score", CurrentValue: 710.0, Impact: float(0.4)},
				{Feature: "loan_term", CurrentValue: 12.0, Impact: float(0.1)},
			},
			InitialMetrics:        map[string]interface{}{"disparate_impact": 0.71},
			PostMitigationMetrics: map[string]interface{}{"disparate_impact": 0.96},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_IndexesUnderApplicationID(t *testing.T) {
	fake := &fakeES{}
	handler := newTestHandler(t, fake)

	output, err := handler.Execute(context.Background(), fairInput())
	require.NoError(t, err)
	assert.Equal(t, &Output{DocumentID: "app-123", Indexed: true}, output)

	path, doc := fake.last()
	assert.Equal(t, "PUT /loan-decisions/_doc/app-123", path)
	assert.Equal(t, "general", doc["loanType"])
	assert.Equal(t, true, doc["approved"])
	assert.Equal(t, 0.82, doc["approvalProbability"])
	assert.Equal(t, []interface{}{"cibil_score", "loan_term"}, doc["keyFactors"])
	assert.Equal(t, "2026-05-04T10:00:00Z", doc["indexedAt"])
}

func TestHandler_Execute_GeneratedID(t *testing.T) {
	fake := &fakeES{}
	handler := newTestHandler(t, fake)

	input := fairInput()
	input.ApplicationID = ""
	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "generated-id", output.DocumentID)

	path, _ := fake.last()
	assert.Equal(t, "POST /loan-decisions/_doc", path)
}

func TestBuildDocument_StandardModeDropsFairness(t *testing.T) {
	input := fairInput()
	input.FairMode = false

	doc := BuildDocument(input, loan.General, time.Now())
	assert.Nil(t, doc.ApprovalProbability)
	assert.Nil(t, doc.ModelAccuracy)
	assert.Empty(t, doc.KeyFactors)
	assert.Nil(t, doc.Fairness)
}

func TestBuildDocument_AbsentProbabilitiesStayAbsent(t *testing.T) {
	input := fairInput()
	input.Fairness.ApprovalProbability = nil
	input.Fairness.ModelAccuracy = nil

	doc := BuildDocument(input, loan.General, time.Now())
	assert.Nil(t, doc.ApprovalProbability)
	assert.Nil(t, doc.ModelAccuracy)
	assert.Equal(t, []string{"cibil_score", "loan_term"}, doc.KeyFactors)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_IndexRejected(t *testing.T) {
	fake := &fakeES{status: http.StatusBadRequest}
	handler := newTestHandler(t, fake)

	output, err := handler.Execute(context.Background(), fairInput())
	assert.Nil(t, output)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeDecisionIndexFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_UnknownLoanType(t *testing.T) {
	handler := newTestHandler(t, &fakeES{})

	input := fairInput()
	input.LoanType = "yacht"
	_, err := handler.Execute(context.Background(), input)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeUnknownLoanCategory, stdErr.Code)
}
