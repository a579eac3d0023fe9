package indexloandecision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"
	"ethoscore/internal/loan"
	"ethoscore/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "index-loan-decision"
)

// DocumentIndexer is satisfied by database.ElasticsearchClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) (string, error)
}

type Handler struct {
	config       *Config
	indexer      DocumentIndexer
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, indexer DocumentIndexer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		indexer:      indexer,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(fmt.Errorf("parse input: %w", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	category, err := loan.ParseCategory(input.LoanType)
	if err != nil {
		return nil, errors.NewUnknownLoanCategoryError(input.LoanType)
	}

	doc := BuildDocument(input, category, h.now())

	// Documents are keyed by application so a retried job overwrites
	// rather than duplicates.
	id, err := h.indexer.IndexDocument(ctx, h.config.Index, input.ApplicationID, doc)
	if err != nil {
		return nil, errors.NewDecisionIndexFailedError(h.config.Index, err)
	}

	h.logger.Info("decision indexed", map[string]interface{}{
		"documentId": id,
		"index":      h.config.Index,
		"loanType":   category.String(),
	})
	return &Output{DocumentID: id, Indexed: true}, nil
}

// BuildDocument flattens a decision for search. Fairness data is kept only
// for decisions made in fair mode.
func BuildDocument(input *Input, category loan.LoanCategory, at time.Time) *models.DecisionDocument {
	doc := &models.DecisionDocument{
		ApplicationID: input.ApplicationID,
		LoanType:      category.String(),
		FairMode:      input.FairMode,
		Decision:      input.Decision,
		Approved:      input.Approved,
		Rationale:     input.Rationale,
		IndexedAt:     at.Format(time.RFC3339),
	}
	if !input.FairMode || input.Fairness == nil {
		return doc
	}

	f := input.Fairness
	doc.ApprovalProbability = f.ApprovalProbability
	doc.ModelAccuracy = f.ModelAccuracy
	for _, kf := range f.KeyFactors {
		doc.KeyFactors = append(doc.KeyFactors, kf.Feature)
	}
	doc.Fairness = map[string]interface{}{
		"initialMetrics":        f.InitialMetrics,
		"postMitigationMetrics": f.PostMitigationMetrics,
		"suggestionsCount":      len(f.Suggestions),
	}
	return doc
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
