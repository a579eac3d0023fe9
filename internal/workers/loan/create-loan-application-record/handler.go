package createloanapplicationrecord

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"
	"ethoscore/internal/loan"
	"ethoscore/internal/models"
	"ethoscore/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-loan-application-record"
)

// RecordStore is the slice of store.Records the worker writes through.
type RecordStore interface {
	Insert(ctx context.Context, userID, loanType string, data map[string]interface{}) (*models.LoanApplicationRecord, error)
}

type Handler struct {
	config       *Config
	records      RecordStore
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, records RecordStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		records:      records,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
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
	if input.UserID == "" {
		return nil, errors.NewUserNotSignedInError()
	}

	category, err := loan.ParseCategory(input.LoanType)
	if err != nil {
		return nil, errors.NewUnknownLoanCategoryError(input.LoanType)
	}

	form, err := loan.FormFromValues(category, input.ApplicationData)
	if err != nil {
		return nil, errors.NewFormValidationFailedError(nil).WithMetadata("reason", err.Error())
	}
	if err := form.Validate(); err != nil {
		var verr *loan.ValidationError
		if stderrors.As(err, &verr) {
			names := make([]string, 0, len(verr.Fields))
			for _, fe := range verr.Fields {
				names = append(names, fe.Field)
			}
			return nil, errors.NewFormValidationFailedError(names)
		}
		return nil, errors.NewInternalError(err)
	}

	rec, err := h.records.Insert(ctx, input.UserID, category.String(), form.Values())
	if err != nil {
		switch {
		case stderrors.Is(err, store.ErrMissingUser):
			return nil, errors.NewUserNotSignedInError()
		case stderrors.Is(err, store.ErrRecordWriteFailed):
			return nil, errors.NewRecordStoreWriteFailedError(err)
		default:
			return nil, errors.NewDatabaseConnectionFailedError(err)
		}
	}

	return &Output{
		ApplicationID: rec.ID,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
	}, nil
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
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":        job.Key,
		"applicationId": output.ApplicationID,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
