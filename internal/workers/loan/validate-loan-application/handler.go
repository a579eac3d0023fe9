package validateloanapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"

	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"
	"ethoscore/internal/common/validation"
	"ethoscore/internal/loan"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-loan-application"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
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

// execute checks the application data against the category's form.
// Unknown keys and missing or mistyped fields are reported together.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	category, err := loan.ParseCategory(input.LoanType)
	if err != nil {
		return nil, errors.NewUnknownLoanCategoryError(input.LoanType)
	}

	form := loan.NewApplicationForm(category)
	var fieldErrors []loan.FieldError

	names := make([]string, 0, len(input.ApplicationData))
	for name := range input.ApplicationData {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := form.SetValue(name, input.ApplicationData[name]); err != nil {
			fieldErrors = append(fieldErrors, loan.FieldError{
				Field:   name,
				Code:    validation.CodeExtraField,
				Message: fmt.Sprintf("%s is not a field of the %s form", name, category.Label()),
			})
		}
	}

	if err := form.Validate(); err != nil {
		var verr *loan.ValidationError
		if !stderrors.As(err, &verr) {
			return nil, errors.NewInternalError(err)
		}
		fieldErrors = append(fieldErrors, verr.Fields...)
	}

	if len(fieldErrors) > 0 {
		metrics.FormValidationFailures.WithLabelValues(category.String()).Inc()
		h.logger.Info("application data invalid", map[string]interface{}{
			"loanType":    category.String(),
			"errorsCount": len(fieldErrors),
		})
		if h.config.FailOnInvalid {
			return nil, errors.NewFormValidationFailedError(fieldNames(fieldErrors))
		}
	}

	return &Output{
		IsValid:          len(fieldErrors) == 0,
		LoanType:         category.String(),
		ValidationErrors: fieldErrors,
	}, nil
}

func fieldNames(fieldErrors []loan.FieldError) []string {
	seen := make(map[string]bool, len(fieldErrors))
	names := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			names = append(names, fe.Field)
		}
	}
	return names
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
