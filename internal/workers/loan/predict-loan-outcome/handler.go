package predictloanoutcome

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"

	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"
	"ethoscore/internal/loan"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "predict-loan-outcome"
)

type Handler struct {
	config       *Config
	predictor    loan.Predictor
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, predictor loan.Predictor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		predictor:    predictor,
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
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewInternalError(fmt.Errorf("parse input: %w", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := errors.Normalize(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()

		// The scoring service being down is an operator problem, not a
		// process path: raise an incident rather than throw.
		switch stdErr.Code {
		case errors.ErrCodePredictionTransportFailed, errors.ErrCodePredictionTimeout:
			h.errorHandler.FailWithoutRetry(ctx, client, job, stdErr)
		default:
			h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		}
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
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

	raw, err := h.predictor.SubmitPrediction(ctx, category, input.FairMode, form)
	if err != nil {
		return nil, mapPredictionError(err)
	}

	interp, err := loan.Interpret(raw, input.FairMode)
	if err != nil {
		metrics.PredictionRequests.WithLabelValues(category.String(), metrics.Mode(input.FairMode), "response_invalid").Inc()
		return nil, errors.NewPredictionResponseInvalidError(err)
	}
	metrics.PredictionRequests.WithLabelValues(category.String(), metrics.Mode(input.FairMode), "success").Inc()
	if interp.FairnessErr != nil {
		h.logger.Warn("fairness block dropped", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"error":         interp.FairnessErr,
		})
	}

	approved := loan.IsAffirmative(interp.Result.Decision)
	metrics.Decisions.WithLabelValues(category.String(), metrics.Mode(input.FairMode), strconv.FormatBool(approved)).Inc()

	h.logger.Info("prediction interpreted", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"loanType":      category.String(),
		"fairMode":      input.FairMode,
		"decision":      interp.Result.Decision,
		"approved":      approved,
		"hasFairness":   interp.Fairness != nil,
	})

	return &Output{
		Decision:          interp.Result.Decision,
		Rationale:         interp.Result.Rationale,
		Approved:          approved,
		Mode:              loan.ModeLabel(input.FairMode),
		Fairness:          interp.Fairness,
		Probabilities:     interp.Probabilities,
		FeatureImportance: interp.FeatureImportance,
	}, nil
}

func mapPredictionError(err error) *errors.StandardError {
	var terr *loan.TransportError
	if !stderrors.As(err, &terr) {
		return errors.NewInternalError(err)
	}
	if terr.Timeout {
		return errors.NewPredictionTimeoutError(terr.Endpoint)
	}
	stdErr := errors.NewPredictionTransportFailedError(terr.Endpoint, err)
	if terr.StatusCode != 0 {
		stdErr.WithMetadata("statusCode", terr.StatusCode)
	}
	return stdErr
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
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
