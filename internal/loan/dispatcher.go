package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	commonhttp "ethoscore/internal/common/http"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultPredictionTimeout = 15 * time.Second

// RawResponse is the undecoded body of a 2xx prediction answer.
type RawResponse []byte

// Transport posts a JSON body to a path of the prediction service.
type Transport interface {
	PostJSON(ctx context.Context, path string, body interface{}) (*commonhttp.Response, error)
}

type DispatcherConfig struct {
	Timeout time.Duration
}

// Dispatcher sends one application form to the endpoint selected by its
// category and the fairness flag.
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    logger.Logger
	tracer    trace.Tracer
}

func NewDispatcher(transport Transport, cfg DispatcherConfig, log logger.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPredictionTimeout
	}
	return &Dispatcher{
		transport: transport,
		timeout:   cfg.Timeout,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		tracer:    otel.Tracer("ethoscore/internal/loan"),
	}
}

// SubmitPrediction posts the form and returns the raw body of a 2xx answer.
// Network failures, timeouts and non-2xx statuses come back as
// *TransportError. The form must belong to category.
func (d *Dispatcher) SubmitPrediction(ctx context.Context, category LoanCategory, fairMode bool, form *ApplicationForm) (RawResponse, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(category))
	}
	if form == nil || form.Category() != category {
		return nil, fmt.Errorf("%w: form does not belong to %s", ErrValidation, category)
	}

	endpoint := EndpointFor(category, fairMode)
	mode := metrics.Mode(fairMode)

	ctx, span := d.tracer.Start(ctx, "loan.SubmitPrediction", trace.WithAttributes(
		attribute.String("loan.category", category.String()),
		attribute.Bool("loan.fair_mode", fairMode),
		attribute.String("http.route", endpoint),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	log := d.logger.WithFields(map[string]interface{}{
		"loanType": category.String(),
		"fairMode": fairMode,
		"endpoint": endpoint,
	})
	log.Debug("submitting prediction request", nil)

	start := time.Now()
	resp, err := d.transport.PostJSON(ctx, endpoint, form.Clone())
	metrics.PredictionDuration.WithLabelValues(category.String(), mode).Observe(time.Since(start).Seconds())

	if err != nil {
		terr := &TransportError{
			Endpoint: endpoint,
			Timeout:  errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
		d.recordFailure(span, category, mode, terr)
		log.Warn("prediction request failed", map[string]interface{}{"error": err, "timeout": terr.Timeout})
		return nil, terr
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if !resp.IsSuccess() {
		terr := &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
		d.recordFailure(span, category, mode, terr)
		log.Warn("prediction service returned an error status", map[string]interface{}{"status": resp.StatusCode})
		return nil, terr
	}

	log.Debug("prediction response received", map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	return RawResponse(resp.Body), nil
}

func (d *Dispatcher) recordFailure(span trace.Span, category LoanCategory, mode string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.PredictionRequests.WithLabelValues(category.String(), mode, "transport_error").Inc()
}
