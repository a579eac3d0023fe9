package observability

import (
	"context"
	"testing"
	"time"

	"ethoscore/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNew_TracingDisabled(t *testing.T) {
	o := New("loan-desk-test", TracingConfig{}, logger.NewTestLogger(t))
	require.NotNil(t, o)
	assert.Nil(t, o.tracerProvider)

	ctx, span := o.StartSpan(context.Background(), "predict", attribute.String("category", "home"))
	assert.NotNil(t, ctx)
	span.End()

	o.RecordJobProcessed(context.Background(), "predict-loan-outcome", "completed")
	o.RecordJobDuration(context.Background(), "predict-loan-outcome", 120*time.Millisecond, "completed")
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestNew_TracingEnabled(t *testing.T) {
	o := New("loan-desk-test", TracingConfig{
		Enabled:           true,
		CollectorEndpoint: "http://127.0.0.1:1/api/traces",
		SampleRatio:       0.5,
	}, logger.NewTestLogger(t))
	require.NotNil(t, o.tracerProvider)

	_, span := o.StartSpan(context.Background(), "index-decision")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// The collector is unreachable; shutdown reports the export error
	// without hanging.
	_ = o.Shutdown(context.Background())
}
