package otel_test

import (
	"benzback/infras/otel"
	"benzback/shared/failure"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (otel.Otel, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	return otel.NewWithProvider(provider), recorder
}

func attributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	values := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		values[kv.Key] = kv.Value
	}

	return values
}

func traced(o otel.Otel, fail error) (err error) {
	_, scope := o.NewScope(context.Background(), "test", "test.traced")
	defer scope.End()
	defer scope.TraceIfError(&err)

	return fail
}

func TestTraceIfError_SeesNamedReturn(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantHTTP int64
	}{
		{name: "success", wantCode: codes.Unset},
		{name: "domain rejection", err: &failure.Failure{Code: http.StatusConflict, Message: "vehicle is not available"}, wantCode: codes.Error, wantHTTP: http.StatusConflict},
		{name: "fault", err: errors.New("connection reset"), wantCode: codes.Error, wantHTTP: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, recorder := newRecorder(t)

			_ = traced(o, tt.err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantCode, spans[0].Status().Code)

			if tt.err != nil {
				assert.Equal(t, tt.wantHTTP, attributes(spans[0])["error.code"].AsInt64())
			}
		})
	}
}

func TestSetAttribute_Types(t *testing.T) {
	o, recorder := newRecorder(t)

	_, scope := o.NewScope(context.Background(), "test", "test.attributes")
	scope.SetAttributes(map[string]any{
		"booking_id":  "b-1",
		"paid":        true,
		"attempts":    3,
		"odometer":    1520.5,
		"wait":        1500 * time.Millisecond,
		"roles":       []string{"renter", "admin"},
		"fallthrough": struct{ N int }{N: 7},
	})
	scope.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	values := attributes(spans[0])
	assert.Equal(t, "b-1", values["booking_id"].AsString())
	assert.True(t, values["paid"].AsBool())
	assert.Equal(t, int64(3), values["attempts"].AsInt64())
	assert.InDelta(t, 1520.5, values["odometer"].AsFloat64(), 0.001)
	assert.Equal(t, int64(1500), values["wait_ms"].AsInt64())
	assert.Equal(t, []string{"renter", "admin"}, values["roles"].AsStringSlice())
	assert.Equal(t, "{7}", values["fallthrough"].AsString())
}

func TestShutdown(t *testing.T) {
	o, _ := newRecorder(t)

	assert.NoError(t, o.Shutdown(context.Background()))
}
