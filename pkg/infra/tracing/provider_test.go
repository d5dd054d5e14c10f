package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	options "github.com/kart-io/medbot/pkg/options/tracing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		enabled bool
		wantErr bool
	}{
		{name: "disabled", mutate: func(*Options) {}},
		{name: "noop exporter", mutate: func(o *Options) { o.Enabled = true; o.ExporterType = options.ExporterNoop }, enabled: true},
		{name: "invalid", mutate: func(o *Options) { o.Enabled = true; o.SamplerType = "sometimes" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.mutate(opts)

			p, err := NewProvider(context.Background(), opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, p.Enabled())
			assert.NotNil(t, p.Tracer("test"))
			assert.NoError(t, p.Shutdown(context.Background()))
		})
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	assert.Empty(t, TraceIDFromContext(context.Background()))

	ctx, span := StartSpan(context.Background(), "test", "rag.embed")
	AddSpanAttributes(ctx, attribute.String(RAGStage, "embed"))
	RecordError(ctx, errors.New("quota exceeded"))
	RecordError(ctx, nil)
	assert.Len(t, TraceIDFromContext(ctx), 32)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "rag.embed", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "quota exceeded", spans[0].Status().Description)
}
