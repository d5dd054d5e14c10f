// Package logger carries request-scoped log fields through context.Context.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// loggerFields holds structured logging fields extracted from context.
type loggerFields struct {
	keys   []string
	fields map[string]any
}

func (lf *loggerFields) clone() *loggerFields {
	out := &loggerFields{
		keys:   append([]string(nil), lf.keys...),
		fields: make(map[string]any, len(lf.fields)),
	}
	for k, v := range lf.fields {
		out.fields[k] = v
	}
	return out
}

func (lf *loggerFields) set(key string, value any) {
	if _, ok := lf.fields[key]; !ok {
		lf.keys = append(lf.keys, key)
	}
	lf.fields[key] = value
}

// toSlice 按写入顺序输出键值对。
func (lf *loggerFields) toSlice() []any {
	if len(lf.keys) == 0 {
		return nil
	}
	out := make([]any, 0, len(lf.keys)*2)
	for _, k := range lf.keys {
		out = append(out, k, lf.fields[k])
	}
	return out
}

func getLoggerFields(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return &loggerFields{fields: make(map[string]any)}
}

func withField(ctx context.Context, key string, value any) context.Context {
	lf := getLoggerFields(ctx).clone()
	lf.set(key, value)
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, "request_id", requestID)
}

// WithFields adds multiple custom fields to the context at once.
// An odd trailing key is ignored.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}

	lf := getLoggerFields(ctx).clone()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf.set(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// ExtractOpenTelemetryFields copies trace_id and span_id from the span
// context, if one is present.
func ExtractOpenTelemetryFields(ctx context.Context) context.Context {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ctx
	}

	lf := getLoggerFields(ctx).clone()
	lf.set("trace_id", spanCtx.TraceID().String())
	lf.set("span_id", spanCtx.SpanID().String())
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// GetContextFields retrieves all logger fields from context as a slice.
func GetContextFields(ctx context.Context) []any {
	return getLoggerFields(ctx).toSlice()
}

// GetLogger returns the global logger enriched with the context fields.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
