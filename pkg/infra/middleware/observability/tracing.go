package observability

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	logctx "github.com/kart-io/medbot/pkg/infra/logger"
	"github.com/kart-io/medbot/pkg/infra/middleware/requestutil"
	"github.com/kart-io/medbot/pkg/infra/tracing"
	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
)

// TracerName is the name of the tracer for HTTP middleware.
const TracerName = "github.com/kart-io/medbot/pkg/infra/middleware"

// Tracing creates a server span per request.
//
// 从请求头提取 W3C Trace Context，记录方法、路由、状态码，5xx 时记录错误。
// SkipPaths 中的路径不创建 span。trace_id/span_id 同时写入日志字段。
func Tracing(opts mwopts.TracingOptions) gin.HandlerFunc {
	skip := newPathMatcher(opts.SkipPaths)

	return func(c *gin.Context) {
		req := c.Request
		if skip(req.URL.Path) {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}
		ctx, span := tracing.StartSpanWithKind(ctx, TracerName, req.Method+" "+route, trace.SpanKindServer)
		defer span.End()

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(req.Method),
			semconv.HTTPRoute(route),
			attribute.String(tracing.HTTPClientIP, c.ClientIP()),
		}
		if requestID := requestutil.GetRequestID(req.Context()); requestID != "" {
			attrs = append(attrs, attribute.String(tracing.HTTPRequestID, requestID))
		}
		span.SetAttributes(attrs...)

		c.Request = req.WithContext(logctx.ExtractOpenTelemetryFields(ctx))
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.RecordError(fmt.Errorf("HTTP %d: %s", status, http.StatusText(status)))
		}
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
