// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/medbot/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
)

// HeaderXRequestID is re-exported from requestutil.
const HeaderXRequestID = requestutil.HeaderXRequestID

// RequestID returns a middleware that adds a unique request ID to each request.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewOptions().RequestID, nil)
}

// RequestIDWithOptions 返回 RequestID 中间件。
// 请求头已携带 ID 时沿用，否则由 generator 生成；generator 为 nil 时按
// opts.GeneratorType 创建。ID 写入响应头和请求 context。
func RequestIDWithOptions(opts mwopts.RequestIDOptions, generator requestutil.IDGenerator) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = HeaderXRequestID
	}
	if generator == nil {
		generator = requestutil.NewGenerator(opts.GeneratorType)
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(header)
		if requestID == "" {
			requestID = generator.Generate()
		}

		c.Header(header, requestID)
		c.Request = c.Request.WithContext(requestutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// GetRequestID is re-exported from requestutil.
var GetRequestID = requestutil.GetRequestID
