// Package observability provides the access log middleware.
package observability

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	logctx "github.com/kart-io/medbot/pkg/infra/logger"
	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
)

// Logger returns a middleware that logs HTTP requests with default options.
func Logger() gin.HandlerFunc {
	return LoggerWithOptions(*mwopts.NewOptions().Logger)
}

// LoggerWithOptions 返回访问日志中间件。
// SkipPaths 中的路径（精确匹配，或以 "/*" 结尾的前缀匹配）不记录。
// 日志经 logger.GetLogger 输出，自动带上 request_id。
func LoggerWithOptions(opts mwopts.LoggerOptions) gin.HandlerFunc {
	skip := newPathMatcher(opts.SkipPaths)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip(path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		log := logctx.GetLogger(c.Request.Context())
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Warnw("HTTP Request", fields...)
		default:
			log.Infow("HTTP Request", fields...)
		}
	}
}

func newPathMatcher(paths []string) func(string) bool {
	exact := make(map[string]struct{}, len(paths))
	var prefixes []string
	for _, p := range paths {
		if strings.HasSuffix(p, "/*") {
			prefixes = append(prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		exact[p] = struct{}{}
	}

	return func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}
}
