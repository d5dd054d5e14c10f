// Package resilience provides the panic recovery middleware.
package resilience

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	logctx "github.com/kart-io/medbot/pkg/infra/logger"
	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
	"github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/response"
)

// PanicHandler 定义 panic 处理器类型。
type PanicHandler func(ctx *gin.Context, err any, stack []byte)

// Recovery returns a middleware that recovers from panics with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewOptions().Recovery, nil)
}

// RecoveryWithOptions 返回 Recovery 中间件。
// 完整堆栈总是写入日志；仅在非生产环境且 EnableStackTrace 时返回给客户端。
// onPanic 可选，用于指标或告警。
func RecoveryWithOptions(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	withStack := validateStackTraceConfig(opts.EnableStackTrace, isProductionEnvironment())

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			logctx.GetLogger(c.Request.Context()).Errorw("panic recovered",
				"panic", r,
				"stack_trace", string(stack),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			if onPanic != nil {
				onPanic(c, r, stack)
			}

			err := errors.ErrPanic.WithCause(fmt.Errorf("panic: %v", r))
			if withStack {
				err = err.WithMessagef("panic: %v\n%s", r, stack)
			}
			response.Fail(c, err)
		}()
		c.Next()
	}
}

func isProductionEnvironment() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch env {
	case "production", "prod", "PRODUCTION", "PROD":
		return true
	default:
		return false
	}
}

func validateStackTraceConfig(enableStackTrace bool, isProd bool) bool {
	if isProd && enableStackTrace {
		logger.Warn("Stack trace is enabled but running in production environment, it will only be logged")
		return false
	}
	return enableStackTrace
}
