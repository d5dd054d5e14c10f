// Package middleware provides HTTP middleware configuration options.
package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	"github.com/kart-io/medbot/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// Options contains all middleware configuration.
type Options struct {
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
	Recovery  *RecoveryOptions  `json:"recovery" mapstructure:"recovery"`
	Tracing   *TracingOptions   `json:"tracing" mapstructure:"tracing"`
}

// RequestIDOptions defines request ID middleware options.
type RequestIDOptions struct {
	Header string `json:"header" mapstructure:"header" validate:"notblank"`
	// GeneratorType 指定 ID 生成器类型: ulid（默认）或 hex。
	GeneratorType string `json:"generator" mapstructure:"generator" validate:"oneof=ulid hex"`
}

// LoggerOptions defines access log middleware options.
type LoggerOptions struct {
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// RecoveryOptions defines recovery middleware options.
type RecoveryOptions struct {
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
}

// TracingOptions defines tracing middleware options.
type TracingOptions struct {
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewOptions creates default middleware options.
func NewOptions() *Options {
	return &Options{
		RequestID: &RequestIDOptions{
			Header:        "X-Request-ID",
			GeneratorType: "ulid",
		},
		Logger: &LoggerOptions{
			SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
		},
		Recovery: &RecoveryOptions{},
		Tracing: &TracingOptions{
			SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
		},
	}
}

// AddFlags adds flags under "<prefixes>.middleware.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "middleware")...)
	fs.StringVar(&o.RequestID.Header, p+"request-id.header", o.RequestID.Header, "Request ID header name.")
	fs.StringVar(&o.RequestID.GeneratorType, p+"request-id.generator", o.RequestID.GeneratorType, "Request ID generator (ulid or hex).")
	fs.StringSliceVar(&o.Logger.SkipPaths, p+"logger.skip-paths", o.Logger.SkipPaths, "Paths excluded from the access log.")
	fs.BoolVar(&o.Recovery.EnableStackTrace, p+"recovery.enable-stack-trace", o.Recovery.EnableStackTrace, "Include the stack trace in panic responses (never in production).")
	fs.StringSliceVar(&o.Tracing.SkipPaths, p+"tracing.skip-paths", o.Tracing.SkipPaths, "Paths that get no server span.")
}

// Validate validates the middleware options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	return validator.Struct(o)
}
