// Package options contains flags and options for initializing the medbot server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/medbot/internal/medbot"
	cliflag "github.com/kart-io/medbot/pkg/app/cliflag"
	cacheopts "github.com/kart-io/medbot/pkg/options/cache"
	llmopts "github.com/kart-io/medbot/pkg/options/llm"
	logopts "github.com/kart-io/medbot/pkg/options/logger"
	middlewareopts "github.com/kart-io/medbot/pkg/options/middleware"
	ragopts "github.com/kart-io/medbot/pkg/options/rag"
	httpopts "github.com/kart-io/medbot/pkg/options/server/http"
	tracingopts "github.com/kart-io/medbot/pkg/options/tracing"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
	"github.com/kart-io/medbot/pkg/utils/errors"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// MiddlewareOptions contains HTTP middleware configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// ResilienceOptions contains retry and circuit breaker configuration
	// shared by both providers.
	ResilienceOptions *llmopts.ResilienceOptions `json:"resilience" mapstructure:"resilience"`

	// VectorIndexOptions contains vector index configuration.
	VectorIndexOptions *vectorindex.Options `json:"vector-index" mapstructure:"vector-index"`

	// CacheOptions contains embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// RAGOptions contains answer pipeline configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	index := vectorindex.NewOptions()
	index.Name = "medical-chatbot"

	return &ServerOptions{
		HTTPOptions:        httpopts.NewOptions(),
		MiddlewareOptions:  middlewareopts.NewOptions(),
		LogOptions:         logopts.NewOptions(),
		TracingOptions:     tracingopts.NewOptions(),
		EmbeddingOptions:   llmopts.NewEmbeddingOptions(),
		ChatOptions:        llmopts.NewChatOptions(),
		ResilienceOptions:  llmopts.NewResilienceOptions(),
		VectorIndexOptions: index,
		CacheOptions:       cacheopts.NewOptions(),
		RAGOptions:         ragopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.ResilienceOptions.AddFlags(fss.FlagSet("resilience"))
	o.VectorIndexOptions.AddFlags(fss.FlagSet("vector-index"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := o.VectorIndexOptions.Complete(); err != nil {
		return fmt.Errorf("vector-index: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid. Every
// problem is reported at once as errors.ErrConfiguration.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.ResilienceOptions.Validate()...)
	errs = append(errs, o.VectorIndexOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)

	// 写超时需覆盖整个问答请求，否则客户端收不到超时错误
	if t := o.RAGOptions.RequestTimeout; t > 0 && o.HTTPOptions.WriteTimeout <= t {
		errs = append(errs, fmt.Errorf("http.write-timeout (%s) must exceed rag.request-timeout (%s)",
			o.HTTPOptions.WriteTimeout, t))
	}

	if agg := utilerrors.NewAggregate(errs); agg != nil {
		return errors.ErrConfiguration.WithCause(agg)
	}
	return nil
}

// Config builds a medbot.Config based on ServerOptions.
func (o *ServerOptions) Config() (*medbot.Config, error) {
	return &medbot.Config{
		HTTPOptions:        o.HTTPOptions,
		MiddlewareOptions:  o.MiddlewareOptions,
		LogOptions:         o.LogOptions,
		TracingOptions:     o.TracingOptions,
		EmbeddingOptions:   o.EmbeddingOptions,
		ChatOptions:        o.ChatOptions,
		ResilienceOptions:  o.ResilienceOptions,
		VectorIndexOptions: o.VectorIndexOptions,
		CacheOptions:       o.CacheOptions,
		RAGOptions:         o.RAGOptions,
	}, nil
}
