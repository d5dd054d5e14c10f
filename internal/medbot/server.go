// Package medbot wires the medical chat service together: providers, the
// vector index, the answer pipeline and the HTTP server.
package medbot

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	"github.com/spf13/viper"

	"github.com/kart-io/medbot/internal/medbot/biz"
	"github.com/kart-io/medbot/internal/medbot/handler"
	"github.com/kart-io/medbot/internal/medbot/metrics"
	"github.com/kart-io/medbot/internal/medbot/router"
	"github.com/kart-io/medbot/internal/medbot/store"
	"github.com/kart-io/medbot/pkg/component/redis"
	"github.com/kart-io/medbot/pkg/component/storage"
	"github.com/kart-io/medbot/pkg/infra/config"
	logctx "github.com/kart-io/medbot/pkg/infra/logger"
	"github.com/kart-io/medbot/pkg/infra/server"
	httpserver "github.com/kart-io/medbot/pkg/infra/server/transport/http"
	"github.com/kart-io/medbot/pkg/infra/tracing"
	"github.com/kart-io/medbot/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/medbot/pkg/llm/gemini"
	_ "github.com/kart-io/medbot/pkg/llm/huggingface"
	_ "github.com/kart-io/medbot/pkg/llm/ollama"
	_ "github.com/kart-io/medbot/pkg/llm/openai"
	"github.com/kart-io/medbot/pkg/llm/resilience"
	cacheopts "github.com/kart-io/medbot/pkg/options/cache"
	llmopts "github.com/kart-io/medbot/pkg/options/llm"
	logopts "github.com/kart-io/medbot/pkg/options/logger"
	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
	ragopts "github.com/kart-io/medbot/pkg/options/rag"
	httpopts "github.com/kart-io/medbot/pkg/options/server/http"
	tracingopts "github.com/kart-io/medbot/pkg/options/tracing"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
	errs "github.com/kart-io/medbot/pkg/utils/errors"
)

// Name is the name of the application.
const Name = "medbot"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions        *httpopts.Options
	MiddlewareOptions  *mwopts.Options
	LogOptions         *logopts.Options
	TracingOptions     *tracingopts.Options
	EmbeddingOptions   *llmopts.ProviderOptions
	ChatOptions        *llmopts.ProviderOptions
	ResilienceOptions  *llmopts.ResilienceOptions
	VectorIndexOptions *vectorindex.Options
	CacheOptions       *cacheopts.Options
	RAGOptions         *ragopts.Options

	// Viper 为已加载配置文件的实例，用于日志配置热更新；可为空。
	Viper *viper.Viper
	// Banner 启动信息的输出位置，为空时输出到 stdout。
	Banner io.Writer
}

// Server represents the medbot server.
type Server struct {
	srv      *server.Manager
	http     *httpserver.Server
	health   *handler.HealthHandler
	clients  *storage.Manager
	tracer   *tracing.Provider
	logOpts  *logopts.Options
	viper    *viper.Viper
	pipeline *biz.Pipeline
}

// NewServer initializes and returns a new Server instance. Any failure is
// returned as errors.ErrConfiguration and leaves nothing open.
func (cfg *Config) NewServer(ctx context.Context) (s *Server, err error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.WithField("service.name", Name)
	cfg.LogOptions.WithField("service.version", version.Get().GitVersion)
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, errs.ErrConfiguration.WithCause(fmt.Errorf("failed to initialize logger: %w", err))
	}
	logger.Info("Starting medbot service...")

	// 2. 初始化链路追踪
	cfg.TracingOptions.ServiceVersion = version.Get().GitVersion
	tracer, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, errs.ErrConfiguration.WithCause(fmt.Errorf("failed to initialize tracing: %w", err))
	}

	clients := storage.NewManager()
	defer func() {
		if err != nil {
			_ = clients.CloseAll()
			_ = tracer.Shutdown(context.Background())
		}
	}()

	// 3. 初始化 LLM 供应商
	embedder, err := cfg.newEmbeddingProvider(ctx, clients)
	if err != nil {
		return nil, errs.ErrConfiguration.WithCause(err)
	}
	chat, err := cfg.newChatProvider()
	if err != nil {
		return nil, errs.ErrConfiguration.WithCause(err)
	}

	// 4. 初始化向量索引
	index, err := store.New(ctx, cfg.VectorIndexOptions)
	if err != nil {
		return nil, errs.ErrConfiguration.WithCause(fmt.Errorf("failed to initialize vector index: %w", err))
	}
	if err := clients.Register("vector-index", index); err != nil {
		_ = index.Close()
		return nil, errs.ErrConfiguration.WithCause(err)
	}
	logger.Infow("Vector index initialized",
		"backend", cfg.VectorIndexOptions.Backend,
		"name", cfg.VectorIndexOptions.Name,
	)

	// 5. 初始化问答流水线
	template, err := biz.LoadPromptTemplate(cfg.RAGOptions.PromptFile)
	if err != nil {
		return nil, errs.ErrConfiguration.WithCause(err)
	}
	m := metrics.New()
	pipeline := biz.NewPipeline(
		biz.NewProviderEmbedder(embedder),
		index,
		biz.NewProviderGenerator(chat),
		biz.PipelineConfig{
			TopK:    cfg.RAGOptions.TopK,
			Timeout: cfg.RAGOptions.RequestTimeout,
		},
		biz.WithPromptTemplate(template),
		biz.WithObserver(m),
	)
	logger.Infow("Answer pipeline initialized",
		"top_k", cfg.RAGOptions.TopK,
		"request_timeout", cfg.RAGOptions.RequestTimeout.String(),
		"prompt_file", cfg.RAGOptions.PromptFile,
		"legacy_status", cfg.RAGOptions.LegacyStatus,
	)

	// 6. 初始化 Handler 与 HTTP 服务器
	chatHandler := handler.NewChatHandler(pipeline,
		handler.WithAnswerObserver(m),
		handler.WithLegacyStatus(cfg.RAGOptions.LegacyStatus),
	)
	healthHandler := handler.NewHealthHandler(clients)

	panicCode := strconv.Itoa(errs.ErrPanic.Code)
	httpSrv := httpserver.NewServer(cfg.HTTPOptions, cfg.MiddlewareOptions, func(*gin.Context, any, []byte) {
		m.ObserveAnswer(panicCode)
	})
	router.Register(httpSrv.Engine(), router.Handlers{
		Chat:    chatHandler,
		Health:  healthHandler,
		Metrics: m.Handler(),
	})

	mgr := server.NewManager(cfg.HTTPOptions.ShutdownTimeout)
	mgr.AddServer(httpSrv)

	logger.Info("medbot service is ready")
	return &Server{
		srv:      mgr,
		http:     httpSrv,
		health:   healthHandler,
		clients:  clients,
		tracer:   tracer,
		logOpts:  cfg.LogOptions,
		viper:    cfg.Viper,
		pipeline: pipeline,
	}, nil
}

// newEmbeddingProvider builds the embedding provider, wrapped with retries
// and then with the Redis cache when enabled. Cache hits skip retries.
func (cfg *Config) newEmbeddingProvider(ctx context.Context, clients *storage.Manager) (llm.EmbeddingProvider, error) {
	provider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	if retry, cb := cfg.resilienceConfig(); retry != nil || cb != nil {
		provider = resilience.WrapEmbedding(provider, retry, cb)
	}

	if !cfg.CacheOptions.Enabled {
		logger.Info("Embedding cache is disabled")
		return provider, nil
	}

	rdb, err := redis.New(ctx, cfg.CacheOptions.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}
	if err := clients.Register("redis", rdb); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logger.Infow("Embedding cache initialized",
		"addr", fmt.Sprintf("%s:%d", cfg.CacheOptions.Redis.Host, cfg.CacheOptions.Redis.Port),
		"ttl", cfg.CacheOptions.TTL.String(),
	)
	return llm.NewCachedEmbeddingProvider(provider, rdb.Client(), &llm.EmbeddingCacheConfig{
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
		Model:     cfg.EmbeddingOptions.Model,
	}), nil
}

func (cfg *Config) newChatProvider() (llm.ChatProvider, error) {
	provider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	if retry, cb := cfg.resilienceConfig(); retry != nil || cb != nil {
		return resilience.WrapChat(provider, retry, cb), nil
	}
	return provider, nil
}

// resilienceConfig returns nil configs for whatever is switched off.
func (cfg *Config) resilienceConfig() (*resilience.RetryConfig, *resilience.CircuitBreakerConfig) {
	o := cfg.ResilienceOptions
	if o == nil {
		return nil, nil
	}

	var retry *resilience.RetryConfig
	if o.MaxAttempts > 1 {
		retry = &resilience.RetryConfig{
			MaxAttempts:  o.MaxAttempts,
			InitialDelay: o.InitialDelay,
			MaxDelay:     o.MaxDelay,
			Multiplier:   o.Multiplier,
		}
	}
	var cb *resilience.CircuitBreakerConfig
	if o.CircuitBreaker {
		cb = &resilience.CircuitBreakerConfig{
			MaxFailures:      o.MaxFailures,
			Timeout:          o.BreakerTimeout,
			HalfOpenMaxCalls: o.HalfOpenMaxCalls,
		}
	}
	return retry, cb
}

// Run serves until ctx is canceled, then shuts down and releases every
// client.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	if s.viper != nil && s.viper.ConfigFileUsed() != "" {
		watcher := config.NewWatcher(s.viper)
		logctx.NewReloadableLogger(s.logOpts).RegisterWithWatcher(watcher, "logger", "log")
		watcher.Start()
		defer watcher.Stop()
	}

	s.health.SetReady(true)
	defer s.health.SetReady(false)

	logger.Infow("HTTP server listening", "addr", s.http.Addr())
	return s.srv.Run(ctx)
}

// Pipeline returns the answer pipeline.
func (s *Server) Pipeline() *biz.Pipeline {
	return s.pipeline
}

// HTTPServer returns the HTTP server.
func (s *Server) HTTPServer() *httpserver.Server {
	return s.http
}

func (s *Server) close() {
	if err := s.clients.CloseAll(); err != nil {
		logger.Warnw("failed to close clients", "error", err.Error())
	}
	if err := s.tracer.Shutdown(context.Background()); err != nil {
		logger.Warnw("failed to shutdown tracer provider", "error", err.Error())
	}
}

func printBanner(cfg *Config) {
	w := cfg.Banner
	if w == nil {
		w = os.Stdout
	}

	cache := "disabled"
	if cfg.CacheOptions.Enabled && cfg.CacheOptions.Redis != nil {
		cache = fmt.Sprintf("redis (%s:%d)", cfg.CacheOptions.Redis.Host, cfg.CacheOptions.Redis.Port)
	}

	fmt.Fprintf(w, "Starting %s %s...\n", Name, version.Get().GitVersion)
	fmt.Fprintf(w, "  Listen:       %s\n", cfg.HTTPOptions.Addr)
	fmt.Fprintf(w, "  Embedding:    %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Fprintf(w, "  Chat:         %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Fprintf(w, "  Vector index: %s (%s)\n", cfg.VectorIndexOptions.Backend, cfg.VectorIndexOptions.Name)
	fmt.Fprintf(w, "  Cache:        %s\n", cache)
	fmt.Fprintf(w, "  Top K:        %d\n", cfg.RAGOptions.TopK)
}
