package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/medbot/pkg/infra/logger"
	"github.com/kart-io/medbot/pkg/infra/tracing"
	errs "github.com/kart-io/medbot/pkg/utils/errors"
)

const tracerName = "medbot/biz"

// DefaultTopK is the number of passages retrieved per query.
const DefaultTopK = 3

var errEmptyAnswer = errors.New("language model returned an empty answer")

// PipelineConfig 问答流水线配置。
type PipelineConfig struct {
	// TopK 每次检索的段落数量。
	TopK int
	// Timeout 单次请求的总时限，0 表示不限制。
	Timeout time.Duration
}

// Pipeline runs embed, retrieve and generate in strict order for one query.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	template  *PromptTemplate
	observer  Observer
	config    PipelineConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver sets the stage observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithPromptTemplate overrides the built-in prompt template.
func WithPromptTemplate(t *PromptTemplate) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.template = t
		}
	}
}

// NewPipeline 创建问答流水线实例。
func NewPipeline(embedder Embedder, retriever Retriever, generator Generator, cfg PipelineConfig, opts ...Option) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	p := &Pipeline{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		template:  DefaultPromptTemplate(),
		observer:  nopObserver{},
		config:    cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer returns the generated answer for query, or exactly one *errors.Errno:
// ErrEmptyQuery, ErrEmbedding, ErrRetrieval, ErrGeneration or
// ErrRequestTimeout.
func (p *Pipeline) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errs.ErrEmptyQuery
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "rag.answer")
	defer span.End()
	span.SetAttributes(
		attribute.Int(tracing.RAGQueryLength, len(query)),
		attribute.Int(tracing.RAGTopK, p.config.TopK),
	)

	log := logger.GetLogger(ctx)
	start := time.Now()

	// 1. 向量化
	var vector []float32
	err := p.runStage(ctx, StageEmbed, errs.ErrEmbedding, func(ctx context.Context) error {
		var err error
		vector, err = p.embedder.Embed(ctx, query)
		if err == nil && len(vector) == 0 {
			err = errEmptyVector
		}
		return err
	})
	if err != nil {
		return "", err
	}

	// 2. 检索
	var passages []Passage
	err = p.runStage(ctx, StageRetrieve, errs.ErrRetrieval, func(ctx context.Context) error {
		var err error
		passages, err = p.retriever.Retrieve(ctx, vector, p.config.TopK)
		return err
	})
	if err != nil {
		return "", err
	}
	p.observer.ObservePassages(len(passages))
	span.SetAttributes(attribute.Int(tracing.RAGPassageCount, len(passages)))

	// 3. 生成
	prompt := p.template.Render(passages, query)
	var answer string
	err = p.runStage(ctx, StageGenerate, errs.ErrGeneration, func(ctx context.Context) error {
		var err error
		answer, err = p.generator.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(answer) == "" {
			err = errEmptyAnswer
		}
		return err
	})
	if err != nil {
		return "", err
	}

	log.Infow("answer generated",
		"query_length", len(query),
		"passages", len(passages),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return answer, nil
}

// runStage runs one blocking call inside its own span, records the outcome
// and maps any failure to stageErr. Only an expired request context yields
// ErrRequestTimeout; a provider's own client timeout is a stage failure.
func (p *Pipeline) runStage(ctx context.Context, stage string, stageErr *errs.Errno, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "rag."+stage)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.RAGStage, stage))

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		p.observer.ObserveStage(stage, OutcomeSuccess, elapsed.Seconds())
		return nil
	}

	tracing.RecordError(ctx, err)
	log := logger.GetLogger(ctx)

	switch reqErr := ctx.Err(); {
	case errors.Is(reqErr, context.DeadlineExceeded):
		p.observer.ObserveStage(stage, OutcomeTimeout, elapsed.Seconds())
		log.Warnw("stage timed out", "stage", stage, "latency_ms", elapsed.Milliseconds())
		return errs.ErrRequestTimeout.WithCause(err)
	case errors.Is(reqErr, context.Canceled):
		// 客户端断开，不计入供应商失败
		p.observer.ObserveStage(stage, OutcomeCanceled, elapsed.Seconds())
		log.Warnw("stage canceled", "stage", stage, "latency_ms", elapsed.Milliseconds())
		return stageErr.WithCause(err)
	}

	p.observer.ObserveStage(stage, OutcomeError, elapsed.Seconds())
	log.Errorw("stage failed", "stage", stage, "latency_ms", elapsed.Milliseconds(), "error", err.Error())
	return stageErr.WithCause(err)
}
