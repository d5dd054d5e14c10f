package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kart-io/medbot/pkg/llm"
	"github.com/kart-io/medbot/pkg/utils/httpclient"
)

// EmbeddingProvider 带重试和熔断的 Embedding Provider 包装器。
type EmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// WrapEmbedding 包装 Embedding Provider，cbConfig 为 nil 时不启用熔断。
func WrapEmbedding(provider llm.EmbeddingProvider, retry *RetryConfig, cbConfig *CircuitBreakerConfig) *EmbeddingProvider {
	w := &EmbeddingProvider{provider: provider, retry: retry}
	if cbConfig != nil {
		w.cb = NewCircuitBreaker("embedding:"+provider.Name(), cbConfig)
	}
	return w
}

// Embed 为多个文本生成向量嵌入（带重试和熔断）。
func (r *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.Embed(ctx, texts)
		return err
	})
	return result, err
}

// EmbedSingle 为单个文本生成向量嵌入（带重试和熔断）。
func (r *EmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.EmbedSingle(ctx, text)
		return err
	})
	return result, err
}

// Name 返回底层供应商名称。
func (r *EmbeddingProvider) Name() string {
	return r.provider.Name()
}

// CircuitBreaker 获取熔断器实例，未启用时为 nil。
func (r *EmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// ChatProvider 带重试和熔断的 Chat Provider 包装器。
type ChatProvider struct {
	provider llm.ChatProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// WrapChat 包装 Chat Provider，cbConfig 为 nil 时不启用熔断。
func WrapChat(provider llm.ChatProvider, retry *RetryConfig, cbConfig *CircuitBreakerConfig) *ChatProvider {
	w := &ChatProvider{provider: provider, retry: retry}
	if cbConfig != nil {
		w.cb = NewCircuitBreaker("chat:"+provider.Name(), cbConfig)
	}
	return w
}

// Chat 进行多轮对话（带重试和熔断）。
func (r *ChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var result string
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.Chat(ctx, messages)
		return err
	})
	return result, err
}

// Name 返回底层供应商名称。
func (r *ChatProvider) Name() string {
	return r.provider.Name()
}

// CircuitBreaker 获取熔断器实例，未启用时为 nil。
func (r *ChatProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// IsRetryableError 判断错误是否可重试：网络错误、408、429 和 5xx。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitBreakerOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
