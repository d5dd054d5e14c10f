package biz

import (
	"context"
	"errors"

	"github.com/kart-io/medbot/pkg/llm"
)

var errEmptyVector = errors.New("embedding provider returned an empty vector")

// ProviderEmbedder adapts an llm.EmbeddingProvider to Embedder.
type ProviderEmbedder struct {
	provider llm.EmbeddingProvider
}

// NewProviderEmbedder 创建基于 LLM 嵌入供应商的 Embedder。
func NewProviderEmbedder(p llm.EmbeddingProvider) *ProviderEmbedder {
	return &ProviderEmbedder{provider: p}
}

// Embed embeds a single query.
func (e *ProviderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errEmptyVector
	}
	return vec, nil
}

// Name returns the provider name.
func (e *ProviderEmbedder) Name() string {
	return e.provider.Name()
}

// ProviderGenerator adapts an llm.ChatProvider to Generator.
type ProviderGenerator struct {
	provider llm.ChatProvider
}

// NewProviderGenerator 创建基于 LLM 对话供应商的 Generator。
func NewProviderGenerator(p llm.ChatProvider) *ProviderGenerator {
	return &ProviderGenerator{provider: p}
}

// Generate sends the system and user parts as two messages.
func (g *ProviderGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.System},
		{Role: llm.RoleUser, Content: prompt.User},
	}
	return g.provider.Chat(ctx, messages)
}

// Name returns the provider name.
func (g *ProviderGenerator) Name() string {
	return g.provider.Name()
}
