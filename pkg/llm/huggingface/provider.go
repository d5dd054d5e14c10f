// Package huggingface 提供 HuggingFace Inference API 的 Embedding 供应商实现。
// 使用 feature-extraction 管线为文本生成句向量。
package huggingface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/medbot/pkg/llm"
	"github.com/kart-io/medbot/pkg/utils/httpclient"
	"github.com/kart-io/medbot/pkg/utils/json"
)

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, NewProvider)
}

// Config HuggingFace 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey HuggingFace API Token。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型 ID。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// WaitForModel 如果模型正在加载，是否等待。
	WaitForModel bool `json:"wait_for_model" mapstructure:"wait_for_model"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://router.huggingface.co/hf-inference",
		EmbedModel:   "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:      30 * time.Second,
		WaitForModel: true,
	}
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 HuggingFace 供应商。
func NewProvider(configMap map[string]any) (llm.EmbeddingProvider, error) {
	cfg := DefaultConfig()

	if v, ok := llm.StringValue(configMap, "base_url"); ok {
		cfg.BaseURL = v
	}
	if v, ok := llm.StringValue(configMap, "api_key"); ok {
		cfg.APIKey = v
	}
	if v, ok := llm.StringValue(configMap, "embed_model"); ok {
		cfg.EmbedModel = v
	}
	if v, ok := llm.DurationValue(configMap, "timeout"); ok {
		cfg.Timeout = v
	}
	if v, ok := llm.IntValue(configMap, "max_retries"); ok {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["wait_for_model"].(bool); ok {
		cfg.WaitForModel = v
	}

	if cfg.APIKey == "" {
		return nil, errors.New("huggingface: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// embeddingRequest HuggingFace Feature Extraction API 请求体。
type embeddingRequest struct {
	Inputs  []string          `json:"inputs"`
	Options *embeddingOptions `json:"options,omitempty"`
}

type embeddingOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{Inputs: texts}
	if p.config.WaitForModel {
		reqBody.Options = &embeddingOptions{WaitForModel: true}
	}

	url := fmt.Sprintf("%s/models/%s/pipeline/feature-extraction",
		strings.TrimRight(p.config.BaseURL, "/"), p.config.EmbedModel)
	headers := map[string]string{"Authorization": "Bearer " + p.config.APIKey}

	var raw json.RawMessage
	if err := p.client.PostJSON(ctx, url, headers, reqBody, &raw); err != nil {
		return nil, fmt.Errorf("huggingface: %w", err)
	}

	embeddings, err := parseEmbeddings(raw)
	if err != nil {
		return nil, fmt.Errorf("huggingface: 解析响应失败: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("huggingface: 期望 %d 个向量，实际返回 %d 个", len(texts), len(embeddings))
	}
	return embeddings, nil
}

// parseEmbeddings 解析句向量 [][]float32，或对 token 级别的 [][][]float32 取平均。
func parseEmbeddings(raw []byte) ([][]float32, error) {
	var embeddings [][]float32
	err := json.Unmarshal(raw, &embeddings)
	if err == nil {
		return embeddings, nil
	}

	var tokenEmbeddings [][][]float32
	if err2 := json.Unmarshal(raw, &tokenEmbeddings); err2 != nil {
		return nil, err
	}

	embeddings = make([][]float32, len(tokenEmbeddings))
	for i, tokens := range tokenEmbeddings {
		embeddings[i] = meanPool(tokens)
	}
	return embeddings, nil
}

func meanPool(tokens [][]float32) []float32 {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]float32, len(tokens[0]))
	for _, token := range tokens {
		for j := 0; j < len(out) && j < len(token); j++ {
			out[j] += token[j]
		}
	}
	for j := range out {
		out[j] /= float32(len(tokens))
	}
	return out
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, llm.ErrEmptyEmbedding
	}
	return embeddings[0], nil
}
