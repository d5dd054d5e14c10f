// Package llm provides embedding and chat provider configuration options.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	"github.com/kart-io/medbot/pkg/validator"
)

var (
	_ options.IOptions = (*ProviderOptions)(nil)
	_ options.IOptions = (*ResilienceOptions)(nil)
)

// 需要 API Key 的远程供应商。
var keyRequired = map[string]bool{
	"huggingface": true,
	"gemini":      true,
	"openai":      true,
}

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（huggingface, gemini, openai, ollama）。
	Provider string `json:"provider" mapstructure:"provider" validate:"oneof=huggingface gemini openai ollama"`

	// BaseURL API 基础地址，为空时使用供应商默认地址。
	BaseURL string `json:"base-url" mapstructure:"base-url" validate:"omitempty,url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称，为空时使用供应商默认模型。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// MaxRetries 传输层重试次数（仅 HTTP 供应商）。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries" validate:"gte=0"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// Temperature 采样温度（仅 OpenAI 兼容接口的 Chat）。
	Temperature float64 `json:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens 最大生成 token 数，0 表示不限制。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens" validate:"gte=0"`

	section string
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "huggingface",
		Model:    "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:  30 * time.Second,
		section:  "embedding",
	}
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:    "gemini",
		Model:       "gemini-1.5-flash",
		Timeout:     60 * time.Second,
		Temperature: 0.7,
		section:     "chat",
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	m := map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
		"temperature":  o.Temperature,
		"max_tokens":   o.MaxTokens,
	}
	if o.section == "chat" {
		m["chat_model"] = o.Model
	} else {
		m["embed_model"] = o.Model
	}
	return m
}

// AddFlags adds flags for the provider under "<section>.".
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, o.section)...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name (huggingface, gemini, openai, ollama).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL, empty for the provider default.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name, empty for the provider default.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Per-call timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Transport-level retries for HTTP providers.")
	if o.section == "chat" {
		fs.StringVar(&o.Organization, p+"organization", o.Organization, "OpenAI organization ID (optional).")
		fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature.")
		fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum generated tokens, 0 for unlimited.")
	}
}

// Validate validates the provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := validator.Struct(o)
	if keyRequired[o.Provider] && strings.TrimSpace(o.APIKey) == "" {
		errs = append(errs, fmt.Errorf("%s.api-key is required for %s provider", o.section, o.Provider))
	}
	if o.section == "chat" && o.Provider == "huggingface" {
		errs = append(errs, fmt.Errorf("huggingface only provides embeddings"))
	}
	return errs
}

// Section 返回配置段名称（embedding 或 chat）。
func (o *ProviderOptions) Section() string {
	return o.section
}

// ResilienceOptions 供应商调用的重试与熔断配置，默认关闭。
type ResilienceOptions struct {
	MaxAttempts  int           `json:"max-attempts" mapstructure:"max-attempts" validate:"gte=1"`
	InitialDelay time.Duration `json:"initial-delay" mapstructure:"initial-delay" validate:"gt=0"`
	MaxDelay     time.Duration `json:"max-delay" mapstructure:"max-delay" validate:"gtefield=InitialDelay"`
	Multiplier   float64       `json:"multiplier" mapstructure:"multiplier" validate:"gte=1"`

	CircuitBreaker   bool          `json:"circuit-breaker" mapstructure:"circuit-breaker"`
	MaxFailures      int           `json:"max-failures" mapstructure:"max-failures" validate:"gte=1"`
	BreakerTimeout   time.Duration `json:"breaker-timeout" mapstructure:"breaker-timeout" validate:"gt=0"`
	HalfOpenMaxCalls int           `json:"half-open-max-calls" mapstructure:"half-open-max-calls" validate:"gte=1"`
}

// NewResilienceOptions 创建默认配置：单次尝试，不启用熔断。
func NewResilienceOptions() *ResilienceOptions {
	return &ResilienceOptions{
		MaxAttempts:      1,
		InitialDelay:     500 * time.Millisecond,
		MaxDelay:         10 * time.Second,
		Multiplier:       2,
		MaxFailures:      5,
		BreakerTimeout:   30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// AddFlags adds flags for resilience options.
func (o *ResilienceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "resilience")...)
	fs.IntVar(&o.MaxAttempts, p+"max-attempts", o.MaxAttempts, "Attempts per provider call, 1 disables retries.")
	fs.DurationVar(&o.InitialDelay, p+"initial-delay", o.InitialDelay, "Delay before the first retry.")
	fs.DurationVar(&o.MaxDelay, p+"max-delay", o.MaxDelay, "Upper bound for the retry delay.")
	fs.Float64Var(&o.Multiplier, p+"multiplier", o.Multiplier, "Backoff multiplier.")
	fs.BoolVar(&o.CircuitBreaker, p+"circuit-breaker", o.CircuitBreaker, "Enable a circuit breaker per provider.")
	fs.IntVar(&o.MaxFailures, p+"max-failures", o.MaxFailures, "Consecutive failures that open the breaker.")
	fs.DurationVar(&o.BreakerTimeout, p+"breaker-timeout", o.BreakerTimeout, "How long the breaker stays open.")
	fs.IntVar(&o.HalfOpenMaxCalls, p+"half-open-max-calls", o.HalfOpenMaxCalls, "Probe calls allowed while half-open.")
}

// Validate validates the resilience options.
func (o *ResilienceOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return validator.Struct(o)
}
