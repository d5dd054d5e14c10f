// Package cache provides embedding cache configuration options.
package cache

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	redisopts "github.com/kart-io/medbot/pkg/options/redis"
	"github.com/kart-io/medbot/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// Options 查询向量缓存配置，默认关闭。
type Options struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl" validate:"gt=0"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix" validate:"notblank"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis" validate:"-"`
}

// NewOptions 创建默认缓存配置。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       24 * time.Hour,
		KeyPrefix: "medbot:emb:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds flags under "<prefixes>.cache.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefixes = append(prefixes, "cache")
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Cache query embeddings in Redis.")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Cache TTL duration.")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Cache key prefix.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, prefixes...)
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}

// Validate validates the cache options. Nothing is checked while disabled.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	errs := validator.Struct(o)
	return append(errs, o.Redis.Validate()...)
}
