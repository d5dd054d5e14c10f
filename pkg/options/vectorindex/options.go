// Package vectorindex provides options for the vector index queried by the
// retriever.
package vectorindex

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	milvusopts "github.com/kart-io/medbot/pkg/options/milvus"
	pgopts "github.com/kart-io/medbot/pkg/options/postgres"
	"github.com/kart-io/medbot/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// Supported backends.
const (
	BackendMilvus   = "milvus"
	BackendQdrant   = "qdrant"
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"
)

// Options contains vector index configuration.
type Options struct {
	// Backend selects the index implementation.
	Backend string `json:"backend" mapstructure:"backend" validate:"oneof=milvus qdrant chromem pgvector"`

	// Name is the collection (or table) holding the passages.
	Name string `json:"name" mapstructure:"name" validate:"notblank"`

	// APIKey authenticates against hosted indexes.
	APIKey string `json:"-" mapstructure:"api-key"`

	// TextField is the metadata field carrying the passage text.
	TextField string `json:"text-field" mapstructure:"text-field" validate:"notblank"`

	// 各后端配置，只校验选中的后端。
	Milvus   *milvusopts.Options `json:"milvus" mapstructure:"milvus" validate:"-"`
	Qdrant   *QdrantOptions      `json:"qdrant" mapstructure:"qdrant" validate:"-"`
	Chromem  *ChromemOptions     `json:"chromem" mapstructure:"chromem" validate:"-"`
	Postgres *PGVectorOptions    `json:"postgres" mapstructure:"postgres" validate:"-"`
}

// QdrantOptions contains Qdrant gRPC client configuration.
type QdrantOptions struct {
	Host    string        `json:"host" mapstructure:"host" validate:"notblank"`
	Port    int           `json:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	UseTLS  bool          `json:"use-tls" mapstructure:"use-tls"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// ChromemOptions points at a persistent chromem-go database directory.
type ChromemOptions struct {
	Path     string `json:"path" mapstructure:"path" validate:"notblank"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// PGVectorOptions extends the PostgreSQL connection with the column that
// holds the embedding.
type PGVectorOptions struct {
	*pgopts.Options `mapstructure:",squash"`

	EmbeddingColumn string `json:"embedding-column" mapstructure:"embedding-column" validate:"notblank"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:   BackendMilvus,
		TextField: "text",
		Milvus:    milvusopts.NewOptions(),
		Qdrant: &QdrantOptions{
			Host:    "localhost",
			Port:    6334,
			Timeout: 10 * time.Second,
		},
		Chromem: &ChromemOptions{
			Path: "data/chromem",
		},
		Postgres: &PGVectorOptions{
			Options:         pgopts.NewOptions(),
			EmbeddingColumn: "embedding",
		},
	}
}

// Complete fills secrets that may come from the environment.
func (o *Options) Complete() error {
	if o.Postgres != nil && o.Postgres.Options != nil {
		return o.Postgres.Options.Complete()
	}
	return nil
}

// RequiresAPIKey reports whether the selected backend is a hosted index
// that needs vector-index.api-key.
func (o *Options) RequiresAPIKey() bool {
	return o.Backend == BackendMilvus || o.Backend == BackendQdrant
}

// AddFlags adds flags under "<prefixes>.vector-index.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefixes = append(prefixes, "vector-index")
	p := options.Join(prefixes...)
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Vector index backend (milvus, qdrant, chromem, pgvector).")
	fs.StringVar(&o.Name, p+"name", o.Name, "Collection or table holding the indexed passages.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "API key (token) for hosted indexes.")
	fs.StringVar(&o.TextField, p+"text-field", o.TextField, "Field carrying the passage text.")

	o.Milvus.AddFlags(fs, prefixes...)

	q := p + "qdrant."
	fs.StringVar(&o.Qdrant.Host, q+"host", o.Qdrant.Host, "Qdrant host.")
	fs.IntVar(&o.Qdrant.Port, q+"port", o.Qdrant.Port, "Qdrant gRPC port.")
	fs.BoolVar(&o.Qdrant.UseTLS, q+"use-tls", o.Qdrant.UseTLS, "Use TLS for the Qdrant connection.")
	fs.DurationVar(&o.Qdrant.Timeout, q+"timeout", o.Qdrant.Timeout, "Qdrant connection check timeout.")

	c := p + "chromem."
	fs.StringVar(&o.Chromem.Path, c+"path", o.Chromem.Path, "Directory of the persistent chromem database.")
	fs.BoolVar(&o.Chromem.Compress, c+"compress", o.Chromem.Compress, "Whether the chromem files are gzip compressed.")

	o.Postgres.Options.AddFlags(fs, prefixes...)
	fs.StringVar(&o.Postgres.EmbeddingColumn, p+"postgres.embedding-column", o.Postgres.EmbeddingColumn, "pgvector column holding the embedding.")
}

// Validate validates the vector index options. Only the sub-options of the
// selected backend are checked.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	errs := validator.Struct(o)
	if o.RequiresAPIKey() && strings.TrimSpace(o.APIKey) == "" {
		errs = append(errs, fmt.Errorf("vector-index.api-key is required for %s backend", o.Backend))
	}

	switch o.Backend {
	case BackendMilvus:
		errs = append(errs, o.Milvus.Validate()...)
	case BackendQdrant:
		errs = append(errs, validator.Struct(o.Qdrant)...)
	case BackendChromem:
		errs = append(errs, validator.Struct(o.Chromem)...)
	case BackendPGVector:
		errs = append(errs, validator.Struct(o.Postgres)...)
	}
	return errs
}
