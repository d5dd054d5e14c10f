package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medbot/pkg/utils/errors"
)

func withKeys(o *ServerOptions) *ServerOptions {
	o.EmbeddingOptions.APIKey = "hf-key"
	o.ChatOptions.APIKey = "gemini-key"
	o.VectorIndexOptions.APIKey = "milvus-token"
	return o
}

func TestNewServerOptionsDefaults(t *testing.T) {
	o := NewServerOptions()
	assert.Equal(t, "0.0.0.0:8000", o.HTTPOptions.Addr)
	assert.Equal(t, "huggingface", o.EmbeddingOptions.Provider)
	assert.Equal(t, "gemini", o.ChatOptions.Provider)
	assert.Equal(t, "gemini-1.5-flash", o.ChatOptions.Model)
	assert.Equal(t, "milvus", o.VectorIndexOptions.Backend)
	assert.Equal(t, "medical-chatbot", o.VectorIndexOptions.Name)
	assert.Equal(t, 3, o.RAGOptions.TopK)
	assert.False(t, o.CacheOptions.Enabled)
	assert.Equal(t, 1, o.ResilienceOptions.MaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *ServerOptions)
		wantErr string
	}{
		{name: "valid", mutate: func(o *ServerOptions) { withKeys(o) }},
		{
			name:    "missing llm key",
			mutate:  func(o *ServerOptions) { withKeys(o).ChatOptions.APIKey = "" },
			wantErr: "chat.api-key",
		},
		{
			name:    "missing embedding key",
			mutate:  func(o *ServerOptions) { withKeys(o).EmbeddingOptions.APIKey = "" },
			wantErr: "embedding.api-key",
		},
		{
			name:    "missing index key",
			mutate:  func(o *ServerOptions) { withKeys(o).VectorIndexOptions.APIKey = "" },
			wantErr: "vector-index.api-key",
		},
		{
			name: "local backends need no keys",
			mutate: func(o *ServerOptions) {
				o.EmbeddingOptions.Provider = "ollama"
				o.ChatOptions.Provider = "ollama"
				o.VectorIndexOptions.Backend = "chromem"
			},
		},
		{
			name: "write timeout below request timeout",
			mutate: func(o *ServerOptions) {
				withKeys(o)
				o.HTTPOptions.WriteTimeout = 30 * time.Second
				o.RAGOptions.RequestTimeout = time.Minute
			},
			wantErr: "http.write-timeout",
		},
		{
			name: "request timeout disabled",
			mutate: func(o *ServerOptions) {
				withKeys(o)
				o.HTTPOptions.WriteTimeout = 30 * time.Second
				o.RAGOptions.RequestTimeout = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewServerOptions()
			tt.mutate(o)
			require.NoError(t, o.Complete())

			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlags(t *testing.T) {
	fss := NewServerOptions().Flags()
	assert.Equal(t, []string{
		"http", "middleware", "log", "tracing", "embedding", "chat",
		"resilience", "vector-index", "cache", "rag",
	}, fss.Order)

	for section, name := range map[string]string{
		"http":         "http.addr",
		"chat":         "chat.api-key",
		"vector-index": "vector-index.name",
		"rag":          "rag.top-k",
	} {
		assert.NotNil(t, fss.FlagSet(section).Lookup(name), name)
	}
}

func TestConfig(t *testing.T) {
	o := NewServerOptions()
	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.RAGOptions, cfg.RAGOptions)
	assert.Same(t, o.VectorIndexOptions, cfg.VectorIndexOptions)
}
