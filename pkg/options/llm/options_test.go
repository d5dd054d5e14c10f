package llm

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    func() *ProviderOptions
		wantErr int
	}{
		{
			name:    "huggingface needs key",
			opts:    NewEmbeddingOptions,
			wantErr: 1,
		},
		{
			name: "ollama needs no key",
			opts: func() *ProviderOptions {
				o := NewChatOptions()
				o.Provider = "ollama"
				return o
			},
		},
		{
			name: "huggingface cannot chat",
			opts: func() *ProviderOptions {
				o := NewChatOptions()
				o.Provider = "huggingface"
				o.APIKey = "hf_x"
				return o
			},
			wantErr: 1,
		},
		{
			name: "bad timeout and provider",
			opts: func() *ProviderOptions {
				o := NewEmbeddingOptions()
				o.Provider = "pinecone"
				o.Timeout = 0
				return o
			},
			wantErr: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.opts().Validate(), tt.wantErr)
		})
	}
}

func TestProviderOptionsFlags(t *testing.T) {
	emb, chat := NewEmbeddingOptions(), NewChatOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	emb.AddFlags(fs)
	chat.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--embedding.provider=openai",
		"--embedding.api-key=sk-test",
		"--chat.model=gemini-2.0-flash",
		"--chat.timeout=5s",
	}))
	assert.Equal(t, "openai", emb.Provider)
	assert.Equal(t, "gemini-2.0-flash", chat.Model)
	assert.Equal(t, 5*time.Second, chat.Timeout)
	assert.Nil(t, fs.Lookup("embedding.temperature"))

	m := emb.ToConfigMap()
	assert.Equal(t, "sk-test", m["api_key"])
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", m["embed_model"])
	assert.NotContains(t, m, "chat_model")
	assert.Equal(t, "gemini-2.0-flash", chat.ToConfigMap()["chat_model"])
}

func TestResilienceDefaults(t *testing.T) {
	o := NewResilienceOptions()
	assert.Empty(t, o.Validate())
	assert.Equal(t, 1, o.MaxAttempts)
	assert.False(t, o.CircuitBreaker)

	o.MaxDelay = time.Millisecond
	assert.Len(t, o.Validate(), 1)
}
