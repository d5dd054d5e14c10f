package medbot

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// fakeOllama answers embed and chat calls and remembers the last system
// prompt it received.
type fakeOllama struct {
	mu     sync.Mutex
	system string
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/embed":
		_, _ = w.Write([]byte(`{"embeddings":[[1,0.1]]}`))
	case "/api/chat":
		f.mu.Lock()
		f.system = string(body)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"Acne is a common skin condition."},"done":true}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOllama) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.system
}

func newIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db, err := chromem.NewPersistentDB(dir, false)
	require.NoError(t, err)
	c, err := db.CreateCollection("medical-chatbot", nil, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.AddDocument(ctx, chromem.Document{ID: "1", Content: "Acne vulgaris affects the skin.", Embedding: []float32{1, 0}}))
	require.NoError(t, c.AddDocument(ctx, chromem.Document{ID: "2", Content: "Influenza is a viral infection.", Embedding: []float32{0, 1}}))
	return dir
}

func newTestConfig(t *testing.T, providerURL, indexDir string) *Config {
	t.Helper()

	embedding := llmopts.NewEmbeddingOptions()
	embedding.Provider = "ollama"
	embedding.BaseURL = providerURL
	embedding.Model = "nomic-embed-text"

	chat := llmopts.NewChatOptions()
	chat.Provider = "ollama"
	chat.BaseURL = providerURL
	chat.Model = "llama3"
	chat.APIKey = "super-secret-key"

	index := vectorindex.NewOptions()
	index.Backend = vectorindex.BackendChromem
	index.Name = "medical-chatbot"
	index.Chromem.Path = indexDir

	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = "127.0.0.1:0"
	httpOpts.Mode = "test"

	return &Config{
		HTTPOptions:        httpOpts,
		MiddlewareOptions:  mwopts.NewOptions(),
		LogOptions:         logopts.NewOptions(),
		TracingOptions:     tracingopts.NewOptions(),
		EmbeddingOptions:   embedding,
		ChatOptions:        chat,
		ResilienceOptions:  llmopts.NewResilienceOptions(),
		VectorIndexOptions: index,
		CacheOptions:       cacheopts.NewOptions(),
		RAGOptions:         ragopts.NewOptions(),
		Banner:             &bytes.Buffer{},
	}
}

func TestNewServerAnswers(t *testing.T) {
	ollama := &fakeOllama{}
	provider := httptest.NewServer(ollama)
	defer provider.Close()

	cfg := newTestConfig(t, provider.URL, newIndex(t))
	s, err := cfg.NewServer(context.Background())
	require.NoError(t, err)
	defer s.close()

	banner := cfg.Banner.(*bytes.Buffer).String()
	assert.Contains(t, banner, "chromem (medical-chatbot)")
	assert.Contains(t, banner, "ollama (llama3)")
	assert.NotContains(t, banner, "super-secret-key")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/get", strings.NewReader("msg=What+is+acne%3F"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.HTTPServer().Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acne is a common skin condition.", w.Body.String())
	assert.Contains(t, ollama.lastRequest(), "Acne vulgaris affects the skin.")
	assert.Contains(t, ollama.lastRequest(), "What is acne?")

	w = httptest.NewRecorder()
	s.HTTPServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get?msg=", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.HTTPServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `medbot_stage_total{outcome="success",stage="generate"} 1`)
}

func TestNewServerFailsOnMissingIndex(t *testing.T) {
	provider := httptest.NewServer(&fakeOllama{})
	defer provider.Close()

	cfg := newTestConfig(t, provider.URL, t.TempDir())
	_, err := cfg.NewServer(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConfiguration))
}

func TestNewServerFailsOnBadPromptFile(t *testing.T) {
	provider := httptest.NewServer(&fakeOllama{})
	defer provider.Close()

	cfg := newTestConfig(t, provider.URL, newIndex(t))
	cfg.RAGOptions.PromptFile = "/nonexistent/prompt.txt"
	_, err := cfg.NewServer(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConfiguration))
}

func TestRunGracefulShutdown(t *testing.T) {
	provider := httptest.NewServer(&fakeOllama{})
	defer provider.Close()

	cfg := newTestConfig(t, provider.URL, newIndex(t))
	s, err := cfg.NewServer(context.Background())
	require.NoError(t, err)

	readyz := func() int {
		w := httptest.NewRecorder()
		s.HTTPServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusServiceUnavailable, readyz())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return readyz() == http.StatusOK }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestResilienceConfig(t *testing.T) {
	cfg := &Config{ResilienceOptions: llmopts.NewResilienceOptions()}
	retry, cb := cfg.resilienceConfig()
	assert.Nil(t, retry)
	assert.Nil(t, cb)

	cfg.ResilienceOptions.MaxAttempts = 3
	cfg.ResilienceOptions.CircuitBreaker = true
	retry, cb = cfg.resilienceConfig()
	require.NotNil(t, retry)
	require.NotNil(t, cb)
	assert.Equal(t, 3, retry.MaxAttempts)
	assert.Equal(t, 5, cb.MaxFailures)
}
