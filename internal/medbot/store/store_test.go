package store

import (
	"context"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medbot/pkg/options/vectorindex"
)

func newTestCollection(t *testing.T, docs ...chromem.Document) *chromem.DB {
	t.Helper()
	db := chromem.NewDB()
	c, err := db.CreateCollection("medical-chatbot", nil, nil)
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, c.AddDocument(context.Background(), d))
	}
	return db
}

func TestChromemRetrieve(t *testing.T) {
	db := newTestCollection(t,
		chromem.Document{ID: "a", Content: "Acne is a skin condition.", Embedding: []float32{1, 0}},
		chromem.Document{ID: "b", Content: "Fever is a raised temperature.", Embedding: []float32{0, 1}},
		chromem.Document{
			ID:        "c",
			Content:   "ignored",
			Embedding: []float32{0.7, 0.7},
			Metadata:  map[string]string{"text": "Rosacea causes facial redness.", "source": "gale"},
		},
	)
	s, err := NewChromemStoreFromDB(db, "medical-chatbot", "text")
	require.NoError(t, err)

	tests := []struct {
		name    string
		k       int
		wantIDs []string
	}{
		{name: "top two", k: 2, wantIDs: []string{"a", "c"}},
		{name: "k larger than collection", k: 10, wantIDs: []string{"a", "c", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Retrieve(context.Background(), []float32{1, 0.1}, tt.k)
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, p := range got {
				ids[i] = p.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
		})
	}

	got, err := s.Retrieve(context.Background(), []float32{0.7, 0.7}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rosacea causes facial redness.", got[0].Content)
	assert.Equal(t, map[string]any{"source": "gale"}, got[0].Metadata)
}

func TestChromemEmptyCollection(t *testing.T) {
	s, err := NewChromemStoreFromDB(newTestCollection(t), "medical-chatbot", "text")
	require.NoError(t, err)

	got, err := s.Retrieve(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "chromem", s.Name())
}

func TestChromemMissingCollection(t *testing.T) {
	_, err := NewChromemStoreFromDB(chromem.NewDB(), "missing", "text")
	assert.Error(t, err)
}

func TestNewChromemStoreMissingCollection(t *testing.T) {
	opts := vectorindex.NewOptions()
	opts.Backend = vectorindex.BackendChromem
	opts.Name = "medical-chatbot"
	opts.Chromem.Path = t.TempDir()

	_, err := New(context.Background(), opts)
	assert.ErrorContains(t, err, "does not exist")
}

func TestNewUnsupportedBackend(t *testing.T) {
	opts := vectorindex.NewOptions()
	opts.Backend = "pinecone"
	_, err := New(context.Background(), opts)
	assert.ErrorContains(t, err, "unsupported")

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  string
	}{
		{
			name:  "plain table",
			table: "medical-chatbot",
			want:  `SELECT id::text, "text", 1 - ("embedding" <=> $1) AS score FROM "medical-chatbot" ORDER BY "embedding" <=> $1 LIMIT $2`,
		},
		{
			name:  "schema qualified",
			table: "public.docs",
			want:  `SELECT id::text, "text", 1 - ("embedding" <=> $1) AS score FROM "public"."docs" ORDER BY "embedding" <=> $1 LIMIT $2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSearchQuery(tt.table, "text", "embedding"))
		})
	}
}

func TestTableIdentifier(t *testing.T) {
	assert.Equal(t, `"public"."docs"`, tableIdentifier("public.docs").Sanitize())
	assert.Equal(t, `"docs"`, tableIdentifier("docs").Sanitize())
}

func TestSplitFields(t *testing.T) {
	content, meta := splitFields(map[string]any{"text": "body", "page": int64(3)}, "text")
	assert.Equal(t, "body", content)
	assert.Equal(t, map[string]any{"page": int64(3)}, meta)

	content, meta = splitFields(map[string]any{"other": 1}, "text")
	assert.Empty(t, content)
	assert.Len(t, meta, 1)
}

func TestQdrantConversions(t *testing.T) {
	assert.Equal(t, "", pointID(nil))
	assert.Equal(t, "42", pointID(qdrant.NewIDNum(42)))
	assert.Equal(t, "5c56c793-69f3-4fbf-87e6-c4bf54c28c26", pointID(qdrant.NewIDUUID("5c56c793-69f3-4fbf-87e6-c4bf54c28c26")))

	assert.Equal(t, "x", payloadValue(qdrant.NewValueString("x")))
	assert.Equal(t, int64(7), payloadValue(qdrant.NewValueInt(7)))
	assert.Equal(t, 1.5, payloadValue(qdrant.NewValueDouble(1.5)))
	assert.Equal(t, true, payloadValue(qdrant.NewValueBool(true)))
	assert.Nil(t, payloadValue(qdrant.NewValueNull()))
}
