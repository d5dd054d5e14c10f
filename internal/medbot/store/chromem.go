package store

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/kart-io/medbot/internal/medbot/biz"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
)

// ChromemStore 基于本地 chromem-go 数据库的检索实现，适合离线开发。
type ChromemStore struct {
	collection *chromem.Collection
	textField  string
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore opens the persistent database at opts.Chromem.Path.
func NewChromemStore(opts *vectorindex.Options) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(opts.Chromem.Path, opts.Chromem.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}
	return NewChromemStoreFromDB(db, opts.Name, opts.TextField)
}

// NewChromemStoreFromDB uses an already opened database.
func NewChromemStoreFromDB(db *chromem.DB, name, textField string) (*ChromemStore, error) {
	// 查询只使用预先计算好的向量，不需要嵌入函数。
	c := db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("chromem collection %q does not exist", name)
	}
	return &ChromemStore{collection: c, textField: textField}, nil
}

// Name returns the storage type identifier.
func (s *ChromemStore) Name() string {
	return "chromem"
}

// Ping always succeeds once the collection is open.
func (s *ChromemStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op; chromem flushes on write.
func (s *ChromemStore) Close() error {
	return nil
}

// Retrieve returns up to k documents by cosine similarity. The document
// content is the passage text; a metadata entry named after the text field
// takes precedence when present.
func (s *ChromemStore) Retrieve(ctx context.Context, vector []float32, k int) ([]biz.Passage, error) {
	n := s.collection.Count()
	if n == 0 {
		return []biz.Passage{}, nil
	}
	if k > n {
		k = n
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	passages := make([]biz.Passage, 0, len(results))
	for _, r := range results {
		content := r.Content
		meta := make(map[string]any, len(r.Metadata))
		for key, v := range r.Metadata {
			if key == s.textField {
				content = v
				continue
			}
			meta[key] = v
		}
		passages = append(passages, biz.Passage{
			ID:       r.ID,
			Content:  content,
			Score:    r.Similarity,
			Metadata: meta,
		})
	}
	return passages, nil
}
