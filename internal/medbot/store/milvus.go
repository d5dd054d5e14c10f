package store

import (
	"context"
	"fmt"

	"github.com/kart-io/medbot/internal/medbot/biz"
	"github.com/kart-io/medbot/pkg/component/milvus"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
)

// MilvusStore 基于 Milvus（或 Zilliz Cloud）的检索实现。
type MilvusStore struct {
	*milvus.Client
	collection string
	textField  string
}

var _ Store = (*MilvusStore)(nil)

// NewMilvusStore connects and loads the collection into memory.
func NewMilvusStore(ctx context.Context, opts *vectorindex.Options) (*MilvusStore, error) {
	client, err := milvus.New(ctx, opts.Milvus, opts.APIKey)
	if err != nil {
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, opts.Milvus.Timeout)
	defer cancel()
	if err := client.LoadCollection(loadCtx, opts.Name); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &MilvusStore{Client: client, collection: opts.Name, textField: opts.TextField}, nil
}

// Retrieve searches the collection and keeps Milvus' ranking.
func (s *MilvusStore) Retrieve(ctx context.Context, vector []float32, k int) ([]biz.Passage, error) {
	hits, err := s.Search(ctx, s.collection, vector, k, []string{s.textField})
	if err != nil {
		return nil, fmt.Errorf("milvus search on %s: %w", s.collection, err)
	}

	passages := make([]biz.Passage, 0, len(hits))
	for _, h := range hits {
		content, meta := splitFields(h.Fields, s.textField)
		passages = append(passages, biz.Passage{
			ID:       h.ID,
			Content:  content,
			Score:    h.Score,
			Metadata: meta,
		})
	}
	return passages, nil
}
