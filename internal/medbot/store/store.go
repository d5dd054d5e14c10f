package store

import (
	"context"
	"fmt"

	"github.com/kart-io/medbot/internal/medbot/biz"
	"github.com/kart-io/medbot/pkg/component/storage"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
)

// Store is a read-only vector index.
type Store interface {
	biz.Retriever
	storage.Client
}

// New connects to the backend selected by opts and verifies that the index
// exists.
func New(ctx context.Context, opts *vectorindex.Options) (Store, error) {
	if opts == nil {
		return nil, fmt.Errorf("vector index options is nil")
	}

	switch opts.Backend {
	case vectorindex.BackendMilvus:
		return NewMilvusStore(ctx, opts)
	case vectorindex.BackendQdrant:
		return NewQdrantStore(ctx, opts)
	case vectorindex.BackendChromem:
		return NewChromemStore(opts)
	case vectorindex.BackendPGVector:
		return NewPGVectorStore(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported vector index backend %q", opts.Backend)
	}
}

// splitFields takes the text field out of a hit's fields and keeps the rest
// as metadata.
func splitFields(fields map[string]any, textField string) (string, map[string]any) {
	content, _ := fields[textField].(string)
	meta := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != textField {
			meta[k] = v
		}
	}
	return content, meta
}
