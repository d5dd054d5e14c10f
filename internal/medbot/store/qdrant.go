package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kart-io/medbot/internal/medbot/biz"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
)

// QdrantStore 基于 Qdrant gRPC 接口的检索实现。
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	textField  string
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore connects and checks that the collection exists.
func NewQdrantStore(ctx context.Context, opts *vectorindex.Options) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Qdrant.Host,
		Port:   opts.Qdrant.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.Qdrant.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Qdrant.Timeout)
	defer cancel()

	exists, err := client.CollectionExists(ctx, opts.Name)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant collection %q does not exist", opts.Name)
	}

	return &QdrantStore{client: client, collection: opts.Name, textField: opts.TextField}, nil
}

// Name returns the storage type identifier.
func (s *QdrantStore) Name() string {
	return "qdrant"
}

// Ping calls the Qdrant health check.
func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Retrieve queries the collection for the k nearest points.
func (s *QdrantStore) Retrieve(ctx context.Context, vector []float32, k int) ([]biz.Passage, error) {
	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query on %s: %w", s.collection, err)
	}

	passages := make([]biz.Passage, 0, len(points))
	for _, point := range points {
		fields := make(map[string]any, len(point.Payload))
		for key, v := range point.Payload {
			fields[key] = payloadValue(v)
		}
		content, meta := splitFields(fields, s.textField)
		passages = append(passages, biz.Passage{
			ID:       pointID(point.Id),
			Content:  content,
			Score:    point.Score,
			Metadata: meta,
		})
	}
	return passages, nil
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// payloadValue converts scalar payload values. Lists and structs are kept as
// their string form.
func payloadValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_NullValue:
		return nil
	default:
		return v.String()
	}
}
