package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/kart-io/medbot/internal/medbot/biz"
	"github.com/kart-io/medbot/pkg/component/postgres"
	"github.com/kart-io/medbot/pkg/options/vectorindex"
)

// PGVectorStore 基于 PostgreSQL pgvector 扩展的检索实现。
//
// 表结构要求：id 列、文本列（vector-index.text-field）与向量列
// （vector-index.postgres.embedding-column）。
type PGVectorStore struct {
	*postgres.Client
	table string
	query string
}

var _ Store = (*PGVectorStore)(nil)

// NewPGVectorStore connects and checks that the table exists.
func NewPGVectorStore(ctx context.Context, opts *vectorindex.Options) (*PGVectorStore, error) {
	client, err := postgres.New(ctx, opts.Postgres.Options)
	if err != nil {
		return nil, err
	}

	// 与检索语句使用相同的标识符
	var exists bool
	table := tableIdentifier(opts.Name).Sanitize()
	if err := client.Pool().QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to check table existence: %w", err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("pgvector table %q does not exist", opts.Name)
	}

	return &PGVectorStore{
		Client: client,
		table:  opts.Name,
		query:  buildSearchQuery(opts.Name, opts.TextField, opts.Postgres.EmbeddingColumn),
	}, nil
}

// tableIdentifier splits a schema-qualified name such as "public.docs".
func tableIdentifier(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

// buildSearchQuery ranks rows by cosine distance and reports 1 - distance as
// the score.
func buildSearchQuery(table, textColumn, embeddingColumn string) string {
	emb := pgx.Identifier{embeddingColumn}.Sanitize()
	return fmt.Sprintf(
		"SELECT id::text, %s, 1 - (%s <=> $1) AS score FROM %s ORDER BY %s <=> $1 LIMIT $2",
		pgx.Identifier{textColumn}.Sanitize(), emb, tableIdentifier(table).Sanitize(), emb,
	)
}

// Name returns the storage type identifier.
func (s *PGVectorStore) Name() string {
	return "pgvector"
}

// Retrieve runs the nearest-neighbour query.
func (s *PGVectorStore) Retrieve(ctx context.Context, vector []float32, k int) ([]biz.Passage, error) {
	rows, err := s.Pool().Query(ctx, s.query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector query on %s: %w", s.table, err)
	}
	defer rows.Close()

	passages := make([]biz.Passage, 0, k)
	for rows.Next() {
		var (
			p     biz.Passage
			score float64
		)
		if err := rows.Scan(&p.ID, &p.Content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan pgvector row: %w", err)
		}
		p.Score = float32(score)
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector rows: %w", err)
	}
	return passages, nil
}
