package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"demandcast/internal/port"
)

// PGVectorStore keeps item embeddings in the pgvector column
// inventory_master.embedding and lets postgres do the nearest-neighbour scan.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPGVectorStore(pool *pgxpool.Pool, dimension int) *PGVectorStore {
	return &PGVectorStore{pool: pool, dimension: dimension}
}

func (s *PGVectorStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return errors.Newf("vector dimension mismatch for %s: expected %d, got %d", item.ID, s.dimension, len(item.Vector))
		}
		batch.Queue(`UPDATE inventory_master SET embedding = $1::vector WHERE inventory_id = $2`,
			vectorLiteral(item.Vector), item.ID)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for _, item := range items {
		if _, err := results.Exec(); err != nil {
			return errors.Wrapf(err, "store embedding for %s", item.ID)
		}
	}
	return nil
}

// Search orders by cosine distance and reports 1 - distance, so scores share
// the convention of BoltVectorStore.
func (s *PGVectorStore) Search(ctx context.Context, query []float32, k int) ([]port.VectorResult, error) {
	if len(query) != s.dimension {
		return nil, errors.Newf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT inventory_id, item_name, 1 - (embedding <=> $1::vector) AS similarity
		FROM inventory_master
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector, inventory_id
		LIMIT $2`, vectorLiteral(query), k)
	if err != nil {
		return nil, errors.Wrap(err, "pgvector search")
	}
	defer rows.Close()

	var results []port.VectorResult
	for rows.Next() {
		var id, name string
		var sim float64
		if err := rows.Scan(&id, &name, &sim); err != nil {
			return nil, errors.Wrap(err, "scan pgvector row")
		}
		results = append(results, port.VectorResult{
			ID:       id,
			Score:    sim,
			Metadata: map[string]string{"name": name},
		})
	}
	return results, errors.Wrap(rows.Err(), "iterate pgvector rows")
}

func (s *PGVectorStore) Delete(ctx context.Context, ids []string) error {
	_, err := s.pool.Exec(ctx, `UPDATE inventory_master SET embedding = NULL WHERE inventory_id = ANY($1)`, ids)
	return errors.Wrap(err, "clear embeddings")
}

func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM inventory_master WHERE embedding IS NOT NULL`).Scan(&n)
	return n, errors.Wrap(err, "count embeddings")
}

// vectorLiteral renders v in pgvector's text input format, e.g. [0.1,0.2].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
