package store

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.etcd.io/bbolt"

	"demandcast/internal/port"
)

// BoltVectorStore implements VectorStore using BoltDB for persistence.
// Catalogs are small, so search is a brute-force scan of an in-memory mirror.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	vectors   map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	metadata map[string]string
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBoltVectorStore creates a new BoltDB-backed vector store.
func NewBoltVectorStore(db *bbolt.DB, dimension int) (*BoltVectorStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create vectors bucket")
	}

	store := &BoltVectorStore{
		db:        db,
		dimension: dimension,
	}
	if err := store.Reload(); err != nil {
		return nil, errors.Wrap(err, "load vectors")
	}

	return store, nil
}

// Reload replaces the in-memory mirror with the bucket contents.
func (s *BoltVectorStore) Reload() error {
	vectors := make(map[string]vectorEntry)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			if len(stored.Vector) != s.dimension {
				return nil // Built with another model; CheckMigration forces a rebuild
			}
			vectors[string(k)] = vectorEntry{
				vector:   stored.Vector,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.vectors = vectors
	s.mu.Unlock()
	return nil
}

// Upsert adds or updates vectors in the store. The in-memory mirror changes
// only after the transaction commits.
func (s *BoltVectorStore) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]vectorEntry, len(items))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return errors.New("vectors bucket not found")
		}

		for _, item := range items {
			if len(item.Vector) != s.dimension {
				return errors.Newf("vector dimension mismatch for %s: expected %d, got %d", item.ID, s.dimension, len(item.Vector))
			}

			data, err := json.Marshal(storedVector{Vector: item.Vector, Metadata: item.Metadata})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			staged[item.ID] = vectorEntry{
				vector:   item.Vector,
				metadata: item.Metadata,
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	for id, entry := range staged {
		s.vectors[id] = entry
	}
	return nil
}

// Search finds the k nearest vectors to the query using cosine similarity.
// Equal scores are ordered by id so results are stable.
func (s *BoltVectorStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimension {
		return nil, errors.Newf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	scores := make([]port.VectorResult, 0, len(s.vectors))
	for id, entry := range s.vectors {
		scores = append(scores, port.VectorResult{
			ID:       id,
			Score:    cosineSimilarity(query, entry.vector),
			Metadata: entry.metadata,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ID < scores[j].ID
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Delete removes vectors by their IDs.
func (s *BoltVectorStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}

		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		delete(s.vectors, id)
	}
	return nil
}

// Count returns the number of vectors in the store.
func (s *BoltVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
