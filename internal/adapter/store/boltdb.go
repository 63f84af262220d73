package store

import (
	"github.com/cockroachdb/errors"
	"go.etcd.io/bbolt"
)

var (
	bucketMeta    = []byte("meta")
	bucketNames   = []byte("names")
	bucketVectors = []byte("vectors")
)

// BoltStore owns the on-disk index database. Vectors live in their own bucket
// managed by BoltVectorStore; this type tracks which display name each stored
// vector was computed from, plus schema metadata.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt db %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketNames, bucketVectors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "create bucket %s", b)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

// IndexedNames returns id -> display name for every item with a stored vector.
func (s *BoltStore) IndexedNames() (map[string]string, error) {
	names := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketNames).ForEach(func(k, v []byte) error {
			names[string(k)] = string(v)
			return nil
		})
	})
	return names, err
}

// PutIndexedNames records the display names the given vectors were built from.
func (s *BoltStore) PutIndexedNames(names map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNames)
		for id, name := range names {
			if err := b.Put([]byte(id), []byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteIndexedNames forgets the given ids.
func (s *BoltStore) DeleteIndexedNames(ids []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNames)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
