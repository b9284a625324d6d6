// Package snapshot persists store contents to a bbolt file.
//
// Each store is written to its own bucket as one JSON value per record id.
// A save replaces the whole bucket inside a single transaction, so a reader
// never sees half of one snapshot and half of another.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	fileMode    fs.FileMode = 0o600
	openTimeout             = time.Second
)

// ErrBucketMissing is returned when a bucket vanished after it was opened.
var ErrBucketMissing = errors.New("bucket does not exist")

// DB is an open snapshot file.
type DB struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the snapshot file at path.
//
// bbolt holds an exclusive file lock; Open fails after one second if another
// process has the file open.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the file path the DB was opened with.
func (d *DB) Path() string {
	return d.path
}

// Close releases the file.
func (d *DB) Close() error {
	return d.db.Close()
}

// Bucket reads and writes records of type T in one named bucket.
type Bucket[T any] struct {
	db   *bolt.DB
	name []byte
}

// NewBucket returns the bucket called name, creating it if needed.
func NewBucket[T any](d *DB, name string) (*Bucket[T], error) {
	err := d.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return &Bucket[T]{db: d.db, name: []byte(name)}, nil
}

// Name returns the bucket name.
func (b *Bucket[T]) Name() string {
	return string(b.name)
}

// Save replaces the bucket contents with records.
func (b *Bucket[T]) Save(records map[string]T) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(b.name) != nil {
			if err := tx.DeleteBucket(b.name); err != nil {
				return fmt.Errorf("clear bucket %s: %w", b.name, err)
			}
		}
		bkt, err := tx.CreateBucket(b.name)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", b.name, err)
		}

		for id, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", b.name, id, err)
			}
			if err := bkt.Put([]byte(id), data); err != nil {
				return fmt.Errorf("write %s/%s: %w", b.name, id, err)
			}
		}
		return nil
	})
}

// Load returns every record in the bucket keyed by id.
func (b *Bucket[T]) Load() (map[string]T, error) {
	out := make(map[string]T)
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.name)
		if bkt == nil {
			return fmt.Errorf("%s: %w", b.name, ErrBucketMissing)
		}

		return bkt.ForEach(func(k, v []byte) error {
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode %s/%s: %w", b.name, k, err)
			}
			out[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
