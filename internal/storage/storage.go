// Package storage keeps the history of training runs and served predictions
// in a BoltDB file. It is an informational ledger: the model that is served
// is always the artifact on disk, never an entry from this store.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	runsBucket        = "training_runs" // Bucket name for training run records
	predictionsBucket = "predictions"   // Bucket name for served prediction records
)

// DBFile is the database file name inside the data directory.
const DBFile = "stupred.db"

// Store provides persistent storage for run and prediction history.
// Keys are "<unix nanos, zero padded>_<id>" so cursor order is time order.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database inside dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create training runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func recordKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", ts.UnixNano(), id))
}

func timeKey(ts time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", ts.UnixNano()))
}

func (s *Store) put(bucket string, key []byte, v any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", bucket, err)
		}
		return tx.Bucket([]byte(bucket)).Put(key, data)
	})
}

// latest walks bucket from newest to oldest and hands each value to visit
// until limit values were accepted or visit returns false. limit <= 0 means
// no limit.
func (s *Store) latest(bucket string, limit int, visit func([]byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		n := 0
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && n >= limit {
				break
			}
			if !visit(v) {
				break
			}
			n++
		}
		return nil
	})
}

// between visits values whose key time lies in [start, end], oldest first.
func (s *Store) between(bucket string, start, end time.Time, visit func([]byte)) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		endKey := timeKey(end)
		for k, v := c.Seek(timeKey(start)); k != nil; k, v = c.Next() {
			if bytes.Compare(k[:len(endKey)], endKey) > 0 {
				break
			}
			visit(v)
		}
		return nil
	})
}

func (s *Store) count(bucket string) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(bucket)).Stats().KeyN
		return nil
	})
	return n, err
}
