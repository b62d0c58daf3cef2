// Package boltstore is an embedded, single-file payment store on BoltDB for
// deployments without a Postgres server.
//
// Each payment is one JSON document keyed by its big-endian ID, attempts
// included. Bolt runs one read-write transaction at a time, so checking for
// an existing attempt and inserting it inside a single Update is atomic.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	repo "github.com/amirasaad/deposit/pkg/repository/payment"
)

const bucketName = "payments"

var _ repo.Repository = (*Store)(nil)

// Store wraps a BoltDB database holding payments.
type Store struct {
	db *bolt.DB
}

// New opens (or creates) a BoltDB database at path and ensures the
// payments bucket exists.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create implements payment.Repository. IDs come from the bucket sequence.
func (s *Store) Create(ctx context.Context, p *payment.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		stored := *p
		stored.ID = int64(seq)
		data, err := json.Marshal(toRecord(&stored))
		if err != nil {
			return err
		}
		if err := b.Put(key(stored.ID), data); err != nil {
			return err
		}
		p.ID = stored.ID
		return nil
	})
}

// Get implements payment.Repository.
func (s *Store) Get(ctx context.Context, id int64) (*payment.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *payment.Payment
	err := s.db.View(func(tx *bolt.Tx) error {
		p, err := load(tx.Bucket([]byte(bucketName)), id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AppendAttempt implements payment.Repository.
func (s *Store) AppendAttempt(ctx context.Context, paymentID int64, a payment.Attempt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	created := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		p, err := load(b, paymentID)
		if err != nil {
			return err
		}
		for _, existing := range p.Attempts {
			if existing.SessionReference == a.SessionReference && existing.Status == a.Status {
				return nil
			}
		}
		p.Append(a)
		data, err := json.Marshal(toRecord(p))
		if err != nil {
			return err
		}
		created = true
		return b.Put(key(paymentID), data)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func load(b *bolt.Bucket, id int64) (*payment.Payment, error) {
	v := b.Get(key(id))
	if v == nil {
		return nil, domain.ErrNotFound
	}
	var r record
	if err := json.Unmarshal(v, &r); err != nil {
		return nil, fmt.Errorf("decode payment %d: %w", id, err)
	}
	return r.toPayment(), nil
}

func key(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}
