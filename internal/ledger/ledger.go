// Package ledger records which payment webhook events have been processed.
//
// The payment gateway delivers events at least once, so the same event id
// can arrive several times.  The ledger is a BoltDB file keyed by event id:
// a delivery first claims its id and only the winner dispatches; later
// deliveries are acknowledged.
package ledger

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "webhook_events"

// ErrNotFound is returned by Get when the event id is unknown.
var ErrNotFound = errors.New("webhook event not found")

// Record is the stored outcome of one processed event.
type Record struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	Outcome     string    `json:"outcome"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Store wraps the BoltDB file.
type Store struct {
	db *bolt.DB
}

// New opens (or creates) the ledger at path.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seen reports whether eventID was already marked.
func (s *Store) Seen(eventID string) (bool, error) {
	seen := false
	err := s.db.View(func(tx *bolt.Tx) error {
		seen = tx.Bucket([]byte(bucketName)).Get([]byte(eventID)) != nil
		return nil
	})
	return seen, err
}

// Get returns the record stored for eventID.
func (s *Store) Get(eventID string) (Record, error) {
	var r Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(eventID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &r)
	})
	return r, err
}

// OutcomeProcessing is the outcome of a claimed event whose dispatch has
// not finished.
const OutcomeProcessing = "processing"

// Claim reserves r.EventID for dispatch in one write transaction, so two
// concurrent deliveries of the same event cannot both win.  The claim is
// stored with OutcomeProcessing.  When the id is already present the
// stored record is returned with false, except for a processing claim
// older than staleAfter (left by a dispatch that never finished), which is
// taken over.
func (s *Store) Claim(r Record, staleAfter time.Duration) (Record, bool, error) {
	var (
		result  Record
		claimed bool
	)
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}
	r.Outcome = OutcomeProcessing
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if existing := b.Get([]byte(r.EventID)); existing != nil {
			if err := json.Unmarshal(existing, &result); err != nil {
				return err
			}
			stale := result.Outcome == OutcomeProcessing && result.ProcessedAt.Before(r.ProcessedAt.Add(-staleAfter))
			if !stale {
				return nil
			}
		}
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		result = r
		claimed = true
		return b.Put([]byte(r.EventID), data)
	})
	if err != nil {
		return Record{}, false, err
	}
	return result, claimed, nil
}

// Complete records the final outcome of a claimed event.
func (s *Store) Complete(eventID, outcome string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(eventID))
		if v == nil {
			return ErrNotFound
		}
		var r Record
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		r.Outcome = outcome
		r.ProcessedAt = time.Now().UTC()
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put([]byte(eventID), data)
	})
}

// Release drops a claim so the next delivery of the event is dispatched
// again.  Releasing an unknown id is a no-op.
func (s *Store) Release(eventID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(eventID))
	})
}

// Prune deletes records processed before cutoff and returns how many were
// removed.  The gateway stops retrying after a few days, so old ids can be
// forgotten.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.ProcessedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(stale)
		return nil
	})
	return n, err
}
