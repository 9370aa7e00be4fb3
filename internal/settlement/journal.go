package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// PhaseRecord is the durably stored outcome of one settlement phase for one
// order. Records are written with a synced batch before the phase is
// acknowledged, so a restart can never duplicate a confirmed collection or
// payout.
type PhaseRecord struct {
	OrderID   string    `json:"order_id"`
	Reference string    `json:"reference"`
	Confirmed bool      `json:"confirmed"`
	At        time.Time `json:"at"`
}

// Journal is a pebble-backed record of settlement phase outcomes.
// Collections are keyed by payload hash so resubmission of the same payload
// after a timeout or crash is de-duplicated by payload identity.
type Journal struct {
	db *pebble.DB
}

// OpenJournal opens (or creates) the journal at the given directory.
func OpenJournal(dir string) (*Journal, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open settlement journal at %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// PayloadHash returns the identity of a collection payload.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func collectionKey(payloadHash string) []byte {
	return []byte("collect:" + payloadHash)
}

func payoutKey(orderID string) []byte {
	return []byte("payout:" + orderID)
}

// RecordCollection persists the outcome of a collection submission.
func (j *Journal) RecordCollection(payloadHash string, rec PhaseRecord) error {
	return j.set(collectionKey(payloadHash), rec)
}

// Collection returns the recorded outcome for a collection payload, if any.
func (j *Journal) Collection(payloadHash string) (PhaseRecord, bool, error) {
	return j.get(collectionKey(payloadHash))
}

// RecordPayout persists the outcome of a payout submission for an order.
func (j *Journal) RecordPayout(orderID string, rec PhaseRecord) error {
	return j.set(payoutKey(orderID), rec)
}

// Payout returns the recorded payout outcome for an order, if any.
func (j *Journal) Payout(orderID string) (PhaseRecord, bool, error) {
	return j.get(payoutKey(orderID))
}

func (j *Journal) set(key []byte, rec PhaseRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}
	if err := j.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("write journal record: %w", err)
	}
	return nil
}

func (j *Journal) get(key []byte) (PhaseRecord, bool, error) {
	data, closer, err := j.db.Get(key)
	if err == pebble.ErrNotFound {
		return PhaseRecord{}, false, nil
	}
	if err != nil {
		return PhaseRecord{}, false, fmt.Errorf("read journal record: %w", err)
	}
	defer closer.Close()

	var rec PhaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return PhaseRecord{}, false, fmt.Errorf("unmarshal journal record: %w", err)
	}
	return rec, true, nil
}
