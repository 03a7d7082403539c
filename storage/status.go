package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"flipmail/models"
	"flipmail/utils"

	"go.etcd.io/bbolt"
)

// StatusStorage keeps the read/favorite snapshot in a single bbolt key
type StatusStorage struct {
	db  *bbolt.DB
	key []byte
}

// NewStatusStorage binds a storage slot to key
func NewStatusStorage(db *bbolt.DB, key string) *StatusStorage {
	return &StatusStorage{db: db, key: []byte(key)}
}

// Save rewrites the whole slot with status
func (s *StatusStorage) Save(status models.EmailStatus) error {
	data, err := EncodeStatus(status)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		if b == nil {
			return fmt.Errorf("bucket %s missing", statusBucket)
		}
		return b.Put(s.key, data)
	})
}

// Load returns the stored snapshot; false when the slot is empty or unreadable
func (s *StatusStorage) Load() (*models.EmailStatus, bool) {
	var data []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		if b == nil {
			return nil
		}
		if v := b.Get(s.key); v != nil {
			// bbolt values are only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		utils.Log.Warn("Failed to read status slot %q: %v", s.key, err)
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	status, err := DecodeStatus(data)
	if err != nil {
		utils.Log.Warn("Ignoring malformed status slot %q: %v", s.key, err)
		return nil, false
	}
	return status, true
}

// Clear empties the slot
func (s *StatusStorage) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		if b == nil {
			return nil
		}
		return b.Delete(s.key)
	})
}

// EncodeStatus serializes status, writing empty sets as [] rather than null
func EncodeStatus(status models.EmailStatus) ([]byte, error) {
	if status.Read == nil {
		status.Read = []string{}
	}
	if status.Favorites == nil {
		status.Favorites = []string{}
	}
	return json.Marshal(status)
}

var errMalformed = errors.New("malformed status")

// DecodeStatus parses a stored snapshot, requiring an object whose
// "read" and "favorites" members are both arrays of strings.
func DecodeStatus(data []byte) (*models.EmailStatus, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", errMalformed)
	}

	read, err := decodeIDs(raw, "read")
	if err != nil {
		return nil, err
	}
	favorites, err := decodeIDs(raw, "favorites")
	if err != nil {
		return nil, err
	}

	return &models.EmailStatus{Read: read, Favorites: favorites}, nil
}

func decodeIDs(raw map[string]json.RawMessage, field string) ([]string, error) {
	value, ok := raw[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q missing", errMalformed, field)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(value), []byte("[")) {
		return nil, fmt.Errorf("%w: %q is not an array", errMalformed, field)
	}

	var ids []string
	if err := json.Unmarshal(value, &ids); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", errMalformed, field, err)
	}
	return ids, nil
}
