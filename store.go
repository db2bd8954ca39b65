package cardkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// mountTableVersion is the current on-disk document version.
const mountTableVersion = 1

// MountRecord is the durable description of one mounted card. Binary
// source payloads are scrubbed before the record is built, so a record
// can always be serialized whole.
type MountRecord struct {
	CardID         string       `json:"cardId"`
	Source         SourceRecord `json:"source"`
	Strategy       Strategy     `json:"strategy"`
	MountedAt      time.Time    `json:"mountedAt"`
	ResourceCount  int          `json:"resourceCount"`
	TotalSize      int64        `json:"totalSize"`
	LastAccessedAt time.Time    `json:"lastAccessedAt"`
}

// mountTable is the single structured document persisted to disk.
type mountTable struct {
	Version   int           `json:"version"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Records   []MountRecord `json:"records"`
}

// MountStore persists the mount table as one JSON document. Every
// mutation is a whole-document read-modify-write serialized by the
// store's mutex, so concurrent mount/unmount traffic cannot lose
// updates. Writes are overwrite-in-place with directory creation; there
// is no write-ahead log or atomic rename, a documented durability
// limitation.
type MountStore struct {
	mu   sync.Mutex
	path string
}

// NewMountStore creates a store backed by the given file path.
func NewMountStore(path string) *MountStore {
	return &MountStore{path: path}
}

// Path returns the backing file path.
func (s *MountStore) Path() string {
	return s.path
}

// Load reads all persisted records. An absent file yields an empty
// table and no error; an undecodable file yields an empty table and
// ErrStoreCorrupt so the caller can log the difference while degrading
// the same way in both cases.
func (s *MountStore) Load() ([]MountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return table.Records, nil
}

// Put inserts or replaces the record for a card.
func (s *MountStore) Put(rec MountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readLocked()
	if err != nil && !errors.Is(err, ErrStoreCorrupt) {
		return err
	}

	replaced := false
	for i := range table.Records {
		if table.Records[i].CardID == rec.CardID {
			table.Records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		table.Records = append(table.Records, rec)
	}

	return s.writeLocked(table)
}

// Delete removes the record for a card. Deleting a card with no record
// is a no-op.
func (s *MountStore) Delete(cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readLocked()
	if err != nil && !errors.Is(err, ErrStoreCorrupt) {
		return err
	}

	kept := table.Records[:0]
	removed := false
	for _, rec := range table.Records {
		if rec.CardID == cardID {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return nil
	}
	table.Records = kept

	return s.writeLocked(table)
}

// Touch updates a record's last-accessed timestamp. Touching a card
// with no record is a no-op.
func (s *MountStore) Touch(cardID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readLocked()
	if err != nil {
		return err
	}

	for i := range table.Records {
		if table.Records[i].CardID == cardID {
			table.Records[i].LastAccessedAt = at.UTC()
			return s.writeLocked(table)
		}
	}
	return nil
}

// readLocked loads the document from disk. Caller holds the lock.
func (s *MountStore) readLocked() (*mountTable, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &mountTable{Version: mountTableVersion}, nil
		}
		return &mountTable{Version: mountTableVersion}, fmt.Errorf("read mount table: %w", err)
	}

	var table mountTable
	if err := json.Unmarshal(data, &table); err != nil {
		return &mountTable{Version: mountTableVersion}, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return &table, nil
}

// writeLocked overwrites the document in place. Caller holds the lock.
func (s *MountStore) writeLocked(table *mountTable) error {
	table.Version = mountTableVersion
	table.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mount table: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create mount table dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write mount table: %w", err)
	}
	return nil
}
