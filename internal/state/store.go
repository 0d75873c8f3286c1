package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// stateKey is the blob key holding the processed-item registry.
const stateKey = "state/processed.json"

const stateVersion = 1

// ErrNotExist is returned by Blob.Get when no blob exists under the key.
var ErrNotExist = errors.New("state: blob does not exist")

// Blob is the durable backend the store persists its snapshot to.
type Blob interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Entry records one successfully processed item.
type Entry struct {
	ItemID      string    `json:"item_id"`
	ProcessedAt time.Time `json:"processed_at"`
	ArtifactKey string    `json:"artifact_key"`
	LinkExpiry  time.Time `json:"link_expiry,omitempty"`
}

type snapshot struct {
	Version   int              `json:"version"`
	Processed map[string]Entry `json:"processed"`
}

// Store holds the set of processed item IDs for the single writer of a run.
// It is not safe for concurrent use.
type Store struct {
	blob    Blob
	entries map[string]Entry
	logger  *slog.Logger
}

// NewStore creates an empty store backed by blob. Call Load before use.
func NewStore(blob Blob, logger *slog.Logger) *Store {
	return &Store{
		blob:    blob,
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// Load reads the persisted snapshot. A missing, unreadable or corrupt
// snapshot yields an empty store rather than an error, so a bad blob or a
// flaky backend cannot wedge every subsequent run; the damage is logged and
// the registry rebuilds over time. Items lost this way risk reprocessing,
// which the artifact-key existence check downstream absorbs.
func (s *Store) Load(ctx context.Context) {
	data, err := s.blob.Get(ctx, stateKey)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			s.logger.Info("no existing state, starting fresh")
			return
		}
		s.logger.Warn("state load failed, starting with empty state",
			"error", err)
		s.entries = make(map[string]Entry)
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("state blob is corrupt, starting fresh", "error", err)
		s.entries = make(map[string]Entry)
		return
	}
	if snap.Processed == nil {
		snap.Processed = make(map[string]Entry)
	}
	s.entries = snap.Processed
	s.logger.Info("loaded state", "entries", len(s.entries))
}

// Contains reports whether itemID has already been processed.
func (s *Store) Contains(itemID string) bool {
	_, ok := s.entries[itemID]
	return ok
}

// Record upserts an entry. The change is in-memory until Save.
func (s *Store) Record(entry Entry) {
	s.entries[entry.ItemID] = entry
}

// Remove drops an entry, typically after its artifact was pruned.
func (s *Store) Remove(itemID string) {
	delete(s.entries, itemID)
}

// Entries returns a copy of all recorded entries.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Save writes the full snapshot back to the blob in one put, so readers see
// either the previous version or the new one, never a partial write.
func (s *Store) Save(ctx context.Context) error {
	snap := snapshot{Version: stateVersion, Processed: s.entries}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := s.blob.Put(ctx, stateKey, data); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}
