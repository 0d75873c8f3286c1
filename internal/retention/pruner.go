package retention

import (
	"context"
	"log/slog"
	"time"

	"newsreel/internal/objectstore"
	"newsreel/internal/state"
)

// artifactPrefix is the key prefix retention sweeps over.
const artifactPrefix = "videos/"

// ObjectStore lists and deletes aged artifacts.
type ObjectStore interface {
	ListOlderThan(ctx context.Context, prefix string, cutoff time.Time) ([]objectstore.Object, error)
	DeleteBatch(ctx context.Context, keys []string) (int, error)
}

// Stats summarizes one retention sweep.
type Stats struct {
	DeletedObjects int
	PrunedEntries  int
}

// Pruner removes artifacts and state entries older than the retention
// window.
type Pruner struct {
	store  ObjectStore
	window time.Duration
	logger *slog.Logger
}

// NewPruner creates a Pruner with the given retention window. A zero or
// negative window disables pruning.
func NewPruner(store ObjectStore, window time.Duration, logger *slog.Logger) *Pruner {
	return &Pruner{store: store, window: window, logger: logger}
}

// Prune deletes artifacts last modified strictly before now minus the
// window, then drops state entries processed before the same cutoff. Pruning
// failures are reported but the state pass still runs: a stale registry
// entry costs nothing, while skipping it would leak entries forever.
func (p *Pruner) Prune(ctx context.Context, st *state.Store, now time.Time) (Stats, error) {
	var stats Stats
	if p.window <= 0 {
		return stats, nil
	}
	cutoff := now.Add(-p.window)

	objects, err := p.store.ListOlderThan(ctx, artifactPrefix, cutoff)
	if err != nil {
		p.logger.Warn("listing aged artifacts failed", "error", err)
	} else if len(objects) > 0 {
		keys := make([]string, len(objects))
		for i, obj := range objects {
			keys[i] = obj.Key
		}
		deleted, err := p.store.DeleteBatch(ctx, keys)
		stats.DeletedObjects = deleted
		if err != nil {
			p.logger.Warn("deleting aged artifacts failed", "deleted", deleted, "error", err)
		} else {
			p.logger.Info("deleted aged artifacts", "count", deleted)
		}
	}

	for _, entry := range st.Entries() {
		if entry.ProcessedAt.Before(cutoff) {
			st.Remove(entry.ItemID)
			stats.PrunedEntries++
		}
	}
	if stats.PrunedEntries > 0 {
		p.logger.Info("pruned state entries", "count", stats.PrunedEntries)
	}
	return stats, nil
}

// Window returns the configured retention window.
func (p *Pruner) Window() time.Duration {
	return p.window
}

// Days converts a day count into a retention window.
func Days(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * 24 * time.Hour
}
