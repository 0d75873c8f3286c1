// Package selection ranks per-feed candidates for a run and collapses
// near-duplicate stories that appear across feeds.
package selection

import (
	"sort"

	"newsreel/internal/models"
)

// hardFeedCap is the absolute ceiling on candidates emitted per feed in a
// single run, independent of configuration.
const hardFeedCap = 5

// Selector applies the per-feed cap and global newest-first ordering.
type Selector struct {
	perFeedCap int
	globalMax  int
}

// NewSelector creates a Selector. perFeedCap above the hard ceiling of 5 is
// clamped down to it; a non-positive perFeedCap is treated as unset and
// falls back to the ceiling (config validation rejects explicit values below
// 1, so only zero values reach here). globalMax <= 0 means unlimited.
func NewSelector(perFeedCap, globalMax int) *Selector {
	if perFeedCap < 1 || perFeedCap > hardFeedCap {
		perFeedCap = hardFeedCap
	}
	return &Selector{perFeedCap: perFeedCap, globalMax: globalMax}
}

// Select produces the ranked candidate list for the run: each feed's items
// sorted newest-first and truncated to the per-feed cap, then the merged set
// re-sorted newest-first across feeds, with ties broken by item ID for
// determinism. A feed with no items simply contributes nothing.
func (s *Selector) Select(byFeed map[string][]models.CandidateItem) []models.CandidateItem {
	var merged []models.CandidateItem
	for _, items := range byFeed {
		capped := append([]models.CandidateItem(nil), items...)
		sortNewestFirst(capped)
		if len(capped) > s.perFeedCap {
			capped = capped[:s.perFeedCap]
		}
		merged = append(merged, capped...)
	}

	sortNewestFirst(merged)
	if s.globalMax > 0 && len(merged) > s.globalMax {
		merged = merged[:s.globalMax]
	}
	return merged
}

// sortNewestFirst orders items by publish time descending, breaking ties by
// item ID ascending so equal timestamps sort deterministically.
func sortNewestFirst(items []models.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		}
		return items[i].ItemID < items[j].ItemID
	})
}

// sortOldestFirst is the inverse ordering used to pick duplicate-group
// representatives.
func sortOldestFirst(items []models.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].PublishedAt.Before(items[j].PublishedAt)
		}
		return items[i].ItemID < items[j].ItemID
	})
}
