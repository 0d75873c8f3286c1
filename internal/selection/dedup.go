package selection

import (
	"newsreel/internal/models"
	"newsreel/internal/text"
)

// DroppedDuplicate records a candidate suppressed by the duplicate filter,
// referencing the surviving representative of its group.
type DroppedDuplicate struct {
	ItemID     string
	FeedName   string
	KeptItemID string
}

// Filter collapses near-duplicate stories across feeds into a single
// representative per group.
type Filter struct {
	threshold float64
}

// NewFilter creates a Filter with the given similarity threshold in (0, 1].
func NewFilter(threshold float64) *Filter {
	return &Filter{threshold: threshold}
}

// Collapse groups candidates whose normalized title+summary similarity meets
// the threshold, scanning the incoming (newest-first) order and union-merging
// matches. Within each group only the chronologically earliest member
// survives; survivors are returned newest-first. The filter runs after
// per-feed capping, so a suppressed duplicate does not free a slot for
// another item from its feed.
func (f *Filter) Collapse(items []models.CandidateItem) ([]models.CandidateItem, []DroppedDuplicate) {
	if len(items) < 2 {
		return items, nil
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = text.Normalize(item.Title + " " + item.Summary)
	}

	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if find(i) == find(j) {
				continue
			}
			if text.Similarity(keys[i], keys[j]) >= f.threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]models.CandidateItem)
	var roots []int
	for i, item := range items {
		root := find(i)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], item)
	}

	var kept []models.CandidateItem
	var dropped []DroppedDuplicate
	for _, root := range roots {
		group := groups[root]
		sortOldestFirst(group)
		representative := group[0]
		kept = append(kept, representative)
		for _, loser := range group[1:] {
			dropped = append(dropped, DroppedDuplicate{
				ItemID:     loser.ItemID,
				FeedName:   loser.FeedName,
				KeptItemID: representative.ItemID,
			})
		}
	}

	sortNewestFirst(kept)
	return kept, dropped
}
