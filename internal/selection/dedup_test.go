package selection

import (
	"testing"
	"time"

	"newsreel/internal/models"
)

func dedupCandidate(id, feed, title, summary string, published time.Time) models.CandidateItem {
	return models.CandidateItem{
		ItemID:      id,
		FeedName:    feed,
		Title:       title,
		Summary:     summary,
		PublishedAt: published,
	}
}

func TestCollapseKeepsChronologicallyEarliest(t *testing.T) {
	items := []models.CandidateItem{
		dedupCandidate("newer", "feed-b",
			"Big Upset in the State Final!",
			"The underdogs shocked the reigning champions last night.",
			day(5)),
		dedupCandidate("older", "feed-a",
			"Big upset in state final",
			"Underdogs shocked the reigning champions last night",
			day(2)),
		dedupCandidate("unrelated", "feed-a",
			"Coach signs long-term extension",
			"The club announced a four year contract for the head coach.",
			day(4)),
	}

	kept, dropped := NewFilter(0.84).Collapse(items)

	if len(kept) != 2 {
		t.Fatalf("got %d kept, want 2", len(kept))
	}
	if kept[0].ItemID != "unrelated" || kept[1].ItemID != "older" {
		t.Errorf("wrong survivors: %s, %s", kept[0].ItemID, kept[1].ItemID)
	}
	if len(dropped) != 1 {
		t.Fatalf("got %d dropped, want 1", len(dropped))
	}
	if dropped[0].ItemID != "newer" || dropped[0].KeptItemID != "older" {
		t.Errorf("dropped entry = %+v, want newer referencing older", dropped[0])
	}
}

func TestCollapseLeavesDistinctItemsAlone(t *testing.T) {
	items := []models.CandidateItem{
		dedupCandidate("a", "feed", "Transfer window opens with record bids", "Clubs spent heavily on the opening day.", day(3)),
		dedupCandidate("b", "feed", "Injury update ahead of the derby", "Two starters are doubtful for the weekend match.", day(2)),
	}

	kept, dropped := NewFilter(0.84).Collapse(items)
	if len(kept) != 2 {
		t.Errorf("got %d kept, want 2", len(kept))
	}
	if len(dropped) != 0 {
		t.Errorf("got %d dropped, want 0", len(dropped))
	}
}

func TestCollapseTransitiveGrouping(t *testing.T) {
	// a~b (0.88) and b~c (0.75) clear a 0.7 threshold, a~c (0.64) does
	// not; all three must still land in one group.
	items := []models.CandidateItem{
		dedupCandidate("a", "feed-a",
			"Star striker scores twice in derby win",
			"The striker scored twice as the hosts won the derby.",
			day(1)),
		dedupCandidate("b", "feed-b",
			"Star striker scores twice in derby victory",
			"The striker scored twice as the hosts won the derby match.",
			day(2)),
		dedupCandidate("c", "feed-c",
			"Striker scores twice in derby victory for hosts",
			"Striker scored twice as hosts won the derby match on Sunday.",
			day(3)),
	}

	kept, dropped := NewFilter(0.7).Collapse(items)
	if len(kept) != 1 {
		t.Fatalf("got %d kept, want 1", len(kept))
	}
	if kept[0].ItemID != "a" {
		t.Errorf("survivor = %s, want a", kept[0].ItemID)
	}
	for _, d := range dropped {
		if d.KeptItemID != "a" {
			t.Errorf("dropped %s references %s, want a", d.ItemID, d.KeptItemID)
		}
	}
}

func TestCollapseSmallInputs(t *testing.T) {
	if kept, dropped := NewFilter(0.84).Collapse(nil); len(kept) != 0 || len(dropped) != 0 {
		t.Errorf("empty input: kept=%d dropped=%d", len(kept), len(dropped))
	}

	single := []models.CandidateItem{dedupCandidate("only", "feed", "Lone headline", "Nothing else happened.", day(1))}
	kept, dropped := NewFilter(0.84).Collapse(single)
	if len(kept) != 1 || len(dropped) != 0 {
		t.Errorf("single input: kept=%d dropped=%d", len(kept), len(dropped))
	}
}
