package grouping

import (
	"testing"

	"FeedbackScanner/internal/domain"
)

func post(id, title string, keyPoints ...string) domain.StoredPost {
	return domain.StoredPost{
		Post:    domain.FeedbackPost{ExternalID: id, Title: title},
		Summary: domain.PostSummary{KeyPoints: keyPoints},
	}
}

func TestGroupClustersSimilarTitles(t *testing.T) {
	t.Parallel()

	posts := []domain.StoredPost{
		post("a", "CSV export fails on large files"),
		post("b", "CSV export broken for large files"),
		post("c", "Please add dark mode theme option"),
	}

	groups := NewTokenGrouper(0.35).Group(posts)
	if len(groups) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].Post.ExternalID != "a" || groups[0][1].Post.ExternalID != "b" {
		t.Fatalf("unexpected first cluster: %+v", groups[0])
	}
	if len(groups[1]) != 1 || groups[1][0].Post.ExternalID != "c" {
		t.Fatalf("unexpected second cluster: %+v", groups[1])
	}
}

func TestGroupUsesKeyPointTokens(t *testing.T) {
	t.Parallel()

	posts := []domain.StoredPost{
		post("a", "App keeps crashing", "crash during csv import", "large spreadsheet"),
		post("b", "Unusable lately", "crash during csv import", "large spreadsheet"),
	}

	groups := NewTokenGrouper(0.35).Group(posts)
	if len(groups) != 1 {
		t.Fatalf("expected key points to join the posts, got %d clusters", len(groups))
	}
}

func TestGroupSeparatesUnrelatedPosts(t *testing.T) {
	t.Parallel()

	posts := []domain.StoredPost{
		post("a", "Billing page shows wrong currency"),
		post("b", "Keyboard shortcuts stopped working"),
		post("c", "Sync conflicts lose edits"),
	}

	groups := NewTokenGrouper(0.35).Group(posts)
	if len(groups) != 3 {
		t.Fatalf("expected 3 singleton clusters, got %d", len(groups))
	}
}

func TestGroupDeterministic(t *testing.T) {
	t.Parallel()

	posts := []domain.StoredPost{
		post("a", "CSV export fails on large files"),
		post("b", "CSV export broken for large files"),
		post("c", "Dark mode theme option"),
		post("d", "Export to csv hangs on large files"),
	}

	g := NewTokenGrouper(0.35)
	first := g.Group(posts)
	for i := 0; i < 50; i++ {
		again := g.Group(posts)
		if len(again) != len(first) {
			t.Fatal("cluster count changed between runs")
		}
		for j := range again {
			if len(again[j]) != len(first[j]) {
				t.Fatalf("cluster %d size changed between runs", j)
			}
			for k := range again[j] {
				if again[j][k].Post.ExternalID != first[j][k].Post.ExternalID {
					t.Fatal("cluster membership changed between runs")
				}
			}
		}
	}
}

func TestPostTokensSplitContractions(t *testing.T) {
	t.Parallel()

	// the apostrophe is a separator, so "it's" yields "it" and "s",
	// both under the length floor
	tokens := postTokens(post("a", "it's broken"))
	if len(tokens) != 1 {
		t.Fatalf("expected only one token, got %v", tokens)
	}
	if _, ok := tokens["broken"]; !ok {
		t.Fatalf("expected token %q, got %v", "broken", tokens)
	}
}

func TestNewTokenGrouperClampsThreshold(t *testing.T) {
	t.Parallel()

	for _, bad := range []float64{0, -1, 1.5} {
		if g := NewTokenGrouper(bad); g.threshold != 0.35 {
			t.Fatalf("threshold %v should fall back to default, got %v", bad, g.threshold)
		}
	}
}
