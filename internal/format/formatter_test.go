package format

import (
	"strings"
	"testing"

	"FeedbackScanner/internal/domain"
)

func TestRenderAllSections(t *testing.T) {
	t.Parallel()

	post := domain.FeedbackPost{
		Title:        "Export to CSV fails",
		Score:        42,
		CommentCount: 7,
	}
	summary := domain.PostSummary{
		Narrative: "Multiple users report the CSV export silently producing empty files.",
		KeyPoints: []string{"export produces empty files", "affects large datasets"},
	}

	got := Render(post, summary)
	want := "**Export to CSV fails**\n\n" +
		"Multiple users report the CSV export silently producing empty files.\n\n" +
		"Key points:\n" +
		"- export produces empty files\n" +
		"- affects large datasets\n\n" +
		"⬆ 42 upvotes · 7 comments"

	if got != want {
		t.Fatalf("unexpected render:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderOmitsEmptyKeyPoints(t *testing.T) {
	t.Parallel()

	post := domain.FeedbackPost{Title: "Minor nit", Score: 1, CommentCount: 0}
	summary := domain.PostSummary{Narrative: "A small gripe."}

	got := Render(post, summary)
	if strings.Contains(got, "Key points") {
		t.Fatalf("key points block should be omitted: %q", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	post := domain.FeedbackPost{Title: "Same in, same out", Score: 10, CommentCount: 3}
	summary := domain.PostSummary{Narrative: "Stable.", KeyPoints: []string{"a"}}

	first := Render(post, summary)
	for i := 0; i < 100; i++ {
		if Render(post, summary) != first {
			t.Fatal("render is not deterministic")
		}
	}
}
