package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func testCfg() config.SummarizeConfig {
	return config.SummarizeConfig{
		BatchSize:     10,
		Concurrency:   2,
		ModelCap:      400,
		BatchDelayMS:  1,
		FallbackLimit: 500,
	}
}

func makePosts(n int) []domain.FeedbackPost {
	posts := make([]domain.FeedbackPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, domain.FeedbackPost{
			ExternalID: fmt.Sprintf("p%d", i),
			Title:      fmt.Sprintf("title %d", i),
			Body:       fmt.Sprintf("body %d", i),
			CreatedAt:  time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
			Channel:    "widgets",
		})
	}
	return posts
}

// echoCompleter answers every batch with a valid entry per embedded id.
func echoCompleter(ctx context.Context, prompt string) (string, error) {
	var entries []string
	for _, line := range strings.Split(prompt, "\n") {
		if id, ok := strings.CutPrefix(line, "id: "); ok {
			entries = append(entries,
				fmt.Sprintf(`{"id": %q, "summary": "Model summary for %s.", "key_points": ["a", "b"], "sentiment": "negative"}`, id, id))
		}
	}
	return "[" + strings.Join(entries, ",") + "]", nil
}

func TestSummarizeModelPath(t *testing.T) {
	t.Parallel()

	posts := makePosts(23)
	outcome := NewProcessor(completerFunc(echoCompleter), testCfg(), nil).Summarize(context.Background(), posts)

	if outcome.ModelCount != 23 || outcome.FallbackCount != 0 {
		t.Fatalf("expected 23 model summaries, got %d model / %d fallback", outcome.ModelCount, outcome.FallbackCount)
	}
	if outcome.CapHit {
		t.Fatal("cap should not be hit")
	}

	for _, post := range posts {
		summary, ok := outcome.Summaries[post.ExternalID]
		if !ok {
			t.Fatalf("missing summary for %s", post.ExternalID)
		}
		if summary.Provenance != domain.ProvenanceModel {
			t.Fatalf("expected model provenance for %s, got %s", post.ExternalID, summary.Provenance)
		}
		if summary.Sentiment != domain.SentimentNegative {
			t.Fatalf("unexpected sentiment: %s", summary.Sentiment)
		}
	}
}

func TestSummarizeMalformedBatchFallsBack(t *testing.T) {
	t.Parallel()

	broken := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "Sorry, I cannot help with that.", nil
	})

	posts := makePosts(7)
	outcome := NewProcessor(broken, testCfg(), nil).Summarize(context.Background(), posts)

	if outcome.ModelCount != 0 || outcome.FallbackCount != 7 {
		t.Fatalf("expected all fallback, got %d model / %d fallback", outcome.ModelCount, outcome.FallbackCount)
	}
	for _, post := range posts {
		summary := outcome.Summaries[post.ExternalID]
		if summary.Provenance != domain.ProvenanceFallback {
			t.Fatalf("expected fallback provenance for %s", post.ExternalID)
		}
		if summary.Sentiment != domain.SentimentNeutral {
			t.Fatalf("fallback sentiment must be neutral, got %s", summary.Sentiment)
		}
		if len(summary.KeyPoints) != 1 || summary.KeyPoints[0] != post.Title {
			t.Fatalf("fallback key points must be the title, got %v", summary.KeyPoints)
		}
	}
}

func TestSummarizeCallErrorFallsBack(t *testing.T) {
	t.Parallel()

	failing := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream 500")
	})

	outcome := NewProcessor(failing, testCfg(), nil).Summarize(context.Background(), makePosts(3))

	if outcome.FallbackCount != 3 {
		t.Fatalf("expected 3 fallback summaries, got %d", outcome.FallbackCount)
	}
}

func TestSummarizeNilCompleter(t *testing.T) {
	t.Parallel()

	outcome := NewProcessor(nil, testCfg(), nil).Summarize(context.Background(), makePosts(4))

	if outcome.ModelCount != 0 || outcome.FallbackCount != 4 {
		t.Fatalf("expected all fallback without a completer, got %d/%d", outcome.ModelCount, outcome.FallbackCount)
	}
}

func TestSummarizeModelCap(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.ModelCap = 5

	posts := makePosts(12)
	outcome := NewProcessor(completerFunc(echoCompleter), cfg, nil).Summarize(context.Background(), posts)

	if !outcome.CapHit {
		t.Fatal("expected cap hit")
	}
	if outcome.BeyondCap != 7 {
		t.Fatalf("expected 7 posts beyond the cap, got %d", outcome.BeyondCap)
	}
	if outcome.ModelCount != 5 {
		t.Fatalf("expected 5 model summaries, got %d", outcome.ModelCount)
	}
	if outcome.FallbackCount != 7 {
		t.Fatalf("expected 7 fallback summaries, got %d", outcome.FallbackCount)
	}

	// Posts past the cap never reach the model.
	for i := 5; i < 12; i++ {
		summary := outcome.Summaries[fmt.Sprintf("p%d", i)]
		if summary.Provenance != domain.ProvenanceFallback {
			t.Fatalf("post p%d beyond the cap must fall back", i)
		}
	}
}

func TestSummarizePartialBatchResponse(t *testing.T) {
	t.Parallel()

	// Model answers for p0 only; the rest of the batch falls back item by item.
	partial := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return `[{"id": "p0", "summary": "Only the first.", "key_points": [], "sentiment": "positive"}]`, nil
	})

	outcome := NewProcessor(partial, testCfg(), nil).Summarize(context.Background(), makePosts(3))

	if outcome.ModelCount != 1 || outcome.FallbackCount != 2 {
		t.Fatalf("expected 1 model / 2 fallback, got %d/%d", outcome.ModelCount, outcome.FallbackCount)
	}
	if outcome.Summaries["p0"].Narrative != "Only the first." {
		t.Fatalf("unexpected narrative: %q", outcome.Summaries["p0"].Narrative)
	}
}

func TestModelSummarySanitized(t *testing.T) {
	t.Parallel()

	entry := batchEntry{
		ID:        "x",
		Summary:   "  padded  ",
		KeyPoints: []string{"one", "", "two", "three", "four", "five", "six", "seven"},
		Sentiment: "ANGRY",
	}

	summary := modelSummary(entry)
	if summary.Narrative != "padded" {
		t.Fatalf("narrative not trimmed: %q", summary.Narrative)
	}
	if len(summary.KeyPoints) != 6 {
		t.Fatalf("expected key points capped at 6, got %d", len(summary.KeyPoints))
	}
	if summary.Sentiment != domain.SentimentNeutral {
		t.Fatalf("unknown sentiment must normalize to neutral, got %s", summary.Sentiment)
	}
}

func TestFallbackTruncation(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.FallbackLimit = 40

	p := NewProcessor(nil, cfg, nil)
	post := domain.FeedbackPost{
		ExternalID: "long",
		Title:      "A long post",
		Body:       strings.Repeat("padding ", 50),
	}

	summary := p.fallback(post)
	if !strings.HasSuffix(summary.Narrative, "...") {
		t.Fatalf("expected ellipsis on truncation: %q", summary.Narrative)
	}
	if len([]rune(summary.Narrative)) != 43 {
		t.Fatalf("expected 40 runes plus ellipsis, got %d", len([]rune(summary.Narrative)))
	}

	short := p.fallback(domain.FeedbackPost{ExternalID: "s", Title: "Short", Body: "fits"})
	if short.Narrative != "Short: fits" {
		t.Fatalf("unexpected short narrative: %q", short.Narrative)
	}
}
