package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

const (
	defaultBatchSize     = 10
	defaultConcurrency   = 5
	defaultModelCap      = 400
	defaultFallbackLimit = 500
	promptBodyLimit      = 1500
)

// Processor turns collected posts into structured summaries, one model
// call per batch, with a deterministic local fallback for anything the
// model cannot or may not handle. Summarize never fails a run.
type Processor struct {
	completer     ports.ChatCompleter
	batchSize     int
	concurrency   int
	modelCap      int
	batchDelay    time.Duration
	fallbackLimit int
	logger        *slog.Logger
}

// NewProcessor wires a chat completer; a nil completer sends every post
// down the fallback path, which keeps the pipeline usable without a key.
func NewProcessor(completer ports.ChatCompleter, cfg config.SummarizeConfig, logger *slog.Logger) *Processor {
	p := &Processor{
		completer:     completer,
		batchSize:     cfg.BatchSize,
		concurrency:   cfg.Concurrency,
		modelCap:      cfg.ModelCap,
		batchDelay:    cfg.BatchDelay(),
		fallbackLimit: cfg.FallbackLimit,
		logger:        logger,
	}

	if p.batchSize <= 0 {
		p.batchSize = defaultBatchSize
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultConcurrency
	}
	if p.modelCap <= 0 {
		p.modelCap = defaultModelCap
	}
	if p.fallbackLimit <= 0 {
		p.fallbackLimit = defaultFallbackLimit
	}

	return p
}

// Outcome reconciles summaries onto post ids plus aggregate provenance
// counts for the job report.
type Outcome struct {
	Summaries     map[string]domain.PostSummary
	ModelCount    int
	FallbackCount int
	CapHit        bool
	BeyondCap     int // posts the cap kept away from the model entirely
}

// Summarize processes posts in fixed-size batches with bounded
// concurrency. Posts beyond the per-run model cap never reach the model;
// they get the fallback summary so cost stays bounded no matter how large
// the collection result was.
func (p *Processor) Summarize(ctx context.Context, posts []domain.FeedbackPost) Outcome {
	outcome := Outcome{Summaries: make(map[string]domain.PostSummary, len(posts))}
	if len(posts) == 0 {
		return outcome
	}

	head := posts
	if len(posts) > p.modelCap {
		head = posts[:p.modelCap]
		outcome.CapHit = true
		outcome.BeyondCap = len(posts) - p.modelCap
		for _, post := range posts[p.modelCap:] {
			outcome.Summaries[post.ExternalID] = p.fallback(post)
		}
	}

	if p.completer == nil {
		for _, post := range head {
			outcome.Summaries[post.ExternalID] = p.fallback(post)
		}
		p.tally(&outcome)
		return outcome
	}

	batches := chunk(head, p.batchSize)
	results := make([]map[string]domain.PostSummary, len(batches))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i, batch := range batches {
		if i > 0 && p.batchDelay > 0 {
			if err := sleepCtx(ctx, p.batchDelay); err != nil {
				// Cancelled mid-run: no further model calls, remaining
				// batches degrade to fallback.
				for j := i; j < len(batches); j++ {
					results[j] = p.fallbackBatch(batches[j])
				}
				break
			}
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, batch []domain.FeedbackPost) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = p.processBatch(ctx, batch)
		}(i, batch)
	}

	wg.Wait()

	for _, batchResult := range results {
		for id, summary := range batchResult {
			outcome.Summaries[id] = summary
		}
	}

	p.tally(&outcome)
	return outcome
}

// processBatch issues one model call for the batch and reconciles the
// parsed entries back onto posts by id. Any call or parse failure sends
// the entire batch down the fallback path instead of failing the run.
func (p *Processor) processBatch(ctx context.Context, batch []domain.FeedbackPost) map[string]domain.PostSummary {
	if ctx.Err() != nil {
		return p.fallbackBatch(batch)
	}

	text, err := p.completer.Complete(ctx, buildPrompt(batch))
	if err != nil {
		p.warn("model call failed, batch falling back", "size", len(batch), "error", err)
		return p.fallbackBatch(batch)
	}

	entries, ok := parseBatch(text)
	if !ok {
		p.warn("model response malformed, batch falling back", "size", len(batch))
		return p.fallbackBatch(batch)
	}

	byID := make(map[string]batchEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	result := make(map[string]domain.PostSummary, len(batch))
	for _, post := range batch {
		entry, ok := byID[post.ExternalID]
		if !ok {
			result[post.ExternalID] = p.fallback(post)
			continue
		}
		result[post.ExternalID] = modelSummary(entry)
	}
	return result
}

func modelSummary(entry batchEntry) domain.PostSummary {
	sentiment := domain.Sentiment(strings.ToLower(strings.TrimSpace(entry.Sentiment)))
	if !domain.ValidSentiment(sentiment) {
		sentiment = domain.SentimentNeutral
	}

	points := make([]string, 0, len(entry.KeyPoints))
	for _, point := range entry.KeyPoints {
		point = strings.TrimSpace(point)
		if point == "" {
			continue
		}
		points = append(points, point)
		if len(points) == 6 {
			break
		}
	}

	return domain.PostSummary{
		Narrative:  strings.TrimSpace(entry.Summary),
		KeyPoints:  points,
		Sentiment:  sentiment,
		Provenance: domain.ProvenanceModel,
	}
}

// fallback builds the deterministic local summary: truncated title+body,
// the title as the single key point, neutral sentiment.
func (p *Processor) fallback(post domain.FeedbackPost) domain.PostSummary {
	narrative := post.Title
	if post.Body != "" {
		narrative = post.Title + ": " + post.Body
	}
	narrative = truncate(narrative, p.fallbackLimit)

	return domain.PostSummary{
		Narrative:  narrative,
		KeyPoints:  []string{post.Title},
		Sentiment:  domain.SentimentNeutral,
		Provenance: domain.ProvenanceFallback,
	}
}

func (p *Processor) fallbackBatch(batch []domain.FeedbackPost) map[string]domain.PostSummary {
	result := make(map[string]domain.PostSummary, len(batch))
	for _, post := range batch {
		result[post.ExternalID] = p.fallback(post)
	}
	return result
}

func (p *Processor) tally(outcome *Outcome) {
	outcome.ModelCount = 0
	outcome.FallbackCount = 0
	for _, summary := range outcome.Summaries {
		if summary.Provenance == domain.ProvenanceModel {
			outcome.ModelCount++
		} else {
			outcome.FallbackCount++
		}
	}
}

func (p *Processor) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func buildPrompt(batch []domain.FeedbackPost) string {
	var b strings.Builder
	b.WriteString("Summarize each of the following forum posts.\n")
	b.WriteString("Respond with ONLY a JSON array, one object per post:\n")
	b.WriteString(`[{"id": "...", "summary": "2-3 sentences", "key_points": ["..."], "sentiment": "positive|negative|neutral|mixed"}]`)
	b.WriteString("\nKeep at most 6 key points per post. Use the exact ids given.\n")

	for _, post := range batch {
		fmt.Fprintf(&b, "\n---\nid: %s\ntitle: %s\nbody: %s\n", post.ExternalID, post.Title, truncate(post.Body, promptBodyLimit))
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func chunk(posts []domain.FeedbackPost, size int) [][]domain.FeedbackPost {
	var batches [][]domain.FeedbackPost
	for start := 0; start < len(posts); start += size {
		end := start + size
		if end > len(posts) {
			end = len(posts)
		}
		batches = append(batches, posts[start:end])
	}
	return batches
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
