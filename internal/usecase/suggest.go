package usecase

import (
	"context"
	"log/slog"
	"time"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
	"FeedbackScanner/internal/suggest"
)

// SuggestionRun reads the stored pool for a channel, scores it, and writes
// the ranked suggestions back. Safe to re-run at any time: scoring is
// deterministic over the same inputs.
type SuggestionRun struct {
	store  ports.FeedbackStore
	scorer *suggest.Scorer
	logger *slog.Logger
}

// NewSuggestionRun wires the store and scorer.
func NewSuggestionRun(store ports.FeedbackStore, scorer *suggest.Scorer, logger *slog.Logger) *SuggestionRun {
	return &SuggestionRun{store: store, scorer: scorer, logger: logger}
}

// Run scores posts stored within the lookback window against their
// snapshots and the existing work items, persists the resulting
// suggestions, and returns them.
func (r *SuggestionRun) Run(ctx context.Context, channel string, lookback time.Duration) ([]domain.Suggestion, error) {
	since := time.Now().UTC().Add(-lookback)

	posts, err := r.store.ListPosts(ctx, channel, since)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrStorage, "failed to load stored posts", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	snapshots, err := r.store.ListSnapshots(ctx, channel, since)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrStorage, "failed to load engagement snapshots", err)
	}

	existingWork, err := r.store.ListWorkItems(ctx)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrStorage, "failed to load existing work items", err)
	}

	suggestions := r.scorer.ScoreAndSuggest(posts, snapshots, existingWork)
	if len(suggestions) == 0 {
		return nil, nil
	}

	if err := r.store.SaveSuggestions(ctx, suggestions); err != nil {
		return nil, domain.NewJobError(domain.ErrStorage, "failed to save suggestions", err)
	}

	if r.logger != nil {
		r.logger.Info("suggestions updated", "channel", channel, "count", len(suggestions))
	}
	return suggestions, nil
}
