package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// Collector drives a content source across listing pages and applies the
// date window, body, and dedupe filters.
type Collector struct {
	source ports.ContentSource
	logger *slog.Logger
}

// New wires a collector to one content source.
func New(source ports.ContentSource, logger *slog.Logger) *Collector {
	return &Collector{source: source, logger: logger}
}

// Result carries collected posts plus how many posts were inspected to
// produce them.
type Result struct {
	Posts    []domain.FeedbackPost
	Examined int
}

// Collect paginates newest-first until the date boundary, the item cap, or
// the end of the listing. A post older than start hard-stops pagination:
// listings are monotonically decreasing in time, so nothing older is worth
// fetching. An empty result is a valid outcome.
func (c *Collector) Collect(ctx context.Context, channel string, start, end time.Time, maxItems int) (Result, error) {
	var result Result
	if maxItems <= 0 {
		return result, nil
	}

	seen := map[string]struct{}{}
	cursor := ""

	for {
		posts, next, err := c.source.FetchPage(ctx, channel, cursor)
		if err != nil {
			return Result{}, fmt.Errorf("fetch page for %s: %w", channel, err)
		}

		for _, post := range posts {
			result.Examined++

			if post.CreatedAt.Before(start) {
				c.debug("date boundary reached", "channel", channel, "examined", result.Examined)
				return result, nil
			}
			if post.CreatedAt.After(end) {
				continue
			}
			if post.Body == "" {
				continue
			}
			if _, ok := seen[post.ExternalID]; ok {
				continue
			}

			seen[post.ExternalID] = struct{}{}
			result.Posts = append(result.Posts, post)

			if len(result.Posts) >= maxItems {
				c.debug("item cap reached", "channel", channel, "cap", maxItems)
				return result, nil
			}
		}

		if next == "" {
			break
		}
		cursor = next
	}

	c.debug("listing exhausted", "channel", channel, "collected", len(result.Posts), "examined", result.Examined)
	return result, nil
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
