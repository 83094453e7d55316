package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// Recurring wires the cron-like driver with the sync and suggestion use
// cases: one scheduled tick syncs every configured channel over the
// trailing window, refreshes suggestions, and publishes a run digest.
type Recurring struct {
	driver      ports.Scheduler
	sync        *SyncJob
	suggestions *SuggestionRun
	notifier    ports.Notifier
	channels    []config.ChannelConfig
	windowDays  int
	logger      *slog.Logger
}

// NewRecurring returns a helper to start/stop recurring jobs.
func NewRecurring(driver ports.Scheduler, syncJob *SyncJob, suggestions *SuggestionRun,
	notifier ports.Notifier, channels []config.ChannelConfig, windowDays int, logger *slog.Logger) *Recurring {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Recurring{
		driver:      driver,
		sync:        syncJob,
		suggestions: suggestions,
		notifier:    notifier,
		channels:    channels,
		windowDays:  windowDays,
		logger:      logger,
	}
}

// Start registers the recurring run with the provided scheduler.
func (r *Recurring) Start(ctx context.Context) error {
	if r.driver == nil || r.sync == nil {
		return nil
	}

	return r.driver.Start(ctx, func(trigger time.Time) {
		r.runAll(ctx, trigger)
	})
}

// Stop gracefully tears down the underlying scheduler.
func (r *Recurring) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Stop(ctx)
}

func (r *Recurring) runAll(ctx context.Context, trigger time.Time) {
	var digest strings.Builder

	for _, channel := range r.channels {
		req := domain.SyncRequest{
			Channel:   channel.Name,
			StartDate: trigger.AddDate(0, 0, -r.windowDays).Format(dateLayout),
			EndDate:   trigger.Format(dateLayout),
		}

		report, err := r.sync.RunSync(ctx, req)
		if err != nil {
			if r.logger != nil {
				r.logger.Error("scheduled sync failed", "channel", channel.Name, "kind", domain.KindOf(err), "error", err)
			}
			fmt.Fprintf(&digest, "- r/%s: sync failed (%s)\n", channel.Name, domain.KindOf(err))
			continue
		}

		line := fmt.Sprintf("- r/%s: %s (%d AI, %d fallback)\n",
			channel.Name, report.Message, report.AISummaryCount, report.FallbackSummaryCount)
		digest.WriteString(line)

		if r.suggestions != nil {
			lookback := time.Duration(r.windowDays) * 24 * time.Hour
			suggested, err := r.suggestions.Run(ctx, channel.Name, lookback)
			if err != nil {
				if r.logger != nil {
					r.logger.Error("suggestion run failed", "channel", channel.Name, "error", err)
				}
				continue
			}
			if len(suggested) > 0 {
				fmt.Fprintf(&digest, "  %d suggestions pending review, top: %s\n", len(suggested), suggested[0].Title)
			}
		}
	}

	if r.notifier == nil || digest.Len() == 0 {
		return
	}
	if err := r.notifier.PublishDigest(ctx, "Feedback sync run\n"+digest.String()); err != nil && r.logger != nil {
		r.logger.Warn("digest publish failed", "error", err)
	}
}
