package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"FeedbackScanner/internal/app"
	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/logging"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "sync", "sync | suggest | schedule")
	channel := flag.String("channel", "", "channel to process (default: all configured)")
	start := flag.String("start", "", "start date YYYY-MM-DD (default: trailing window)")
	end := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	limit := flag.Int("limit", 0, "post limit for a sync run")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channels := application.Channels()
	if *channel != "" {
		channels = []string{*channel}
	}

	switch *mode {
	case "schedule":
		if err := application.RunScheduled(ctx); err != nil {
			logger.Error("scheduler stopped", "error", err)
			os.Exit(1)
		}

	case "suggest":
		for _, name := range channels {
			suggestions, err := application.RunSuggestions(ctx, name)
			if err != nil {
				logger.Error("suggestion run failed", "channel", name, "error", err)
				os.Exit(1)
			}
			logger.Info("suggestions refreshed", "channel", name, "count", len(suggestions))
		}

	default:
		startDate, endDate := defaultWindow(cfg, *start, *end)
		for _, name := range channels {
			report, err := application.RunSync(ctx, domain.SyncRequest{
				Channel:   name,
				StartDate: startDate,
				EndDate:   endDate,
				Limit:     *limit,
			})
			if err != nil {
				logger.Error("sync failed", "channel", name, "kind", domain.KindOf(err), "error", err)
				os.Exit(1)
			}
			logger.Info("sync finished", "channel", name, "message", report.Message, "warnings", len(report.Warnings))
		}
	}
}

func defaultWindow(cfg config.Config, start, end string) (string, string) {
	const layout = "2006-01-02"
	now := time.Now().UTC()

	if end == "" {
		end = now.Format(layout)
	}
	if start == "" {
		days := cfg.Sync.WindowDays
		if days <= 0 {
			days = 7
		}
		start = now.AddDate(0, 0, -days).Format(layout)
	}
	return start, end
}
