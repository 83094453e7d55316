package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/infrastructure/forum"
	"FeedbackScanner/internal/infrastructure/grouping"
	"FeedbackScanner/internal/infrastructure/llm"
	"FeedbackScanner/internal/infrastructure/scheduler"
	"FeedbackScanner/internal/infrastructure/storage"
	"FeedbackScanner/internal/infrastructure/telegram"
	"FeedbackScanner/internal/logging"
	"FeedbackScanner/internal/ports"
	"FeedbackScanner/internal/source"
	"FeedbackScanner/internal/suggest"
	"FeedbackScanner/internal/summarize"
	"FeedbackScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg         config.Config
	db          *sql.DB
	sync        *usecase.SyncJob
	suggestions *usecase.SuggestionRun
	recurring   *usecase.Recurring
	logger      *slog.Logger
}

// New builds a runnable application instance. The LLM and Telegram
// integrations stay nil when unconfigured; the pipeline degrades to
// fallback summaries and skips digests instead of failing.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := storage.NewPostgresRepository(db)

	registry := source.NewRegistry(cfg.Channels)
	registry.Register(source.DefaultKind, forum.NewClient(cfg.Forum, nil, baseLogger.With("component", "source.forum")))

	var completer ports.ChatCompleter
	if cfg.LLM.APIKey != "" {
		completer = llm.NewChatClient(cfg.LLM)
	}
	processor := summarize.NewProcessor(completer, cfg.Summarize, baseLogger.With("component", "summarize"))

	syncJob := usecase.NewSyncJob(usecase.SyncDeps{
		Sources:    registry,
		Summarizer: processor,
		Store:      store,
		Logger:     baseLogger.With("component", "sync"),
		Cfg:        cfg.Sync,
	})

	scorer := suggest.NewScorer(
		grouping.NewTokenGrouper(cfg.Scoring.GroupThreshold),
		cfg.Scoring,
		baseLogger.With("component", "scorer"),
	)
	suggestions := usecase.NewSuggestionRun(store, scorer, baseLogger.With("component", "suggestions"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	recurring := usecase.NewRecurring(
		scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
		syncJob,
		suggestions,
		notifier,
		cfg.Channels,
		cfg.Sync.WindowDays,
		baseLogger.With("component", "recurring"),
	)

	return &Application{
		cfg:         cfg,
		db:          db,
		sync:        syncJob,
		suggestions: suggestions,
		recurring:   recurring,
		logger:      baseLogger,
	}, nil
}

// RunSync executes one on-demand sync job.
func (a *Application) RunSync(ctx context.Context, req domain.SyncRequest) (domain.SyncReport, error) {
	return a.sync.RunSync(ctx, req)
}

// RunSuggestions rescores the stored pool for one channel.
func (a *Application) RunSuggestions(ctx context.Context, channel string) ([]domain.Suggestion, error) {
	lookback := time.Duration(a.cfg.Sync.WindowDays) * 24 * time.Hour
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return a.suggestions.Run(ctx, channel, lookback)
}

// RunScheduled starts the recurring driver and blocks until ctx is done.
func (a *Application) RunScheduled(ctx context.Context) error {
	if err := a.recurring.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.recurring.Stop(stopCtx)
}

// Channels lists the configured channel names.
func (a *Application) Channels() []string {
	names := make([]string, 0, len(a.cfg.Channels))
	for _, ch := range a.cfg.Channels {
		names = append(names, ch.Name)
	}
	return names
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
