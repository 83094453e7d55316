package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"FeedbackScanner/internal/collector"
	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/format"
	"FeedbackScanner/internal/ports"
	"FeedbackScanner/internal/source"
	"FeedbackScanner/internal/summarize"
)

const dateLayout = "2006-01-02"

// SyncDeps wires all driven adapters into the sync orchestration.
type SyncDeps struct {
	Sources    *source.Registry
	Summarizer *summarize.Processor
	Store      ports.FeedbackStore
	Logger     *slog.Logger
	Cfg        config.SyncConfig
}

// SyncJob implements the collect-summarize-format-persist workflow for one
// request. It is stateless across runs; concurrent jobs only share the
// store, whose upsert key keeps duplicates out.
type SyncJob struct {
	sources    *source.Registry
	summarizer *summarize.Processor
	store      ports.FeedbackStore
	logger     *slog.Logger
	cfg        config.SyncConfig
}

// NewSyncJob constructs the orchestration component.
func NewSyncJob(deps SyncDeps) *SyncJob {
	cfg := deps.Cfg
	if cfg.MaxPostLimit <= 0 {
		cfg.MaxPostLimit = 400
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 90
	}
	if cfg.JobTimeoutSeconds <= 0 {
		cfg.JobTimeoutSeconds = 540
	}
	if cfg.PersistBatchSize <= 0 {
		cfg.PersistBatchSize = 500
	}

	return &SyncJob{
		sources:    deps.Sources,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// RunSync validates the request, collects posts for the window, summarizes
// them, and persists the formatted results idempotently. Every terminal
// failure comes back as a typed *domain.JobError; advisory degradations
// (clamped limit, fallback summaries, summarization cap) are warnings on a
// successful report.
func (j *SyncJob) RunSync(ctx context.Context, req domain.SyncRequest) (domain.SyncReport, error) {
	started := time.Now()

	window, err := j.validate(req)
	if err != nil {
		return domain.SyncReport{}, err
	}

	src, err := j.sources.ForChannel(req.Channel)
	if err != nil {
		return domain.SyncReport{}, domain.NewJobError(domain.ErrValidation, "channel has no usable source", err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.cfg.JobTimeout())
	defer cancel()

	if err := src.ValidateChannel(ctx, req.Channel); err != nil {
		return domain.SyncReport{}, ensureJobError(err, domain.ErrUpstream, "channel validation failed")
	}

	report := domain.SyncReport{
		LimitRequested: req.Limit,
		LimitApplied:   req.Limit,
		RangeDays:      window.days,
	}
	if req.Limit <= 0 {
		report.LimitRequested = j.cfg.MaxPostLimit
		report.LimitApplied = j.cfg.MaxPostLimit
	} else if req.Limit > j.cfg.MaxPostLimit {
		report.LimitApplied = j.cfg.MaxPostLimit
		report.LimitCapped = true
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("requested limit %d exceeds maximum %d; applied %d", req.Limit, j.cfg.MaxPostLimit, j.cfg.MaxPostLimit))
	}

	collected, err := collector.New(src, j.logger).Collect(ctx, req.Channel, window.start, window.end, report.LimitApplied)
	if err != nil {
		return domain.SyncReport{}, ensureJobError(err, domain.ErrUpstream, "collection failed")
	}
	report.PostsExamined = collected.Examined

	if len(collected.Posts) == 0 {
		report.Message = fmt.Sprintf("no posts found in r/%s between %s and %s", req.Channel, req.StartDate, req.EndDate)
		report.ProcessingTime = time.Since(started)
		return report, nil
	}

	outcome := j.summarizer.Summarize(ctx, collected.Posts)
	report.AISummaryCount = outcome.ModelCount
	report.FallbackSummaryCount = outcome.FallbackCount
	report.SummaryCapHit = outcome.CapHit

	if outcome.CapHit {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("summarization capped; %d posts received fallback summaries beyond the cap", outcome.BeyondCap))
	} else if outcome.FallbackCount > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d posts received fallback summaries", outcome.FallbackCount))
	}

	if ctx.Err() != nil {
		return domain.SyncReport{}, domain.NewJobError(domain.ErrTimeout, "job timed out before persistence", ctx.Err())
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	if err := j.persist(ctx, collected.Posts, outcome.Summaries, jobID); err != nil {
		return domain.SyncReport{}, err
	}

	report.ItemsSynced = len(collected.Posts)
	report.Message = fmt.Sprintf("synced %d posts from r/%s", report.ItemsSynced, req.Channel)
	report.ProcessingTime = time.Since(started)

	if j.logger != nil {
		j.logger.Info("sync complete",
			"channel", req.Channel,
			"synced", report.ItemsSynced,
			"examined", report.PostsExamined,
			"ai_summaries", report.AISummaryCount,
			"fallback_summaries", report.FallbackSummaryCount,
			"elapsed", report.ProcessingTime)
	}
	return report, nil
}

type syncWindow struct {
	start time.Time
	end   time.Time
	days  int
}

// validate fails fast in a fixed order: channel, date syntax, date order,
// range span. Nothing touches the network before all four pass.
func (j *SyncJob) validate(req domain.SyncRequest) (syncWindow, error) {
	if req.Channel == "" {
		return syncWindow{}, domain.Validationf("channel must not be empty")
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return syncWindow{}, domain.Validationf("start_date %q is not a valid YYYY-MM-DD date", req.StartDate)
	}

	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return syncWindow{}, domain.Validationf("end_date %q is not a valid YYYY-MM-DD date", req.EndDate)
	}

	if start.After(end) {
		return syncWindow{}, domain.Validationf("start_date %s is after end_date %s", req.StartDate, req.EndDate)
	}

	spanDays := int(end.Sub(start).Hours() / 24)
	if spanDays > j.cfg.MaxRangeDays {
		return syncWindow{}, domain.Validationf("date range spans %d days, maximum is %d", spanDays, j.cfg.MaxRangeDays)
	}

	return syncWindow{
		start: start,
		end:   end.AddDate(0, 0, 1).Add(-time.Second), // end date is inclusive
		days:  spanDays + 1,
	}, nil
}

// persist formats and upserts posts in bounded batches, then appends one
// engagement snapshot per post so later scorer runs have velocity history.
// A failed batch aborts the rest: a visible failed job beats silent loss.
func (j *SyncJob) persist(ctx context.Context, posts []domain.FeedbackPost, summaries map[string]domain.PostSummary, jobID string) error {
	ingestedAt := time.Now().UTC()

	stored := make([]domain.StoredPost, 0, len(posts))
	snapshots := make([]domain.EngagementSnapshot, 0, len(posts))
	for _, post := range posts {
		summary := summaries[post.ExternalID]
		stored = append(stored, domain.StoredPost{
			Post:       post,
			Summary:    summary,
			Content:    format.Render(post, summary),
			JobID:      jobID,
			IngestedAt: ingestedAt,
		})
		snapshots = append(snapshots, domain.EngagementSnapshot{
			PostExternalID: post.ExternalID,
			Channel:        post.Channel,
			Score:          post.Score,
			CommentCount:   post.CommentCount,
			CapturedAt:     ingestedAt,
		})
	}

	for start := 0; start < len(stored); start += j.cfg.PersistBatchSize {
		end := start + j.cfg.PersistBatchSize
		if end > len(stored) {
			end = len(stored)
		}
		if err := j.store.UpsertPosts(ctx, stored[start:end]); err != nil {
			return ensureJobError(err, domain.ErrStorage, "failed to persist synced posts")
		}
	}

	if err := j.store.AppendSnapshots(ctx, snapshots); err != nil {
		return ensureJobError(err, domain.ErrStorage, "failed to record engagement snapshots")
	}
	return nil
}

func ensureJobError(err error, kind domain.ErrorKind, message string) error {
	var je *domain.JobError
	if errors.As(err, &je) {
		return je
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewJobError(domain.ErrTimeout, "job timed out", err)
	}
	return domain.NewJobError(kind, message, err)
}
