package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists pipeline output into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.FeedbackStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertPosts writes the batch keyed by (channel, external_id); reruns of
// the same job update rows in place instead of duplicating them.
func (r *PostgresRepository) UpsertPosts(ctx context.Context, posts []domain.StoredPost) error {
	if r.db == nil || len(posts) == 0 {
		return nil
	}

	builder := psql.Insert("feedback_posts").Columns(
		"channel", "external_id", "title", "body", "author",
		"score", "comment_count", "created_at", "permalink",
		"summary", "key_points", "sentiment", "provenance",
		"content", "job_id", "ingested_at",
	)

	for _, p := range posts {
		builder = builder.Values(
			p.Post.Channel,
			p.Post.ExternalID,
			p.Post.Title,
			p.Post.Body,
			p.Post.Author,
			p.Post.Score,
			p.Post.CommentCount,
			p.Post.CreatedAt,
			p.Post.Permalink,
			p.Summary.Narrative,
			pq.StringArray(p.Summary.KeyPoints),
			string(p.Summary.Sentiment),
			string(p.Summary.Provenance),
			p.Content,
			p.JobID,
			p.IngestedAt,
		)
	}

	builder = builder.Suffix(`ON CONFLICT (channel, external_id) DO UPDATE
		SET score = EXCLUDED.score,
		    comment_count = EXCLUDED.comment_count,
		    summary = EXCLUDED.summary,
		    key_points = EXCLUDED.key_points,
		    sentiment = EXCLUDED.sentiment,
		    provenance = EXCLUDED.provenance,
		    content = EXCLUDED.content,
		    job_id = EXCLUDED.job_id,
		    ingested_at = EXCLUDED.ingested_at`)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert posts: %w", err)
	}
	return nil
}

// AppendSnapshots inserts engagement readings; snapshots are append-only.
func (r *PostgresRepository) AppendSnapshots(ctx context.Context, snapshots []domain.EngagementSnapshot) error {
	if r.db == nil || len(snapshots) == 0 {
		return nil
	}

	builder := psql.Insert("engagement_snapshots").
		Columns("channel", "post_external_id", "score", "comment_count", "captured_at")
	for _, s := range snapshots {
		builder = builder.Values(s.Channel, s.PostExternalID, s.Score, s.CommentCount, s.CapturedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build snapshot insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append snapshots: %w", err)
	}
	return nil
}

// ListPosts returns stored posts for one channel created at or after since.
func (r *PostgresRepository) ListPosts(ctx context.Context, channel string, since time.Time) ([]domain.StoredPost, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := psql.Select(
		"channel", "external_id", "title", "body", "author",
		"score", "comment_count", "created_at", "permalink",
		"summary", "key_points", "sentiment", "provenance",
		"content", "job_id", "ingested_at",
	).
		From("feedback_posts").
		Where(sq.Eq{"channel": channel}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build post query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.StoredPost
	for rows.Next() {
		var (
			p         domain.StoredPost
			keyPoints pq.StringArray
			sentiment string
			prov      string
		)
		if err := rows.Scan(
			&p.Post.Channel, &p.Post.ExternalID, &p.Post.Title, &p.Post.Body, &p.Post.Author,
			&p.Post.Score, &p.Post.CommentCount, &p.Post.CreatedAt, &p.Post.Permalink,
			&p.Summary.Narrative, &keyPoints, &sentiment, &prov,
			&p.Content, &p.JobID, &p.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Summary.KeyPoints = keyPoints
		p.Summary.Sentiment = domain.Sentiment(sentiment)
		p.Summary.Provenance = domain.Provenance(prov)
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}

// ListSnapshots returns snapshots for one channel captured at or after since.
func (r *PostgresRepository) ListSnapshots(ctx context.Context, channel string, since time.Time) ([]domain.EngagementSnapshot, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := psql.Select("channel", "post_external_id", "score", "comment_count", "captured_at").
		From("engagement_snapshots").
		Where(sq.Eq{"channel": channel}).
		Where(sq.GtOrEq{"captured_at": since}).
		OrderBy("captured_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.EngagementSnapshot
	for rows.Next() {
		var s domain.EngagementSnapshot
		if err := rows.Scan(&s.Channel, &s.PostExternalID, &s.Score, &s.CommentCount, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return snapshots, nil
}

// ListWorkItems returns the projection of existing work used only for
// suggestion deduplication.
func (r *PostgresRepository) ListWorkItems(ctx context.Context) ([]domain.WorkItem, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := psql.Select("title", "theme", "status").From("work_items").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build work item query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query work items: %w", err)
	}
	defer rows.Close()

	var items []domain.WorkItem
	for rows.Next() {
		var (
			item   domain.WorkItem
			status string
		)
		if err := rows.Scan(&item.Title, &item.Theme, &status); err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		item.Status = domain.WorkItemStatus(status)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// SaveSuggestions inserts a scorer batch.
func (r *PostgresRepository) SaveSuggestions(ctx context.Context, suggestions []domain.Suggestion) error {
	if r.db == nil || len(suggestions) == 0 {
		return nil
	}

	builder := psql.Insert("suggestions").Columns(
		"id", "title", "description", "theme", "priority",
		"impact_score", "velocity_score", "trending", "source_post_ids", "status", "created_at",
	)
	now := time.Now().UTC()
	for _, s := range suggestions {
		builder = builder.Values(
			s.ID, s.Title, s.Description, s.Theme, string(s.Priority),
			s.ImpactScore, s.VelocityScore, s.Trending,
			pq.StringArray(s.SourcePostIDs), string(s.Status), now,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build suggestion insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	return nil
}
