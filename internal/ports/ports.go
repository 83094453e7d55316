package ports

import (
	"context"
	"time"

	"FeedbackScanner/internal/domain"
)

// ContentSource reads paginated posts from an upstream discussion channel.
// Pages arrive newest-first; an empty next cursor means the last page.
type ContentSource interface {
	ValidateChannel(ctx context.Context, channel string) error
	FetchPage(ctx context.Context, channel, cursor string) ([]domain.FeedbackPost, string, error)
}

// FeedbackStore persists pipeline output. Upserts are keyed by
// (channel, external id) so reruns never duplicate rows.
type FeedbackStore interface {
	UpsertPosts(ctx context.Context, posts []domain.StoredPost) error
	AppendSnapshots(ctx context.Context, snapshots []domain.EngagementSnapshot) error
	ListPosts(ctx context.Context, channel string, since time.Time) ([]domain.StoredPost, error)
	ListSnapshots(ctx context.Context, channel string, since time.Time) ([]domain.EngagementSnapshot, error)
	ListWorkItems(ctx context.Context) ([]domain.WorkItem, error)
	SaveSuggestions(ctx context.Context, suggestions []domain.Suggestion) error
}

// ChatCompleter sends one prompt to a chat-completion service and returns
// the assistant text verbatim. Callers must not assume the text is JSON.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Grouper clusters stored posts by thematic similarity. Cluster membership
// is the grouper's business; scoring contracts do not depend on how the
// clusters were formed.
type Grouper interface {
	Group(posts []domain.StoredPost) [][]domain.StoredPost
}

// Notifier streams run digests to a chat channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring syncs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
