package domain

import "time"

// FeedbackPost is a core entity describing one piece of content collected
// from a discussion channel. Immutable once fetched.
type FeedbackPost struct {
	ExternalID   string
	Title        string
	Body         string
	Author       string
	Score        int
	CommentCount int
	CreatedAt    time.Time
	Permalink    string
	Channel      string
}

// Provenance records where a summary came from.
type Provenance string

const (
	ProvenanceModel    Provenance = "model"
	ProvenanceFallback Provenance = "fallback"
)

// Sentiment is the tone detected for a post.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ValidSentiment reports whether s is one of the known sentiment tags.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// PostSummary is derived from exactly one FeedbackPost.
type PostSummary struct {
	Narrative  string
	KeyPoints  []string
	Sentiment  Sentiment
	Provenance Provenance
}

// StoredPost is the persisted union of a post, its summary, and job
// metadata. Unique per (channel, external id).
type StoredPost struct {
	Post       FeedbackPost
	Summary    PostSummary
	Content    string
	JobID      string
	IngestedAt time.Time
}

// EngagementSnapshot is an append-only point-in-time engagement reading
// for a stored post, used to compute velocity over a trailing window.
type EngagementSnapshot struct {
	PostExternalID string
	Channel        string
	Score          int
	CommentCount   int
	CapturedAt     time.Time
}

// WorkItemStatus enumerates the lifecycle states of existing work items
// that matter for suggestion deduplication.
type WorkItemStatus string

const (
	WorkItemCreated WorkItemStatus = "created"
	WorkItemPending WorkItemStatus = "pending"
)

// WorkItem is a read-only projection of already-created or already-suggested
// work, supplied for deduplication context only.
type WorkItem struct {
	Title  string
	Theme  string
	Status WorkItemStatus
}

// SyncRequest describes one on-demand collection run.
type SyncRequest struct {
	Channel   string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Limit     int
	JobID     string
}

// SyncReport is the structured outcome of a sync run.
type SyncReport struct {
	ItemsSynced          int
	Message              string
	Warnings             []string
	LimitRequested       int
	LimitApplied         int
	LimitCapped          bool
	AISummaryCount       int
	FallbackSummaryCount int
	SummaryCapHit        bool
	PostsExamined        int
	RangeDays            int
	ProcessingTime       time.Duration
}
