package domain

// Priority buckets suggestions by impact.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// SuggestionStatus tracks the review state of a suggestion. This core only
// ever creates suggestions as pending; approval happens elsewhere.
type SuggestionStatus string

const SuggestionPending SuggestionStatus = "pending"

// Suggestion is a scored candidate work item produced by the scorer.
type Suggestion struct {
	ID            string
	Title         string
	Description   string
	Theme         string
	Priority      Priority
	ImpactScore   float64 // 0-100
	VelocityScore float64 // 0-30
	Trending      bool
	SourcePostIDs []string
	Status        SuggestionStatus
}
