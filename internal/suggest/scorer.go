package suggest

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// Scorer converts a pool of stored posts plus engagement history into a
// ranked, capped list of suggested work items. Reruns over the same inputs
// recompute the same scores; only the generated ids differ.
type Scorer struct {
	grouper ports.Grouper
	cfg     config.ScoringConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewScorer wires the grouping capability and the scoring policy knobs.
func NewScorer(grouper ports.Grouper, cfg config.ScoringConfig, logger *slog.Logger) *Scorer {
	return &Scorer{
		grouper: grouper,
		cfg:     normalize(cfg),
		logger:  logger,
		now:     time.Now,
	}
}

func normalize(cfg config.ScoringConfig) config.ScoringConfig {
	if cfg.EngagementWeight <= 0 {
		cfg.EngagementWeight = 40
	}
	if cfg.EngagementCeiling <= 0 {
		cfg.EngagementCeiling = 500
	}
	if cfg.RecencyBase <= 0 {
		cfg.RecencyBase = 25
	}
	if cfg.CommentWeight <= 0 {
		cfg.CommentWeight = 20
	}
	if cfg.CommentCeiling <= 0 {
		cfg.CommentCeiling = 200
	}
	if cfg.GrowthMildPct <= 0 {
		cfg.GrowthMildPct = 10
	}
	if cfg.GrowthStrongPct <= 0 {
		cfg.GrowthStrongPct = 20
	}
	if cfg.MildMultiplier <= 0 {
		cfg.MildMultiplier = 1.15
	}
	if cfg.StrongMultiplier <= 0 {
		cfg.StrongMultiplier = 1.3
	}
	if cfg.TrendingVelocity <= 0 {
		cfg.TrendingVelocity = 15
	}
	if cfg.VelocityWindowHours <= 0 {
		cfg.VelocityWindowHours = 48
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 12
	}
	if cfg.NoveltyMinPosts <= 0 {
		cfg.NoveltyMinPosts = 2
	}
	return cfg
}

type postScore struct {
	post     domain.StoredPost
	urgency  float64
	velocity float64
	trending bool
}

// ScoreAndSuggest scores every post, groups them into candidate
// suggestions, drops candidates already covered by existing work, and
// returns the ranked, capped remainder.
func (s *Scorer) ScoreAndSuggest(posts []domain.StoredPost, snapshots []domain.EngagementSnapshot, existingWork []domain.WorkItem) []domain.Suggestion {
	if len(posts) == 0 {
		return nil
	}

	now := s.now().UTC()
	byPost := snapshotsByPost(snapshots)

	scores := make(map[string]postScore, len(posts))
	for _, post := range posts {
		velocity, growth := s.velocity(byPost[post.Post.ExternalID], now)
		urgency := s.urgency(post, now, growth)
		scores[post.Post.ExternalID] = postScore{
			post:     post,
			urgency:  urgency,
			velocity: velocity,
			trending: velocity > s.cfg.TrendingVelocity,
		}
	}

	var suggestions []domain.Suggestion
	for _, group := range s.grouper.Group(posts) {
		if len(group) == 0 {
			continue
		}
		candidate := s.buildSuggestion(group, scores)
		if s.coveredByExisting(candidate, group, existingWork, now) {
			s.debug("suggestion suppressed by existing work", "title", candidate.Title)
			continue
		}
		suggestions = append(suggestions, candidate)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].ImpactScore != suggestions[j].ImpactScore {
			return suggestions[i].ImpactScore > suggestions[j].ImpactScore
		}
		if suggestions[i].VelocityScore != suggestions[j].VelocityScore {
			return suggestions[i].VelocityScore > suggestions[j].VelocityScore
		}
		return suggestions[i].Title < suggestions[j].Title
	})

	if len(suggestions) > s.cfg.MaxSuggestions {
		suggestions = suggestions[:s.cfg.MaxSuggestions]
	}
	return suggestions
}

// urgency is the weighted sum of normalized engagement, a recency-scaled
// base, and normalized discussion volume, boosted by the growth multiplier
// and clamped to 100.
func (s *Scorer) urgency(post domain.StoredPost, now time.Time, growthPct float64) float64 {
	engagement := s.cfg.EngagementWeight * ratio(float64(post.Post.Score), s.cfg.EngagementCeiling)
	recency := s.cfg.RecencyBase * recencyMultiplier(now.Sub(post.Post.CreatedAt))
	volume := s.cfg.CommentWeight * ratio(float64(post.Post.CommentCount), s.cfg.CommentCeiling)

	score := (engagement + recency + volume) * s.growthMultiplier(growthPct)
	return clamp(score, 0, 100)
}

// growthMultiplier is a step function of average growth: 1.0 at or below
// the mild threshold, the mild boost up to the strong threshold, and the
// strong boost above it.
func (s *Scorer) growthMultiplier(growthPct float64) float64 {
	switch {
	case growthPct > s.cfg.GrowthStrongPct:
		return s.cfg.StrongMultiplier
	case growthPct > s.cfg.GrowthMildPct:
		return s.cfg.MildMultiplier
	default:
		return 1.0
	}
}

// velocity computes the averaged percentage growth in score and comment
// count between the oldest and newest snapshot inside the trailing window.
// Fewer than two snapshots in window means no velocity signal at all.
// Returns the clamped 0-30 velocity score and the raw average growth.
func (s *Scorer) velocity(snapshots []domain.EngagementSnapshot, now time.Time) (float64, float64) {
	cutoff := now.Add(-s.cfg.VelocityWindow())

	var inWindow []domain.EngagementSnapshot
	for _, snap := range snapshots {
		if !snap.CapturedAt.Before(cutoff) {
			inWindow = append(inWindow, snap)
		}
	}
	if len(inWindow) < 2 {
		return 0, 0
	}

	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].CapturedAt.Before(inWindow[j].CapturedAt)
	})

	oldest, newest := inWindow[0], inWindow[len(inWindow)-1]
	growth := (growthPct(oldest.Score, newest.Score) + growthPct(oldest.CommentCount, newest.CommentCount)) / 2

	return clamp(growth, 0, 30), growth
}

func (s *Scorer) buildSuggestion(group []domain.StoredPost, scores map[string]postScore) domain.Suggestion {
	members := make([]postScore, 0, len(group))
	for _, post := range group {
		members = append(members, scores[post.Post.ExternalID])
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].urgency > members[j].urgency
	})

	var (
		total    float64
		velocity float64
		trending bool
		ids      = make([]string, 0, len(members))
	)
	for _, m := range members {
		total += m.urgency
		if m.velocity > velocity {
			velocity = m.velocity
		}
		trending = trending || m.trending
		ids = append(ids, m.post.Post.ExternalID)
	}

	impact := clamp(total/float64(len(members)), 0, 100)
	top := members[0].post

	return domain.Suggestion{
		ID:            uuid.NewString(),
		Title:         top.Post.Title,
		Description:   describe(members),
		Theme:         dominantTheme(members),
		Priority:      priorityFor(impact),
		ImpactScore:   impact,
		VelocityScore: velocity,
		Trending:      trending,
		SourcePostIDs: ids,
		Status:        domain.SuggestionPending,
	}
}

// coveredByExisting suppresses a candidate that closely matches work
// already created or pending, unless enough of its contributing posts are
// fresh evidence inside the velocity window (the novelty test).
func (s *Scorer) coveredByExisting(candidate domain.Suggestion, group []domain.StoredPost, existingWork []domain.WorkItem, now time.Time) bool {
	matched := false
	for _, item := range existingWork {
		if item.Status != domain.WorkItemCreated && item.Status != domain.WorkItemPending {
			continue
		}
		if titleSimilar(candidate.Title, item.Title) || sameTheme(candidate.Theme, item.Theme) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	cutoff := now.Add(-s.cfg.VelocityWindow())
	var fresh int
	for _, post := range group {
		if !post.Post.CreatedAt.Before(cutoff) {
			fresh++
		}
	}
	return fresh < s.cfg.NoveltyMinPosts
}

func (s *Scorer) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func describe(members []postScore) string {
	channel := members[0].post.Post.Channel
	if len(members) == 1 {
		return fmt.Sprintf("Raised once in r/%s: %s", channel, members[0].post.Post.Title)
	}
	return fmt.Sprintf("Recurring theme across %d posts in r/%s. Most urgent: %s",
		len(members), channel, members[0].post.Post.Title)
}

// dominantTheme picks the most frequent meaningful title token across the
// group, ties broken lexicographically so reruns agree.
func dominantTheme(members []postScore) string {
	counts := map[string]int{}
	for _, m := range members {
		seen := map[string]bool{}
		for _, word := range strings.Fields(strings.ToLower(m.post.Post.Title)) {
			word = strings.Trim(word, ".,!?:;\"'()[]")
			if len(word) < 4 || seen[word] {
				continue
			}
			seen[word] = true
			counts[word]++
		}
	}

	var theme string
	var best int
	for word, count := range counts {
		if count > best || (count == best && (theme == "" || word < theme)) {
			theme = word
			best = count
		}
	}
	return theme
}

func priorityFor(impact float64) domain.Priority {
	switch {
	case impact >= 70:
		return domain.PriorityHigh
	case impact >= 40:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func titleSimilar(a, b string) bool {
	ta := titleTokens(a)
	tb := titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}

	var shared int
	for token := range ta {
		if tb[token] {
			shared++
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(shared)/float64(smaller) >= 0.6
}

func titleTokens(title string) map[string]bool {
	tokens := map[string]bool{}
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,!?:;\"'()[]")
		if len(word) >= 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func sameTheme(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

func snapshotsByPost(snapshots []domain.EngagementSnapshot) map[string][]domain.EngagementSnapshot {
	byPost := map[string][]domain.EngagementSnapshot{}
	for _, snap := range snapshots {
		byPost[snap.PostExternalID] = append(byPost[snap.PostExternalID], snap)
	}
	return byPost
}

func recencyMultiplier(age time.Duration) float64 {
	switch {
	case age <= 7*24*time.Hour:
		return 1.5
	case age <= 30*24*time.Hour:
		return 1.0
	default:
		return 0.6
	}
}

// growthPct guards against a zero baseline: a reading that appears from
// nothing is not measurable growth.
func growthPct(oldest, newest int) float64 {
	if oldest <= 0 {
		return 0
	}
	return float64(newest-oldest) / float64(oldest) * 100
}

func ratio(value, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	r := value / ceiling
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
