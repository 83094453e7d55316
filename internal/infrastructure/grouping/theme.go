package grouping

import (
	"strings"
	"unicode"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// TokenGrouper clusters posts by token overlap between titles and key
// points. It is a deterministic stand-in for similarity grouping: same
// input order, same clusters, every time.
type TokenGrouper struct {
	threshold float64
}

var _ ports.Grouper = (*TokenGrouper)(nil)

// NewTokenGrouper builds a grouper; threshold is minimum Jaccard overlap
// for joining an existing cluster (0.35 is a reasonable default).
func NewTokenGrouper(threshold float64) *TokenGrouper {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.35
	}
	return &TokenGrouper{threshold: threshold}
}

type cluster struct {
	seed    map[string]struct{}
	members []domain.StoredPost
}

// Group assigns each post to the first cluster whose seed tokens overlap
// enough, or starts a new cluster. The seed stays fixed at the founding
// post's tokens so cluster identity does not drift as members join.
func (g *TokenGrouper) Group(posts []domain.StoredPost) [][]domain.StoredPost {
	var clusters []*cluster

	for _, post := range posts {
		tokens := postTokens(post)

		var joined bool
		for _, c := range clusters {
			if jaccard(tokens, c.seed) >= g.threshold {
				c.members = append(c.members, post)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, &cluster{seed: tokens, members: []domain.StoredPost{post}})
		}
	}

	result := make([][]domain.StoredPost, 0, len(clusters))
	for _, c := range clusters {
		result = append(result, c.members)
	}
	return result
}

func postTokens(post domain.StoredPost) map[string]struct{} {
	tokens := map[string]struct{}{}
	addTokens(tokens, post.Post.Title)
	for _, point := range post.Summary.KeyPoints {
		addTokens(tokens, point)
	}
	return tokens
}

func addTokens(into map[string]struct{}, text string) {
	for _, word := range splitWords(text) {
		if len(word) < 3 || stopwords[word] {
			continue
		}
		into[word] = struct{}{}
	}
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var shared int
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "have": true, "has": true, "was": true, "are": true,
	"but": true, "not": true, "you": true, "can": true, "all": true,
	"when": true, "how": true, "why": true, "what": true, "does": true,
	"doesn": true, "don": true, "its": true, "just": true,
	"about": true, "after": true, "from": true, "into": true, "your": true,
	"would": true, "should": true, "could": true, "there": true,
	"please": true, "still": true, "very": true, "anyone": true,
}
