package format

import (
	"fmt"
	"strings"

	"FeedbackScanner/internal/domain"
)

// Render produces the canonical display string for a post and its summary.
// Pure function: identical inputs always yield byte-identical output, which
// is what makes stored content comparable across reruns.
func Render(post domain.FeedbackPost, summary domain.PostSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**\n\n", post.Title)
	b.WriteString(summary.Narrative)

	if len(summary.KeyPoints) > 0 {
		b.WriteString("\n\nKey points:")
		for _, point := range summary.KeyPoints {
			fmt.Fprintf(&b, "\n- %s", point)
		}
	}

	fmt.Fprintf(&b, "\n\n⬆ %d upvotes · %d comments", post.Score, post.CommentCount)
	return b.String()
}
