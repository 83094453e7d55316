package forum

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// flattenHTML extracts the visible text from an HTML fragment and collapses
// runs of whitespace, so summarization prompts never see markup.
func flattenHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	// Paragraph and break boundaries become spaces once Fields collapses
	// the text, which keeps sentences from gluing together.
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, li, div").AfterHtml(" ")

	return strings.Join(strings.Fields(doc.Text()), " ")
}
