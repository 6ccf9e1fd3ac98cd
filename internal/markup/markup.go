// Package markup cleans generated article HTML.
package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.UGCPolicy()

// Sanitize strips scripts, handlers and unknown tags but keeps structural HTML.
func Sanitize(html string) string {
	return strings.TrimSpace(policy.Sanitize(html))
}

// Excerpt returns the first paragraph text of html, cut to maxRunes on a word boundary.
func Excerpt(html string, maxRunes int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	text := ""
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = strings.TrimSpace(s.Text())
		return text == ""
	})
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	cut := string(runes[:maxRunes])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
