package feed

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	excerptMaxLength = 200
	wordsPerMinute   = 200
	maxTags          = 5
)

// Fixed keyword vocabulary for naive tag extraction.
var tagKeywords = []string{
	"ai", "technology", "crypto", "blockchain", "web3",
	"startup", "business", "marketing", "design", "development",
}

var trailingWordRe = regexp.MustCompile(`\s+\S*$`)

// StripHTML returns the plain text of an HTML fragment.
func StripHTML(content string) string {
	if content == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}

	return strings.TrimSpace(doc.Text())
}

// ExtractExcerpt returns HTML-stripped content truncated to maxLength at a
// word boundary, with an ellipsis suffix when truncated.
func ExtractExcerpt(content string, maxLength int) string {
	clean := StripHTML(content)
	if len(clean) <= maxLength {
		return clean
	}

	truncated := trailingWordRe.ReplaceAllString(clean[:maxLength], "")
	return truncated + "..."
}

// EstimateReadingTime estimates reading minutes at 200 words per minute,
// rounded up, minimum 1.
func EstimateReadingTime(content string) int {
	if content == "" {
		return 0
	}

	words := len(strings.Fields(StripHTML(content)))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}

	return minutes
}

// ExtractImageURL returns the src of the first image in the content, if any.
func ExtractImageURL(content string) string {
	if content == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img").First().Attr("src")
	return src
}

// ExtractTags matches content against the fixed keyword vocabulary,
// returning at most maxTags tags.
func ExtractTags(content string) []string {
	if content == "" {
		return nil
	}

	lower := strings.ToLower(content)

	var tags []string
	for _, keyword := range tagKeywords {
		if strings.Contains(lower, keyword) {
			tags = append(tags, keyword)
			if len(tags) == maxTags {
				break
			}
		}
	}

	return tags
}
