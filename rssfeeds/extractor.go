package rssfeeds

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Bodies at least this long that still carry markup go through readability
// before being flattened.
const readabilityThreshold = 1500

var (
	strictPolicy = bluemonday.StrictPolicy()
	blockTagRe   = regexp.MustCompile(`(?i)<(/?(?:p|div|br|li|ul|ol|h[1-6]|tr|td|blockquote|section|article)\b[^>]*)>`)
	markupRe     = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
)

// PlainText strips all markup from a feed field and collapses whitespace
func PlainText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	spaced := blockTagRe.ReplaceAllString(raw, " <$1> ")
	clean := html.UnescapeString(strictPolicy.Sanitize(spaced))
	return strings.Join(strings.Fields(clean), " ")
}

// ContentText reduces a feed-supplied content body to readable text.
// Long HTML bodies are run through readability first; the plain strip is
// used when that fails or yields nothing.
func ContentText(raw, pageURL string) string {
	if len(raw) >= readabilityThreshold && markupRe.MatchString(raw) {
		if text := extractReadable(raw, pageURL); text != "" {
			return text
		}
	}
	return PlainText(raw)
}

func extractReadable(raw, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	extracted, err := readability.FromReader(strings.NewReader(raw), u)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(extracted.TextContent), " ")
}
