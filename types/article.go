package types

import (
	"strings"
	"time"
)

// Article is a normalized news item taken from a feed entry
type Article struct {
	Source    string     `json:"source"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Summary   string     `json:"summary"`
	Content   string     `json:"content"`
	Published *time.Time `json:"published"`
}

// Key identifies an article across sources: trimmed, lowercased title plus the URL.
type Key struct {
	Title string
	URL   string
}

// IdentityKey returns the deduplication key for an article
func (a Article) IdentityKey() Key {
	return Key{
		Title: strings.ToLower(strings.TrimSpace(a.Title)),
		URL:   a.URL,
	}
}

// String renders the key in a stable form, used for hashing
func (k Key) String() string {
	return k.Title + "|" + k.URL
}

// SourceText is the text handed to the summarizer: content, else summary.
func (a Article) SourceText() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Summary
}

// Summary is the condensed form of one ranked article
type Summary struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}
