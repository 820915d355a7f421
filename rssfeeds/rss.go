package rssfeeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"weeklyreport/types"

	"github.com/mmcdole/gofeed"
)

const feedTimeout = 30 * time.Second

// FeedClient retrieves the entries of one feed
type FeedClient interface {
	Fetch(ctx context.Context, feedURL string) ([]*gofeed.Item, error)
}

// GofeedClient is the default FeedClient backed by gofeed
type GofeedClient struct {
	parser *gofeed.Parser
}

// NewGofeedClient returns a client whose HTTP requests time out after timeout
// (30s when zero).
func NewGofeedClient(timeout time.Duration) *GofeedClient {
	if timeout <= 0 {
		timeout = feedTimeout
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "weeklyreport/1.0"
	return &GofeedClient{parser: parser}
}

// Fetch retrieves and parses an RSS/Atom feed
func (c *GofeedClient) Fetch(ctx context.Context, feedURL string) ([]*gofeed.Item, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return feed.Items, nil
}

// Normalize converts a feed entry into an Article. ok is false when the
// entry has no usable title or link.
func Normalize(source string, item *gofeed.Item) (types.Article, bool) {
	if item == nil {
		return types.Article{}, false
	}

	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}
	if title == "" || link == "" {
		return types.Article{}, false
	}

	summary := PlainText(item.Description)

	// Content entry first, otherwise the summary stands in for it
	content := summary
	if strings.TrimSpace(item.Content) != "" {
		content = ContentText(item.Content, link)
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		published = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		published = &t
	}

	return types.Article{
		Source:    source,
		Title:     title,
		URL:       link,
		Summary:   summary,
		Content:   content,
		Published: published,
	}, true
}
