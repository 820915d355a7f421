package rssfeeds

import (
	"context"
	"log/slog"

	"weeklyreport/config"
	"weeklyreport/types"
)

// FetchResult is everything gathered from one pass over the catalog
type FetchResult struct {
	Articles    []types.Article
	Entries     int
	Dropped     int
	Unsupported []string
	Errors      map[string]error
}

// Fetcher walks the source catalog and normalizes every entry
type Fetcher struct {
	client FeedClient
	log    *slog.Logger
}

// NewFetcher creates a Fetcher
func NewFetcher(client FeedClient, log *slog.Logger) *Fetcher {
	return &Fetcher{client: client, log: log}
}

// Supported reports whether a source type is fetched. Only the exact
// type "rss" is; anything else is recorded as unsupported.
func Supported(kind string) bool {
	return kind == "rss"
}

// FetchAll fetches each supported source in catalog order. A failing source
// is logged and recorded; the remaining sources are still processed.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.Source) FetchResult {
	res := FetchResult{Errors: map[string]error{}}

	for _, src := range sources {
		if ctx.Err() != nil {
			res.Errors[src.Name] = ctx.Err()
			continue
		}

		if !Supported(src.Type) {
			f.log.Warn("Skipping unsupported source type", "source", src.Name, "type", src.Type)
			res.Unsupported = append(res.Unsupported, src.Name)
			continue
		}

		f.log.Info("Fetching feed", "source", src.Name, "url", src.URL)
		items, err := f.client.Fetch(ctx, src.URL)
		if err != nil {
			f.log.Warn("Failed to fetch source", "source", src.Name, "error", err)
			res.Errors[src.Name] = err
			continue
		}

		kept := 0
		for _, item := range items {
			res.Entries++
			article, ok := Normalize(src.Name, item)
			if !ok {
				res.Dropped++
				f.log.Debug("Dropping entry without title or link", "source", src.Name)
				continue
			}
			res.Articles = append(res.Articles, article)
			kept++
		}
		f.log.Info("Fetched feed", "source", src.Name, "entries", len(items), "kept", kept)
	}

	return res
}
