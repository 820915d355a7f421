package summarizer

import (
	"context"
	"log/slog"
	"strings"

	"weeklyreport/types"
)

// Stats counts the outcome of one summarization pass
type Stats struct {
	Articles  int
	Fallbacks int
}

// Summarize produces one summary per article, in input order. When the
// generator fails the article's own text is used instead.
func Summarize(ctx context.Context, articles []types.Article, gen Generator, sentences int, log *slog.Logger) ([]types.Summary, Stats) {
	stats := Stats{Articles: len(articles)}
	out := make([]types.Summary, 0, len(articles))

	for i, a := range articles {
		text := a.SourceText()

		summary := text
		if strings.TrimSpace(text) != "" {
			generated, err := gen.Generate(ctx, text, sentences)
			if err != nil {
				stats.Fallbacks++
				log.Warn("Summarization failed; using article text",
					"index", i+1, "total", len(articles), "url", a.URL, "error", err)
			} else {
				summary = generated
			}
		}

		out = append(out, types.Summary{
			Title:   a.Title,
			URL:     a.URL,
			Summary: strings.TrimSpace(summary),
		})
	}

	return out, stats
}
