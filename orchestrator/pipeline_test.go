package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weeklyreport/config"
	"weeklyreport/events"
	"weeklyreport/logger"
	"weeklyreport/storage"
	"weeklyreport/types"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 8, 13, 18, 0, 0, 0, time.UTC)

type fakeFeedClient struct {
	feeds map[string][]*gofeed.Item
	errs  map[string]error
}

func (f *fakeFeedClient) Fetch(_ context.Context, url string) ([]*gofeed.Item, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.feeds[url], nil
}

type fakeGenerator struct{ fail bool }

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, text string, _ int) (string, error) {
	if g.fail {
		return "", errors.New("provider down")
	}
	return "Summary: " + text, nil
}

type fakePublisher struct {
	events []events.ScriptPublished
	err    error
}

func (p *fakePublisher) PublishScript(_ context.Context, ev events.ScriptPublished) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeHistory struct{ seen map[string]string }

func (h *fakeHistory) Seen(_ context.Context, key types.Key, week string) (bool, error) {
	w, ok := h.seen[key.String()]
	return ok && w != week, nil
}

func (h *fakeHistory) Mark(_ context.Context, key types.Key, week string) error {
	if _, ok := h.seen[key.String()]; !ok {
		h.seen[key.String()] = week
	}
	return nil
}

func pub(hoursAgo int) *time.Time {
	t := fixedNow.Add(-time.Duration(hoursAgo) * time.Hour)
	return &t
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "news_sources.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
sources:
  - name: Alpha
    type: rss
    url: https://alpha.test/rss
  - name: Beta
    type: rss
    url: https://beta.test/rss
  - name: Broken
    type: rss
    url: https://broken.test/rss
  - name: Letters
    type: newsletter
    url: https://letters.test
`), 0o644))

	cfg := config.Default()
	cfg.SourcesFile = catalog
	cfg.RawDir = filepath.Join(dir, "data", "raw")
	cfg.OutputDir = filepath.Join(dir, "data", "processed")
	return cfg
}

func newTestFeeds() *fakeFeedClient {
	alpha := make([]*gofeed.Item, 0, 8)
	for i := 0; i < 8; i++ {
		alpha = append(alpha, &gofeed.Item{
			Title:           fmt.Sprintf("Alpha story %d", i),
			Link:            fmt.Sprintf("https://alpha.test/%d", i),
			Description:     fmt.Sprintf("alpha summary %d", i),
			PublishedParsed: pub(i * 5),
		})
	}
	beta := []*gofeed.Item{
		{Title: "ALPHA STORY 0", Link: "https://alpha.test/0", Description: "dup", PublishedParsed: pub(1)},
		{Title: "Beta exclusive", Link: "https://beta.test/x", Content: "<p>beta content</p>", PublishedParsed: pub(2)},
		{Title: "Beta older", Link: "https://beta.test/y", Description: "older", PublishedParsed: pub(3)},
		{Title: "Beta undated", Link: "https://beta.test/z", Description: "undated"},
		{Title: "Beta recent", Link: "https://beta.test/w", Description: "recent", PublishedParsed: pub(4)},
		{Title: "", Link: "https://beta.test/no-title"},
	}
	return &fakeFeedClient{
		feeds: map[string][]*gofeed.Item{
			"https://alpha.test/rss": alpha,
			"https://beta.test/rss":  beta,
		},
		errs: map[string]error{"https://broken.test/rss": errors.New("dial tcp: timeout")},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, opts Options) *Pipeline {
	t.Helper()
	if opts.FeedClient == nil {
		opts.FeedClient = newTestFeeds()
	}
	if opts.Generator == nil {
		opts.Generator = &fakeGenerator{}
	}
	opts.Logger = logger.Discard()
	opts.Clock = func() time.Time { return fixedNow }
	p, err := New(cfg, opts)
	require.NoError(t, err)
	return p
}

func TestRunAllProducesEveryArtifact(t *testing.T) {
	cfg := newTestConfig(t)
	publisher := &fakePublisher{}
	p := newTestPipeline(t, cfg, Options{Publisher: publisher})

	report, err := p.Run(context.Background(), types.StageAll)
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Empty(t, report.Error)

	f := report.Fetch
	require.NotNil(t, f)
	require.Equal(t, 4, f.Sources)
	require.Equal(t, []string{"Letters"}, f.Unsupported)
	require.Contains(t, f.SourceErrors, "Broken")
	require.Equal(t, 14, f.Entries)
	require.Equal(t, 1, f.Dropped)
	require.Equal(t, 1, f.Duplicates)
	require.Equal(t, 2, f.Truncated)
	require.Equal(t, 10, f.Saved)
	require.Equal(t, filepath.Join(cfg.RawDir, "articles.json"), f.Path)

	var articles []types.Article
	_, err = p.Store().LoadLatestJSON(cfg.RawDir, storage.Articles, &articles)
	require.NoError(t, err)
	require.Len(t, articles, 10)
	require.Equal(t, "Alpha story 0", articles[0].Title)
	require.Equal(t, "Alpha", articles[0].Source)
	for i := 1; i < len(articles); i++ {
		require.NotNil(t, articles[i].Published, "undated article should have been truncated away")
		require.False(t, articles[i].Published.After(*articles[i-1].Published))
	}

	s := report.Summarize
	require.NotNil(t, s)
	require.Equal(t, 10, s.Articles)
	require.Zero(t, s.Fallbacks)
	require.Equal(t, filepath.Join(cfg.OutputDir, "summaries_2025-08-13.json"), s.Path)

	var summaries []types.Summary
	_, err = p.Store().LoadLatestJSON(cfg.OutputDir, storage.Summaries, &summaries)
	require.NoError(t, err)
	require.Len(t, summaries, 10)
	require.Equal(t, articles[0].Title, summaries[0].Title)
	require.Equal(t, "Summary: alpha summary 0", summaries[0].Summary)

	r := report.Render
	require.NotNil(t, r)
	require.Equal(t, "2025-08-11", r.WeekStart)
	require.Equal(t, "2025-08-17", r.WeekEnd)
	require.Equal(t, filepath.Join(cfg.OutputDir, "script_2025-08-13.md"), r.Path)

	script, err := os.ReadFile(r.Path)
	require.NoError(t, err)
	require.Contains(t, string(script), "Expert Take")
	require.Contains(t, string(script), "Alpha story 0")

	require.Len(t, publisher.events, 1)
	require.Equal(t, report.RunID, publisher.events[0].RunID)
	require.Equal(t, 10, publisher.events[0].Summaries)
}

func TestRenderWithoutSummariesIsFatal(t *testing.T) {
	cfg := newTestConfig(t)
	p := newTestPipeline(t, cfg, Options{})

	_, err := p.Render(context.Background())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, statErr := os.Stat(cfg.OutputDir)
	require.True(t, os.IsNotExist(statErr), "no script may be written")
}

func TestSummarizeWithoutArticlesIsFatal(t *testing.T) {
	cfg := newTestConfig(t)
	p := newTestPipeline(t, cfg, Options{})

	report, err := p.Run(context.Background(), types.StageSummarize)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Contains(t, report.Error, "summarize")
}

func TestRunAllStopsAtFirstFatalError(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.SourcesFile = filepath.Join(t.TempDir(), "missing.yaml")
	p := newTestPipeline(t, cfg, Options{})

	report, err := p.Run(context.Background(), types.StageAll)
	require.Error(t, err)
	require.Nil(t, report.Fetch)
	require.Nil(t, report.Summarize)
	require.Nil(t, report.Render)
}

func TestStagesRerunIndependently(t *testing.T) {
	cfg := newTestConfig(t)
	gen := &fakeGenerator{fail: true}
	p := newTestPipeline(t, cfg, Options{Generator: gen})
	ctx := context.Background()

	_, err := p.Fetch(ctx)
	require.NoError(t, err)

	s, err := p.Summarize(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, s.Fallbacks)

	var summaries []types.Summary
	_, err = p.Store().LoadLatestJSON(cfg.OutputDir, storage.Summaries, &summaries)
	require.NoError(t, err)
	require.Equal(t, "alpha summary 0", summaries[0].Summary)

	// a second render on the same day overwrites the script
	first, err := p.Render(ctx)
	require.NoError(t, err)
	second, err := p.Render(ctx)
	require.NoError(t, err)
	require.Equal(t, first.Path, second.Path)
}

func TestFetchWithDedupDisabledKeepsCrossSourceCopies(t *testing.T) {
	cfg := newTestConfig(t)
	off := false
	cfg.Deduplicate = &off
	cfg.MaxArticles = 20
	p := newTestPipeline(t, cfg, Options{})

	f, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Zero(t, f.Duplicates)
	require.Equal(t, 13, f.Saved)
}

func TestFetchSkipsArticlesFromEarlierWeeks(t *testing.T) {
	cfg := newTestConfig(t)
	history := &fakeHistory{seen: map[string]string{
		types.Key{Title: "alpha story 0", URL: "https://alpha.test/0"}.String(): "2025-08-04",
		types.Key{Title: "alpha story 1", URL: "https://alpha.test/1"}.String(): "2025-08-11",
	}}
	p := newTestPipeline(t, cfg, Options{History: history})

	f, err := p.Fetch(context.Background())
	require.NoError(t, err)
	// both the Alpha original and Beta's copy share the identity key
	require.Equal(t, 2, f.HistorySkipped)

	var articles []types.Article
	_, err = p.Store().LoadLatestJSON(cfg.RawDir, storage.Articles, &articles)
	require.NoError(t, err)
	for _, a := range articles {
		require.NotEqual(t, "Alpha story 0", a.Title)
	}
	require.Equal(t, "2025-08-11", history.seen[articles[0].IdentityKey().String()])
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	cfg := newTestConfig(t)
	p := newTestPipeline(t, cfg, Options{Publisher: &fakePublisher{err: errors.New("broker down")}})

	report, err := p.Run(context.Background(), types.StageAll)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(report.Render.Path, ".md"))
}

func TestNewRejectsBadTemplate(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.TemplateFile = filepath.Join(t.TempDir(), "missing.md")

	_, err := New(cfg, Options{FeedClient: newTestFeeds(), Logger: logger.Discard()})
	require.Error(t, err)
}
