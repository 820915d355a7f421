package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weeklyreport/config"
	"weeklyreport/deduplication"
	"weeklyreport/events"
	"weeklyreport/rssfeeds"
	"weeklyreport/scriptwriter"
	"weeklyreport/storage"
	"weeklyreport/summarizer"
	"weeklyreport/types"

	"github.com/google/uuid"
)

// Clock returns the current time; tests pin it
type Clock func() time.Time

// Options carries the collaborators of a Pipeline. Nil optional fields
// disable the matching feature.
type Options struct {
	// Catalog is the already loaded source catalog. When nil, Fetch loads
	// cfg.SourcesFile on every run.
	Catalog    *config.Catalog
	FeedClient rssfeeds.FeedClient
	Generator  summarizer.Generator
	Store      *storage.Store
	History    deduplication.History
	Publisher  events.Publisher
	Clock      Clock
	Logger     *slog.Logger
}

// Pipeline runs the fetch, summarize and render stages. Each stage reads
// only what earlier stages persisted, so any stage can be re-run alone.
type Pipeline struct {
	cfg       *config.Config
	catalog   *config.Catalog
	fetcher   *rssfeeds.Fetcher
	generator summarizer.Generator
	renderer  *scriptwriter.Renderer
	store     *storage.Store
	history   deduplication.History
	publisher events.Publisher
	now       Clock
	log       *slog.Logger
}

// New validates the collaborators and loads the script template
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if opts.FeedClient == nil {
		return nil, errors.New("feed client is required")
	}
	if opts.Generator == nil {
		opts.Generator = summarizer.Passthrough{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = storage.NewStore(nil, opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	renderer, err := scriptwriter.NewRenderer(cfg.TemplateFile)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		catalog:   opts.Catalog,
		fetcher:   rssfeeds.NewFetcher(opts.FeedClient, opts.Logger),
		generator: opts.Generator,
		renderer:  renderer,
		store:     opts.Store,
		history:   opts.History,
		publisher: opts.Publisher,
		now:       opts.Clock,
		log:       opts.Logger,
	}, nil
}

// Config exposes the pipeline configuration
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Store exposes the artifact store
func (p *Pipeline) Store() *storage.Store { return p.store }

// Fetch loads the catalog, fetches every source, ranks the result and
// saves the articles collection.
func (p *Pipeline) Fetch(ctx context.Context) (*types.FetchReport, error) {
	catalog := p.catalog
	if catalog == nil {
		var err error
		if catalog, err = config.LoadCatalog(p.cfg.SourcesFile); err != nil {
			return nil, err
		}
	}

	now := p.now()
	p.log.Info("Fetching sources", "count", len(catalog.Sources))
	res := p.fetcher.FetchAll(ctx, catalog.Sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &types.FetchReport{
		Sources:      len(catalog.Sources),
		Unsupported:  res.Unsupported,
		SourceErrors: map[string]string{},
		Entries:      res.Entries,
		Dropped:      res.Dropped,
	}
	for name, err := range res.Errors {
		report.SourceErrors[name] = err.Error()
	}

	weekStart, _ := scriptwriter.WeekBounds(now)
	week := weekStart.Format(storage.DateLayout)

	candidates, skipped := deduplication.FilterSeen(ctx, p.history, res.Articles, week, p.log)
	report.HistorySkipped = skipped

	ranked, stats := deduplication.Rank(candidates, deduplication.Policy{
		MaxItems:    p.cfg.MaxArticles,
		Deduplicate: p.cfg.DeduplicateEnabled(),
		MaxAge:      p.cfg.MaxAge(),
		Now:         now,
	})
	report.Duplicates = stats.Duplicates
	report.TooOld = stats.TooOld
	report.Truncated = stats.Truncated
	report.Saved = stats.Output

	path, err := p.store.SaveJSON(ctx, p.cfg.RawDir, storage.Articles, now, ranked)
	if err != nil {
		return nil, err
	}
	report.Path = path
	deduplication.MarkAll(ctx, p.history, ranked, week, p.log)

	p.log.Info("Saved articles", "path", path, "articles", len(ranked),
		"entries", res.Entries, "dropped", res.Dropped, "duplicates", stats.Duplicates,
		"failed_sources", len(res.Errors), "unsupported_sources", len(res.Unsupported))
	return report, nil
}

// Summarize reads the articles collection and saves today's summaries
func (p *Pipeline) Summarize(ctx context.Context) (*types.SummarizeReport, error) {
	var articles []types.Article
	src, err := p.store.LoadLatestJSON(p.cfg.RawDir, storage.Articles, &articles)
	if err != nil {
		return nil, fmt.Errorf("loading articles (run fetch first): %w", err)
	}

	p.log.Info("Summarizing articles", "count", len(articles), "source", src, "generator", p.generator.Name())
	summaries, stats := summarizer.Summarize(ctx, articles, p.generator, p.cfg.SummaryLength, p.log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := p.store.SaveJSON(ctx, p.cfg.OutputDir, storage.Summaries, p.now(), summaries)
	if err != nil {
		return nil, err
	}
	p.log.Info("Saved summaries", "path", path, "summaries", len(summaries), "fallbacks", stats.Fallbacks)

	return &types.SummarizeReport{
		Generator: p.generator.Name(),
		Articles:  stats.Articles,
		Fallbacks: stats.Fallbacks,
		Path:      path,
	}, nil
}

// Render reads the latest summaries and saves today's script. Nothing is
// written when no summaries exist.
func (p *Pipeline) Render(ctx context.Context) (*types.RenderReport, error) {
	return p.render(ctx, uuid.NewString())
}

func (p *Pipeline) render(ctx context.Context, runID string) (*types.RenderReport, error) {
	var summaries []types.Summary
	src, err := p.store.LoadLatestJSON(p.cfg.OutputDir, storage.Summaries, &summaries)
	if err != nil {
		return nil, fmt.Errorf("loading summaries (run summarize first): %w", err)
	}

	now := p.now()
	script, err := p.renderer.Render(summaries, now)
	if err != nil {
		return nil, err
	}

	path, err := p.store.SaveText(ctx, p.cfg.OutputDir, storage.Script, now, script)
	if err != nil {
		return nil, err
	}

	start, end := scriptwriter.WeekBounds(now)
	report := &types.RenderReport{
		WeekStart: start.Format(storage.DateLayout),
		WeekEnd:   end.Format(storage.DateLayout),
		Summaries: len(summaries),
		Path:      path,
	}
	p.log.Info("Saved script", "path", path, "source", src, "week_start", report.WeekStart, "week_end", report.WeekEnd)

	if p.publisher != nil {
		ev := events.ScriptPublished{
			RunID:     runID,
			Path:      path,
			WeekStart: report.WeekStart,
			WeekEnd:   report.WeekEnd,
			Summaries: len(summaries),
			CreatedAt: now,
		}
		if err := p.publisher.PublishScript(ctx, ev); err != nil {
			p.log.Warn("Failed to publish script event", "error", err)
		}
	}
	return report, nil
}

// Run executes one stage, or all three in order for types.StageAll,
// stopping at the first fatal error. The report is returned even on error.
func (p *Pipeline) Run(ctx context.Context, stage types.Stage) (*types.RunReport, error) {
	report := &types.RunReport{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: p.now(),
	}
	err := p.run(ctx, stage, report)
	report.FinishedAt = p.now()
	if err != nil {
		report.Error = err.Error()
	}
	return report, err
}

func (p *Pipeline) run(ctx context.Context, stage types.Stage, report *types.RunReport) error {
	var err error
	switch stage {
	case types.StageFetch:
		report.Fetch, err = p.Fetch(ctx)
	case types.StageSummarize:
		report.Summarize, err = p.Summarize(ctx)
	case types.StageRender:
		report.Render, err = p.render(ctx, report.RunID)
	case types.StageAll:
		for _, s := range []types.Stage{types.StageFetch, types.StageSummarize, types.StageRender} {
			if err := p.run(ctx, s, report); err != nil {
				return err
			}
		}
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}
