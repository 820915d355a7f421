package orchestrator

import (
	"context"
	"log/slog"
	"os"

	"weeklyreport/config"
	"weeklyreport/deduplication"
	"weeklyreport/events"
	"weeklyreport/logger"
	"weeklyreport/rssfeeds"
	"weeklyreport/storage"
	"weeklyreport/summarizer"

	"github.com/joho/godotenv"
)

// App is a fully wired pipeline plus the resources it owns
type App struct {
	Config   *config.Config
	Infra    config.Infra
	Pipeline *Pipeline
	Log      *slog.Logger

	closers []func() error
}

// Bootstrap loads .env, the config file and the source catalog, then
// connects the optional backing services. Config and catalog errors are
// reported before any connection is attempted. A backing service that
// cannot be reached is logged and left disabled.
func Bootstrap(ctx context.Context, configPath string) (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	catalog, err := config.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LoggingLevel)
	infra := config.LoadInfra(os.Getenv)

	app := &App{Config: cfg, Infra: infra, Log: log}

	var mirror storage.Mirror
	if m := initializeS3(ctx, infra.S3, log); m != nil {
		mirror = m
	}
	store := storage.NewStore(mirror, log)

	var history deduplication.History
	if h := app.initializeHistory(ctx, infra.Redis); h != nil {
		history = h
	}

	var publisher events.Publisher
	if p := app.initializePublisher(infra.Kafka); p != nil {
		publisher = p
	}

	pipeline, err := New(cfg, Options{
		Catalog:    catalog,
		FeedClient: rssfeeds.NewGofeedClient(cfg.Timeout()),
		Generator:  summarizer.NewGenerator(cfg, os.Getenv, log),
		Store:      store,
		History:    history,
		Publisher:  publisher,
		Logger:     log,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Pipeline = pipeline
	return app, nil
}

// Close releases every connection opened by Bootstrap
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Log.Warn("Error during shutdown", "error", err)
		}
	}
	a.closers = nil
}

// initializeS3 returns a mirror if a bucket is configured
func initializeS3(ctx context.Context, s config.S3Settings, log *slog.Logger) *storage.S3Mirror {
	if !s.Enabled() {
		log.Debug("S3 not configured; artifacts stay local")
		return nil
	}
	mirror, err := storage.NewS3Mirror(ctx, storage.S3Config{
		Bucket:       s.Bucket,
		Prefix:       s.Prefix,
		Region:       s.Region,
		Profile:      s.Profile,
		UsePathStyle: s.UsePathStyle,
	})
	if err != nil {
		log.Warn("Failed to init S3 client; mirroring disabled", "error", err)
		return nil
	}
	log.Info("Mirroring artifacts", "target", mirror.Target())
	return mirror
}

func (a *App) initializeHistory(ctx context.Context, r config.RedisSettings) *deduplication.RedisHistory {
	if !r.Enabled() {
		return nil
	}
	h, err := deduplication.NewRedisHistory(ctx, deduplication.HistoryConfig{
		Addr:     r.Addr,
		Password: r.Password,
		TTL:      r.TTL,
	})
	if err != nil {
		a.Log.Warn("Redis unavailable; cross-week history disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, h.Close)
	a.Log.Info("Cross-week history enabled", "addr", r.Addr)
	return h
}

func (a *App) initializePublisher(k config.KafkaSettings) *events.KafkaPublisher {
	if !k.Enabled() {
		return nil
	}
	p, err := events.NewKafkaPublisher(k.Brokers, k.ScriptTopic)
	if err != nil {
		a.Log.Warn("Kafka unavailable; script events disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, p.Close)
	a.Log.Info("Publishing script events", "topic", k.ScriptTopic)
	return p
}
