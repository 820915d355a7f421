package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"weeklyreport/config"
	"weeklyreport/orchestrator"
	"weeklyreport/storage"
	"weeklyreport/types"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// Server exposes the pipeline over HTTP and triggers scheduled runs
type Server struct {
	runner     *orchestrator.Runner
	store      *storage.Store
	cfg        *config.Config
	log        *slog.Logger
	httpServer *http.Server
	cron       *cron.Cron
	cronID     cron.EntryID
	mu         sync.Mutex

	// runs outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewServer creates a server listening on addr
func NewServer(runner *orchestrator.Runner, store *storage.Store, cfg *config.Config, log *slog.Logger, addr string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		runner:  runner,
		store:   store,
		cfg:     cfg,
		log:     log,
		cron:    cron.New(),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           NewRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery plus debug-level request logs
	r.Use(gin.Recovery(), requestLogger(s.log))

	RegisterHealthRoutes(r)
	RegisterRunRoutes(s.baseCtx, r, s.runner)
	RegisterReportRoutes(r, s.store, s.cfg)
	return r
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves HTTP in the background
func (s *Server) Start() {
	s.log.Info("Starting API server", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error", "error", err)
		}
	}()
}

// StartCron schedules stage on a standard five-field cron expression.
// A tick that lands while a run is active is skipped.
func (s *Server) StartCron(schedule string, stage types.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(schedule, func() {
		s.log.Info("Cron triggered", "stage", stage)
		if err := s.runner.Start(s.baseCtx, stage); err != nil {
			if errors.Is(err, orchestrator.ErrBusy) {
				s.log.Warn("Cron skipped: a run is already in progress", "state", s.runner.State().GetState())
				return
			}
			s.log.Error("Cron run failed to start", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	s.log.Info("Cron job started", "schedule", schedule, "stage", stage)
	return nil
}

// NextRun reports when the scheduled job fires next; zero if unscheduled
func (s *Server) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cronID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.cronID).Next
}

// Shutdown stops the scheduler and the HTTP server, then cancels and waits
// for any run still in flight.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API server")

	<-s.cron.Stop().Done()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.runner.Wait()
	return err
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
