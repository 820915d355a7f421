package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weeklyreport/api"
	"weeklyreport/config"
	"weeklyreport/events"
	"weeklyreport/orchestrator"
	"weeklyreport/types"

	"github.com/spf13/cobra"
)

var (
	flagPort      string
	flagCron      string
	flagCronStage string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the pipeline on a schedule",
	Long: `Serve starts the HTTP API, schedules the pipeline with cron and, when
KAFKA_BOOTSTRAP_SERVERS is set, listens for run requests on the request topic.

Pass --cron "" to disable the schedule.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "HTTP API port (default $PORT or 8080)")
	serveCmd.Flags().StringVar(&flagCron, "cron", "0 18 * * 0", "cron schedule for automated runs (default: Sundays 18:00)")
	serveCmd.Flags().StringVar(&flagCronStage, "cron-stage", string(types.StageAll), "stage run by the schedule")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := orchestrator.Bootstrap(ctx, flagConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	runner := orchestrator.NewRunner(app.Pipeline, orchestrator.NewStateManager(nil), app.Log)

	port := flagPort
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	server := api.NewServer(runner, app.Pipeline.Store(), app.Config, app.Log, ":"+port)
	server.Start()

	if flagCron != "" {
		stage, ok := types.ParseStage(flagCronStage)
		if !ok {
			return fmt.Errorf("unknown --cron-stage %q", flagCronStage)
		}
		if err := server.StartCron(flagCron, stage); err != nil {
			return err
		}
	}

	consumer := startRunRequests(ctx, app.Infra.Kafka, runner, app.Log)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Weekly report service"))
	fmt.Fprintf(out, "   API:            http://0.0.0.0:%s/api\n", port)
	if next := server.NextRun(); !next.IsZero() {
		fmt.Fprintf(out, "   Cron Schedule:  %s (next %s)\n", flagCron, next.Format(time.RFC1123))
	}
	if consumer != nil {
		fmt.Fprintf(out, "   Run requests:   %s\n", app.Infra.Kafka.RequestTopic)
	}
	fmt.Fprintln(out, infoStyle.Render("\nPress Ctrl+C to shutdown"))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			app.Log.Warn("Kafka consumer close error", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Fprintln(out, "Server stopped")
	return nil
}

// stageRunner is the part of orchestrator.Runner the request handler uses
type stageRunner interface {
	RunNow(ctx context.Context, stage types.Stage) (*types.RunReport, error)
}

// newRunRequestHandler runs each valid request to completion. Pipeline
// failures are logged and the message is still marked, so a bad run is
// not redelivered forever.
func newRunRequestHandler(runner stageRunner, log *slog.Logger) *events.TypedMessageHandler[events.RunRequest] {
	return &events.TypedMessageHandler[events.RunRequest]{
		Validate: func(msg *events.RunRequest) bool {
			if _, ok := types.ParseStage(msg.Stage); !ok {
				log.Warn("Ignoring run request with unknown stage", "stage", msg.Stage)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *events.RunRequest) error {
			stage, _ := types.ParseStage(msg.Stage)
			log.Info("Run requested", "stage", stage, "requested_by", msg.RequestedBy)
			if _, err := runner.RunNow(ctx, stage); err != nil {
				log.Error("Requested run failed", "stage", stage, "error", err)
			}
			return nil
		},
		AlwaysMark: true,
	}
}

func startRunRequests(ctx context.Context, k config.KafkaSettings, runner stageRunner, log *slog.Logger) *events.Consumer {
	if !k.Enabled() {
		return nil
	}
	consumer, err := events.NewConsumer(events.ConsumerConfig{
		Brokers: k.Brokers,
		Topic:   k.RequestTopic,
		GroupID: k.GroupID,
		Handler: newRunRequestHandler(runner, log),
	}, log)
	if err != nil {
		log.Warn("Failed to create Kafka consumer; run requests disabled", "error", err)
		return nil
	}

	consumer.Start(ctx)
	return consumer
}
