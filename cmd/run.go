package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"weeklyreport/orchestrator"
	"weeklyreport/types"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch all feeds and save the ranked articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StageFetch)
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the saved articles",
	Long: `Summarize reads articles.json from the raw directory and writes a dated
summaries file. Articles whose summary cannot be generated keep their
original text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StageSummarize)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the latest summaries into this week's report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StageRender)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [stage]",
	Short: "Run one stage, or the whole pipeline",
	Long: `Run executes fetch, summarize and render in order, stopping at the first
fatal error. Pass a stage name (fetch, summarize, render, all) to run a
single stage instead.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(types.StageFetch), string(types.StageSummarize), string(types.StageRender), string(types.StageAll)},
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := types.StageAll
		if len(args) == 1 {
			s, ok := types.ParseStage(args[0])
			if !ok {
				return fmt.Errorf("unknown stage %q (valid: fetch, summarize, render, all)", args[0])
			}
			stage = s
		}
		return runStage(cmd, stage)
	},
}

func runStage(cmd *cobra.Command, stage types.Stage) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := orchestrator.Bootstrap(ctx, flagConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Pipeline.Run(ctx, stage)
	fmt.Fprintln(cmd.OutOrStdout(), formatReport(report))
	return err
}
