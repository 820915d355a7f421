package cmd

import (
	"context"
	"fmt"
	"time"

	"weeklyreport/client"
	"weeklyreport/orchestrator"
	"weeklyreport/types"

	"github.com/spf13/cobra"
)

var flagServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the run state of a serving instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, err := client.NewClient(flagServer).Status(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		state := okStyle
		if status.State == orchestrator.StateError {
			state = errStyle
		}
		line := string(status.State)
		if status.Stage != "" {
			line += " (" + string(status.Stage) + ")"
		}
		fmt.Fprintf(out, "%s%s\n", stageStyle.Render("state"), state.Render(line))
		if status.Error != "" {
			fmt.Fprintf(out, "%s%s\n", stageStyle.Render("error"), errStyle.Render(status.Error))
		}
		for _, l := range status.Logs {
			fmt.Fprintf(out, "%s %s\n", infoStyle.Render(l.Timestamp.Format(time.TimeOnly)), l.Message)
		}
		if status.LastReport != nil {
			fmt.Fprintln(out, formatReport(status.LastReport))
		}
		return nil
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger [stage]",
	Short: "Ask a serving instance to start a run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := types.StageAll
		if len(args) == 1 {
			s, ok := types.ParseStage(args[0])
			if !ok {
				return fmt.Errorf("unknown stage %q (valid: fetch, summarize, render, all)", args[0])
			}
			stage = s
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.NewClient(flagServer).Trigger(ctx, stage); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", stage)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, triggerCmd} {
		c.Flags().StringVar(&flagServer, "server", "", "server URL (default $WEEKLYREPORT_URL or "+client.DefaultBaseURL+")")
	}
}
