package cmd

import (
	"fmt"
	"strings"

	"weeklyreport/config"
	"weeklyreport/logger"
	"weeklyreport/storage"
	"weeklyreport/types"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	flagRaw   bool
	flagWidth int
)

var showCmd = &cobra.Command{
	Use:       "show [script|summaries]",
	Short:     "Print the latest report or summaries",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"script", "summaries"},
	RunE: func(cmd *cobra.Command, args []string) error {
		what := "script"
		if len(args) == 1 {
			what = args[0]
		}

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		store := storage.NewStore(nil, logger.New(cfg.LoggingLevel))

		var markdown string
		switch what {
		case "script":
			_, text, err := store.LoadLatestText(cfg.OutputDir, storage.Script)
			if err != nil {
				return fmt.Errorf("no report yet (run render first): %w", err)
			}
			markdown = text
		case "summaries":
			var summaries []types.Summary
			path, err := store.LoadLatestJSON(cfg.OutputDir, storage.Summaries, &summaries)
			if err != nil {
				return fmt.Errorf("no summaries yet (run summarize first): %w", err)
			}
			markdown = summariesMarkdown(path, summaries)
		default:
			return fmt.Errorf("unknown artifact %q (valid: script, summaries)", what)
		}

		out := cmd.OutOrStdout()
		if flagRaw {
			fmt.Fprint(out, markdown)
			return nil
		}

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(flagWidth),
		)
		if err != nil {
			return err
		}
		rendered, err := renderer.Render(markdown)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&flagRaw, "raw", false, "print markdown without terminal styling")
	showCmd.Flags().IntVar(&flagWidth, "width", 80, "word wrap width")
}

func summariesMarkdown(path string, summaries []types.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Summaries\n\n_%s_\n\n", path)
	if len(summaries) == 0 {
		b.WriteString("No summaries.\n")
		return b.String()
	}
	for i, s := range summaries {
		fmt.Fprintf(&b, "%d. **[%s](%s)**  \n   %s\n\n", i+1, s.Title, s.URL, s.Summary)
	}
	return b.String()
}
