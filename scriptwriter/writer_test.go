package scriptwriter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weeklyreport/types"

	"github.com/stretchr/testify/require"
)

func TestWeekBounds(t *testing.T) {
	cases := []struct {
		now        string
		start, end string
	}{
		{"2025-08-11", "2025-08-11", "2025-08-17"}, // Monday
		{"2025-08-13", "2025-08-11", "2025-08-17"}, // Wednesday
		{"2025-08-17", "2025-08-11", "2025-08-17"}, // Sunday
		{"2025-03-01", "2025-02-24", "2025-03-02"}, // crosses a month
		{"2026-01-01", "2025-12-29", "2026-01-04"}, // crosses a year
	}
	for _, c := range cases {
		now, err := time.Parse("2006-01-02", c.now)
		require.NoError(t, err)
		now = now.Add(15 * time.Hour)

		start, end := WeekBounds(now)
		require.Equal(t, c.start, start.Format("2006-01-02"), c.now)
		require.Equal(t, c.end, end.Format("2006-01-02"), c.now)
		require.Equal(t, time.Monday, start.Weekday())
		require.Equal(t, time.Sunday, end.Weekday())
		require.False(t, start.After(now))
	}
}

func TestRenderDefaultTemplate(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	now := time.Date(2025, 8, 13, 18, 0, 0, 0, time.UTC)
	out, err := r.Render([]types.Summary{
		{Title: "Logical qubits cross a threshold", URL: "https://n.test/1", Summary: "A paragraph & more."},
		{Title: "New error-correction code", URL: "https://n.test/2", Summary: "Another paragraph."},
	}, now)
	require.NoError(t, err)

	require.Contains(t, out, "2025-08-11")
	require.Contains(t, out, "2025-08-17")
	require.Contains(t, out, "## 1. Logical qubits cross a threshold")
	require.Contains(t, out, "## 2. New error-correction code")
	require.Contains(t, out, "A paragraph & more.")
	require.Equal(t, 1, strings.Count(out, "Expert Take"))
	require.Less(t, strings.Index(out, "New error-correction"), strings.Index(out, "Expert Take"))
}

func TestRenderEmptySummaries(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	out, err := r.Render(nil, time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, out, "No stories made the cut")
	require.Contains(t, out, ExpertTakeHeading)
}

func TestRenderCustomTemplateGetsExpertTake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.md")
	require.NoError(t, os.WriteFile(path, []byte("Week {{ .WeekStart }}..{{ .WeekEnd }}\n{{ range .Summaries }}* {{ .Title }}\n{{ end }}"), 0o644))

	r, err := NewRenderer(path)
	require.NoError(t, err)

	out, err := r.Render([]types.Summary{{Title: "Only"}}, time.Date(2025, 8, 11, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Week 2025-08-11..2025-08-17\n* Only\n"))
	require.Contains(t, out, "## Expert Take")
}

func TestRenderExpertTakeInStoryTextStillGetsSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.md")
	require.NoError(t, os.WriteFile(path, []byte("Week {{ .WeekStart }}\n{{ range .Summaries }}* {{ .Title }}: {{ .Summary }}\n{{ end }}"), 0o644))

	r, err := NewRenderer(path)
	require.NoError(t, err)

	out, err := r.Render([]types.Summary{{
		Title:   "Expert Take on qubits",
		Summary: "An Expert Take from IBM on error correction.",
	}}, time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, out, "* Expert Take on qubits: An Expert Take from IBM on error correction.\n")
	require.Contains(t, out, "\n## Expert Take\n")
	require.Equal(t, 1, strings.Count(out, "## Expert Take"))
}

func TestRenderKeepsTemplateExpertTake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.md")
	require.NoError(t, os.WriteFile(path, []byte("# Week {{ .WeekStart }}\n\n### Expert Take\n\nTBD\n"), 0o644))

	r, err := NewRenderer(path)
	require.NoError(t, err)

	out, err := r.Render(nil, time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "# Week 2025-08-11\n\n### Expert Take\n\nTBD\n", out)
}

func TestNewRendererErrors(t *testing.T) {
	_, err := NewRenderer(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.md")
	require.NoError(t, os.WriteFile(path, []byte("{{ range }"), 0o644))
	_, err = NewRenderer(path)
	require.Error(t, err)
}
