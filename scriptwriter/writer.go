package scriptwriter

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"weeklyreport/types"
)

//go:embed templates/weekly_script_template.md
var templateFS embed.FS

const defaultTemplate = "templates/weekly_script_template.md"

// ExpertTakeHeading must appear in every rendered script
const ExpertTakeHeading = "Expert Take"

// expertTakeLine matches the section heading on a line of its own, so story
// text that mentions an expert take does not count
var expertTakeLine = regexp.MustCompile(`(?m)^#+[ \t]*` + regexp.QuoteMeta(ExpertTakeHeading) + `[ \t]*$`)

const expertTakeSection = "\n## Expert Take\n\n_Placeholder: add the expert commentary for this week here._\n"

// Data is what templates can reference
type Data struct {
	WeekStart   string
	WeekEnd     string
	GeneratedAt string
	Summaries   []types.Summary
}

// Renderer expands the weekly script template
type Renderer struct {
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// NewRenderer loads templateFile, or the built-in template when empty
func NewRenderer(templateFile string) (*Renderer, error) {
	var (
		name string
		src  []byte
		err  error
	)
	if templateFile == "" {
		name = filepath.Base(defaultTemplate)
		src, err = templateFS.ReadFile(defaultTemplate)
	} else {
		name = filepath.Base(templateFile)
		src, err = os.ReadFile(templateFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// WeekBounds returns Monday and Sunday of the week containing t
func WeekBounds(t time.Time) (time.Time, time.Time) {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 6)
}

// Render expands the template for the week containing now. The result
// always contains an Expert Take section.
func (r *Renderer) Render(summaries []types.Summary, now time.Time) (string, error) {
	start, end := WeekBounds(now)
	data := Data{
		WeekStart:   start.Format("2006-01-02"),
		WeekEnd:     end.Format("2006-01-02"),
		GeneratedAt: now.Format(time.RFC3339),
		Summaries:   summaries,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering script: %w", err)
	}

	out := buf.String()
	if !expertTakeLine.MatchString(out) {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += expertTakeSection
	}
	return out, nil
}
