package types

import "time"

// Stage names a pipeline stage
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StageRender    Stage = "render"
	StageAll       Stage = "all"
)

// ParseStage maps a user-provided name to a Stage
func ParseStage(s string) (Stage, bool) {
	switch Stage(s) {
	case StageFetch, StageSummarize, StageRender, StageAll:
		return Stage(s), true
	}
	return "", false
}

// FetchReport carries the counters of one fetch stage
type FetchReport struct {
	Sources        int               `json:"sources"`
	Unsupported    []string          `json:"unsupported,omitempty"`
	SourceErrors   map[string]string `json:"source_errors,omitempty"`
	Entries        int               `json:"entries"`
	Dropped        int               `json:"dropped"`
	Duplicates     int               `json:"duplicates"`
	TooOld         int               `json:"too_old"`
	HistorySkipped int               `json:"history_skipped"`
	Truncated      int               `json:"truncated"`
	Saved          int               `json:"saved"`
	Path           string            `json:"path"`
}

// SummarizeReport carries the counters of one summarize stage
type SummarizeReport struct {
	Generator string `json:"generator"`
	Articles  int    `json:"articles"`
	Fallbacks int    `json:"fallbacks"`
	Path      string `json:"path"`
}

// RenderReport describes the written script
type RenderReport struct {
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Summaries int    `json:"summaries"`
	Path      string `json:"path"`
}

// RunReport aggregates one invocation of the pipeline
type RunReport struct {
	RunID      string           `json:"run_id"`
	Stage      Stage            `json:"stage"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Fetch      *FetchReport     `json:"fetch,omitempty"`
	Summarize  *SummarizeReport `json:"summarize,omitempty"`
	Render     *RenderReport    `json:"render,omitempty"`
	Error      string           `json:"error,omitempty"`
}
