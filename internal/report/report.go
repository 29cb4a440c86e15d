package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/reelscout/internal/pipeline"
)

// Summary contains aggregated metrics about a collection run.
type Summary struct {
	RunID            string
	Query            string
	Candidates       int
	Kept             int
	SkippedNoProfile int
	SkippedNoMatch   int
	ReelsCollected   int
	TotalViews       int64
	LinksProbed      int
	LinksBlocked     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// GenerateSummary aggregates a run outcome into summary metrics.
func GenerateSummary(outcome *pipeline.Outcome) Summary {
	s := Summary{
		RunID:            outcome.RunID,
		Query:            outcome.Query,
		Candidates:       outcome.Stats.Candidates,
		Kept:             outcome.Stats.Kept,
		SkippedNoProfile: outcome.Stats.SkippedNoProfile,
		SkippedNoMatch:   outcome.Stats.SkippedNoMatch,
		ReelsCollected:   outcome.Stats.ReelsCollected,
		StartTime:        outcome.Started,
		EndTime:          outcome.Finished,
		Duration:         outcome.Finished.Sub(outcome.Started),
	}

	for _, res := range outcome.Results {
		for _, r := range res.TopReels {
			s.TotalViews += r.Views
		}
		if res.Link != nil {
			s.LinksProbed++
			if res.Link.Blocked {
				s.LinksBlocked++
			}
		}
	}

	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Reelscout Run Summary
---------------------
Run:           {{.RunID}}
Query:         {{.Query}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}

Accounts:      {{.Candidates}} candidates, {{.Kept}} kept
Skipped:       {{.SkippedNoProfile}} without profile, {{.SkippedNoMatch}} without keyword match
Reels:         {{.ReelsCollected}} collected, {{.TotalViews}} total views on top reels
{{- if .LinksProbed}}
Links:         {{.LinksProbed}} probed, {{.LinksBlocked}} blocked
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return nil
}
