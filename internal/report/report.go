// Package report serializes the run results to JSON and plain-text reports.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfirlab/casetrace/internal/analyzer"
	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/heuristics"
	"github.com/dfirlab/casetrace/internal/ingest"
	"github.com/dfirlab/casetrace/internal/osint"
	"github.com/dfirlab/casetrace/internal/search"
)

// Summary holds the headline counts for a run.
type Summary struct {
	SourcesIngested   int `json:"sources_ingested"`
	SourcesSkipped    int `json:"sources_skipped"`
	SourcesAnalyzed   int `json:"sources_analyzed"`
	HeuristicFlags    int `json:"heuristic_flags"`
	IOCMatches        int `json:"ioc_matches"`
	DetectedThreats   int `json:"detected_threats"`
	TimelineEntries   int `json:"timeline_entries"`
	FailedAssessments int `json:"failed_assessments"`
}

// Report is the complete result object rendered to every output format.
type Report struct {
	RunID          string                   `json:"run_id"`
	Version        string                   `json:"version,omitempty"`
	GeneratedAt    time.Time                `json:"generated_at"`
	Case           casefile.Context         `json:"case"`
	Summary        Summary                  `json:"summary"`
	SkippedFiles   []ingest.Skipped         `json:"skipped_files,omitempty"`
	Flags          []heuristics.Flag        `json:"pattern_based_flags"`
	Matches        []search.Match           `json:"ioc_matches"`
	MatchSummary   search.Summary           `json:"ioc_match_summary"`
	Intelligence   *osint.Intelligence      `json:"osint_intelligence,omitempty"`
	Assessments    []analyzer.Assessment    `json:"ai_analysis_results"`
	RawAssessments []analyzer.RawAssessment `json:"failed_analysis_results,omitempty"`
	Threats        []analyzer.Threat        `json:"all_threats"`
	TimelinePath   string                   `json:"timeline_path,omitempty"`
}

// New assembles a Report from the pipeline outputs and fills in the
// derived summary counts.
func New(caseCtx casefile.Context, skipped []ingest.Skipped, flags []heuristics.Flag,
	matches []search.Match, intel *osint.Intelligence, result *analyzer.Result) *Report {

	r := &Report{
		RunID:        uuid.NewString(),
		GeneratedAt:  time.Now(),
		Case:         caseCtx,
		SkippedFiles: skipped,
		Flags:        flags,
		Matches:      matches,
		MatchSummary: search.Summarize(matches),
		Intelligence: intel,
	}
	if result != nil {
		r.Assessments = result.Assessments
		r.RawAssessments = result.RawAssessments
		r.Threats = result.AllThreats()
	}
	r.Summary = Summary{
		SourcesSkipped:    len(skipped),
		SourcesAnalyzed:   len(r.Assessments),
		HeuristicFlags:    len(flags),
		IOCMatches:        len(matches),
		DetectedThreats:   len(r.Threats),
		FailedAssessments: len(r.RawAssessments),
	}
	return r
}
