package analyzer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/heuristics"
	"github.com/dfirlab/casetrace/internal/ingest"
)

const sampleRows = 20

// Input carries the case context shared by every per-source analysis call.
type Input struct {
	Case  casefile.Context
	IOCs  []string
	TTPs  []string // pre-rendered "Technique: description" lines
	Flags []heuristics.Flag
}

// Result wraps the complete analysis output.
type Result struct {
	Assessments    []Assessment    `json:"assessments"`
	RawAssessments []RawAssessment `json:"raw_assessments,omitempty"`
}

// Analyzer runs per-source LLM analysis, one request per ingested table.
type Analyzer struct {
	provider Provider
	log      *zap.Logger
}

// New creates an Analyzer with the given LLM provider.
func New(provider Provider, log *zap.Logger) *Analyzer {
	return &Analyzer{provider: provider, log: log}
}

// AnalyzeAll analyzes every table sequentially. A failed source degrades to a
// heuristic fallback assessment and preserves the raw output; the run never
// aborts on a single source.
func (a *Analyzer) AnalyzeAll(ctx context.Context, tables []*ingest.Table, in Input) *Result {
	result := &Result{}

	for _, t := range tables {
		assessment, raw := a.analyzeTable(ctx, t, in)
		result.Assessments = append(result.Assessments, assessment)
		if raw != nil {
			result.RawAssessments = append(result.RawAssessments, *raw)
		}
	}
	return result
}

// AnalyzeTable runs analysis for a single table. The raw model response is
// returned alongside the assessment so a parse failure can preserve it; it is
// empty when the provider request itself failed.
func (a *Analyzer) AnalyzeTable(ctx context.Context, t *ingest.Table, in Input) (Assessment, string, error) {
	summary := fmt.Sprintf("Rows: %d\nColumns: %d\nColumn names: %s",
		len(t.Rows), len(t.Columns), strings.Join(t.Columns, ", "))
	sample := t.Preview(sampleRows)
	prompt := BuildAnalysisPrompt(in.Case, in.TTPs, in.IOCs, flagsForSource(in.Flags, t.Source), t.Source, summary, sample)

	if fs, ok := a.provider.(FormatSetter); ok {
		fs.SetFormat(AssessmentSchema)
	}

	raw, err := a.callWithRetry(ctx, SystemPrompt, prompt)
	if err != nil {
		return Assessment{}, "", fmt.Errorf("analyze %s: %w", t.Source, err)
	}

	assessment, err := ParseAssessment(t.Source, raw)
	if err != nil {
		return Assessment{}, raw, fmt.Errorf("parse %s: %w", t.Source, err)
	}
	return assessment, raw, nil
}

func (a *Analyzer) analyzeTable(ctx context.Context, t *ingest.Table, in Input) (Assessment, *RawAssessment) {
	a.log.Debug("analyzing source", zap.String("source", t.Source))

	assessment, rawOutput, err := a.AnalyzeTable(ctx, t, in)
	if err == nil {
		return assessment, nil
	}

	a.log.Warn("analysis failed, using heuristic fallback",
		zap.String("source", t.Source), zap.Error(err))

	raw := &RawAssessment{Source: t.Source, RawOutput: rawOutput, ParseError: err.Error()}
	return FallbackAssessment(t.Source, t.Preview(sampleRows)), raw
}

// FallbackAssessment produces a token-heuristic assessment when the LLM is
// unavailable or its output is unusable.
func FallbackAssessment(source, sample string) Assessment {
	var threats []Threat
	lower := strings.ToLower(sample)

	if strings.Contains(lower, "temp") || strings.Contains(lower, "tmp") {
		threats = append(threats, Threat{
			Source:         source,
			Type:           "file_anomaly",
			Severity:       "medium",
			Description:    "Files in temporary directories detected",
			Indicators:     []string{"temp directory usage"},
			Recommendation: "Review files in temporary directories",
		})
	}

	return Assessment{
		Source:     source,
		Threats:    threats,
		Summary:    "Heuristic fallback analysis completed; LLM analysis was unavailable for this source.",
		Confidence: "low",
	}
}

// AllThreats flattens threats across assessments, each tagged with its source.
func (r *Result) AllThreats() []Threat {
	var threats []Threat
	for _, a := range r.Assessments {
		for _, t := range a.Threats {
			if t.Source == "" {
				t.Source = a.Source
			}
			threats = append(threats, t)
		}
	}
	return threats
}

// callWithRetry calls the LLM provider with one retry on failure.
func (a *Analyzer) callWithRetry(ctx context.Context, system, user string) (string, error) {
	raw, err := a.provider.Analyze(ctx, system, user)
	if err != nil {
		a.log.Debug("first attempt failed, retrying", zap.Error(err))
		raw, err = a.provider.Analyze(ctx, system, user)
		if err != nil {
			return "", err
		}
	}
	return raw, nil
}

func flagsForSource(flags []heuristics.Flag, source string) []heuristics.Flag {
	var out []heuristics.Flag
	for _, f := range flags {
		if f.Source == source {
			out = append(out, f)
		}
	}
	return out
}
