// Package orchestrator coordinates the Ingest → Detect → Analyze → Report pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/analyzer"
	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/config"
	"github.com/dfirlab/casetrace/internal/heuristics"
	"github.com/dfirlab/casetrace/internal/ingest"
	"github.com/dfirlab/casetrace/internal/normalize"
	"github.com/dfirlab/casetrace/internal/osint"
	"github.com/dfirlab/casetrace/internal/report"
	"github.com/dfirlab/casetrace/internal/search"
	"github.com/dfirlab/casetrace/internal/timeline"
)

// Options holds CLI flags for the orchestrator.
type Options struct {
	DataDir   string
	OutputDir string
	NoOSINT   bool
	Verbose   bool
	Version   string
}

// Orchestrator runs the pipeline stages in order. Each stage consumes the
// previous stage's output; there is no parallelism between stages.
type Orchestrator struct {
	cfg      *config.Config
	opts     Options
	log      *zap.Logger
	provider analyzer.Provider // optional: injected for testing
}

// New creates an Orchestrator with validated config.
func New(cfg *config.Config, opts Options, log *zap.Logger) *Orchestrator {
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.Output.Dir
	}
	return &Orchestrator{cfg: cfg, opts: opts, log: log}
}

// SetProvider overrides the LLM provider (used in tests).
func (o *Orchestrator) SetProvider(p analyzer.Provider) {
	o.provider = p
}

// Run executes the full pipeline.
func (o *Orchestrator) Run(ctx context.Context) error {
	startTime := time.Now()

	caseCtx, err := o.collectCase()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "[*] Case type %s, analyst %s, %d known IOC(s)\n",
		caseCtx.Type, caseCtx.Analyst, len(caseCtx.KnownIOCs))
	o.log.Debug("case context", zap.String("case", caseCtx.Summary()))

	// Ingestion
	fmt.Fprintf(os.Stderr, "[*] Ingesting files from %s...\n", o.opts.DataDir)
	tables, skipped, err := ingest.New(o.opts.DataDir, o.log).IngestAll()
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "[orchestrator] warning: skipped %s: %s\n", s.Path, s.Err)
	}
	if len(tables) == 0 {
		fmt.Fprintf(os.Stderr, "[*] No files found in %s, nothing to analyze\n", o.opts.DataDir)
		return fmt.Errorf("no supported files found in %s", o.opts.DataDir)
	}
	fmt.Fprintf(os.Stderr, "[*] Ingested %d source(s), skipped %d\n", len(tables), len(skipped))
	if o.opts.Verbose {
		for _, t := range tables {
			fmt.Fprintf(os.Stderr, "    %-30s %d rows, %d columns\n", t.Source, len(t.Rows), len(t.Columns))
		}
	}

	// Normalization
	normalizer, err := normalize.NewDefault()
	if err != nil {
		return fmt.Errorf("load column schema: %w", err)
	}
	tables = normalizer.ApplyAll(tables)

	// Heuristics
	heuristicOpts := []heuristics.Option{
		heuristics.WithExtraKeywords(o.cfg.Heuristics.ExtraKeywords),
		heuristics.WithKnownPaths(o.cfg.Heuristics.KnownPaths),
	}
	if engine, sigmaErr := heuristics.NewDefaultRuleEngine(); sigmaErr != nil {
		fmt.Fprintf(os.Stderr, "[orchestrator] warning: rule engine init: %v\n", sigmaErr)
	} else {
		heuristicOpts = append(heuristicOpts, heuristics.WithSigma(engine))
	}
	flags := heuristics.NewMatcher(o.log, heuristicOpts...).Scan(tables)
	fmt.Fprintf(os.Stderr, "[*] Heuristics: %d flag(s) raised\n", len(flags))

	provider := o.provider
	if provider == nil {
		provider, err = analyzer.NewProvider(
			o.cfg.LLM.Provider, o.cfg.LLM.APIKey, o.cfg.LLM.Model,
			o.cfg.LLM.Endpoint, o.cfg.LLM.Timeout)
		if err != nil {
			return err
		}
	}

	// OSINT enrichment
	var intel *osint.Intelligence
	var ttps []string
	iocs := caseCtx.KnownIOCs
	if !o.opts.NoOSINT && caseCtx.ThreatActor != "" {
		fmt.Fprintf(os.Stderr, "[*] Gathering OSINT for %q...\n", caseCtx.ThreatActor)
		svc, svcErr := osint.NewService(provider, o.log)
		if svcErr != nil {
			return svcErr
		}
		intel, err = svc.Lookup(ctx, caseCtx.ThreatActor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[orchestrator] warning: OSINT enrichment failed: %v\n", err)
		} else {
			ttps = intel.TTPLines()
			iocs = casefile.CombineIOCs(iocs, intel.AllIOCs())
			fmt.Fprintf(os.Stderr, "[*] OSINT: %d TTP(s), %d IOC(s) added\n", len(ttps), len(intel.AllIOCs()))
		}
	}

	// IOC search
	var matches []search.Match
	if len(iocs) > 0 {
		fmt.Fprintf(os.Stderr, "[*] Searching %d IOC(s) across %d source(s)...\n", len(iocs), len(tables))
		matches = search.New(iocs, o.log).Search(tables)
		fmt.Fprintf(os.Stderr, "[*] IOC search: %d match(es)\n", len(matches))
	} else {
		fmt.Fprintf(os.Stderr, "[*] No IOCs supplied, skipping focused search\n")
	}

	// AI analysis
	fmt.Fprintf(os.Stderr, "[*] Analyzing with LLM (%s/%s)...\n", o.cfg.LLM.Provider, o.cfg.LLM.Model)
	result := analyzer.New(provider, o.log).AnalyzeAll(ctx, tables, analyzer.Input{
		Case:  caseCtx,
		IOCs:  iocs,
		TTPs:  ttps,
		Flags: flags,
	})
	if n := len(result.RawAssessments); n > 0 {
		fmt.Fprintf(os.Stderr, "[orchestrator] warning: %d source(s) fell back to heuristic-only assessment\n", n)
	}

	// Timeline
	builder := timeline.NewBuilder(caseCtx.Analyst)
	bySource := make(map[string]*ingest.Table, len(tables))
	for _, t := range tables {
		bySource[t.Source] = t
	}
	for _, m := range matches {
		builder.AddFromMatch(m)
	}
	for _, f := range flags {
		var row ingest.Row
		if t := bySource[f.Source]; t != nil && f.RowIndex >= 0 && f.RowIndex < len(t.Rows) {
			row = t.Rows[f.RowIndex]
		}
		builder.AddFromFlag(f, row)
	}
	for _, threat := range result.AllThreats() {
		builder.AddFromThreat(threat)
	}
	timelinePath, err := builder.WriteCSV(o.opts.OutputDir, caseCtx.Type)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "[*] Timeline: %s (%d entries)\n", timelinePath, len(builder.Events()))

	// Reporting
	fmt.Fprintf(os.Stderr, "[*] Generating report...\n")
	rep := report.New(caseCtx, skipped, flags, matches, intel, result)
	rep.Version = o.opts.Version
	rep.Summary.SourcesIngested = len(tables)
	rep.Summary.TimelineEntries = len(builder.Events())
	rep.TimelinePath = timelinePath

	writer := report.NewWriter(o.opts.OutputDir)
	jsonPath, err := writer.WriteJSON(rep)
	if err != nil {
		return err
	}
	textPath, err := writer.WriteText(rep)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "[*] Report generated: %s, %s\n", jsonPath, textPath)
	fmt.Fprintf(os.Stderr, "[*] Total time: %s\n", time.Since(startTime).Round(time.Millisecond))

	report.PrintSummary(os.Stdout, rep)
	return nil
}

// collectCase builds the case context from config, prompting interactively
// for any missing fields when interactive mode is enabled.
func (o *Orchestrator) collectCase() (casefile.Context, error) {
	defaults := casefile.Context{
		Analyst:     o.cfg.Case.Analyst,
		ThreatActor: o.cfg.Case.ThreatActor,
	}
	if o.cfg.Case.CaseType != "" {
		ct, err := casefile.ParseCaseType(o.cfg.Case.CaseType)
		if err != nil {
			return casefile.Context{}, err
		}
		defaults.Type = ct
	}
	for _, entry := range o.cfg.Case.IOCs {
		defaults.KnownIOCs = casefile.CombineIOCs(defaults.KnownIOCs, casefile.SplitIOCList(entry))
	}

	if !o.cfg.Case.Interactive {
		if defaults.Analyst == "" {
			defaults.Analyst = "Unknown Analyst"
		}
		if defaults.Type == "" {
			defaults.Type = casefile.Other
		}
		return defaults, nil
	}
	return casefile.NewCollector(os.Stdin, os.Stderr).Collect(defaults)
}
