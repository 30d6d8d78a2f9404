package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const nameTimeLayout = "20060102_150405"

var severityRank = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

// Writer renders reports into an output directory.
type Writer struct {
	outputDir string
}

func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

func (w *Writer) ensureDir() error {
	return os.MkdirAll(w.outputDir, 0o755)
}

// WriteJSON writes forensic_report_<timestamp>.json and returns its path.
func (w *Writer) WriteJSON(r *Report) (string, error) {
	if err := w.ensureDir(); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("forensic_report_%s.json", r.GeneratedAt.Format(nameTimeLayout))
	path := filepath.Join(w.outputDir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write json report: %w", err)
	}
	return path, nil
}

// WriteText writes forensic_report_<timestamp>.txt and returns its path.
func (w *Writer) WriteText(r *Report) (string, error) {
	if err := w.ensureDir(); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("forensic_report_%s.txt", r.GeneratedAt.Format(nameTimeLayout))
	path := filepath.Join(w.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create text report: %w", err)
	}
	defer f.Close()

	if err := RenderText(f, r); err != nil {
		return "", fmt.Errorf("write text report: %w", err)
	}
	return path, nil
}

// RenderText writes the human-readable report to out.
func RenderText(out io.Writer, r *Report) error {
	rule := strings.Repeat("=", 80)
	sub := strings.Repeat("-", 80)
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("FORENSIC ANALYSIS REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Run ID:    %s\n", r.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Analyst:   %s\n", r.Case.Analyst)
	fmt.Fprintf(&b, "Case Type: %s\n", r.Case.Type)
	if r.Case.ThreatActor != "" {
		fmt.Fprintf(&b, "Threat Actor: %s\n", r.Case.ThreatActor)
	}
	b.WriteString("\n")

	b.WriteString("SUMMARY\n" + sub + "\n")
	fmt.Fprintf(&b, "Sources Analyzed: %d\n", r.Summary.SourcesAnalyzed)
	fmt.Fprintf(&b, "Files Skipped: %d\n", r.Summary.SourcesSkipped)
	fmt.Fprintf(&b, "Pattern-based Flags: %d\n", r.Summary.HeuristicFlags)
	fmt.Fprintf(&b, "IOC Matches: %d\n", r.Summary.IOCMatches)
	fmt.Fprintf(&b, "Detected Threats: %d\n", r.Summary.DetectedThreats)
	b.WriteString("\n")

	if len(r.SkippedFiles) > 0 {
		b.WriteString("SKIPPED FILES\n" + sub + "\n")
		for _, s := range r.SkippedFiles {
			fmt.Fprintf(&b, "  %s: %s\n", s.Path, s.Err)
		}
		b.WriteString("\n")
	}

	if len(r.Flags) > 0 {
		b.WriteString("PATTERN-BASED FLAGS\n" + sub + "\n")
		for i, fl := range r.Flags {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, strings.ToUpper(fl.Severity), fl.Description)
			fmt.Fprintf(&b, "   Source: %s\n", fl.Source)
			fmt.Fprintf(&b, "   Column: %s\n", fl.Column)
			fmt.Fprintf(&b, "   Value: %s\n\n", fl.Value)
		}
	}

	if len(r.Matches) > 0 {
		b.WriteString("IOC MATCHES\n" + sub + "\n")
		for i, m := range r.Matches {
			fmt.Fprintf(&b, "%d. %s (%s, %s match)\n", i+1, m.IOC, m.IOCType, m.MatchType)
			fmt.Fprintf(&b, "   Source: %s row %d, column %s\n", m.Source, m.RowIndex, m.Column)
			fmt.Fprintf(&b, "   Value: %s\n\n", m.MatchedValue)
		}
	}

	if r.Intelligence != nil {
		b.WriteString("OSINT INTELLIGENCE\n" + sub + "\n")
		fmt.Fprintf(&b, "Threat Actor: %s\n", r.Intelligence.ThreatActor)
		for _, line := range r.Intelligence.TTPLines() {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
		if iocs := r.Intelligence.AllIOCs(); len(iocs) > 0 {
			fmt.Fprintf(&b, "Known IOCs: %s\n", strings.Join(iocs, ", "))
		}
		b.WriteString("\n")
	}

	if len(r.Threats) > 0 {
		b.WriteString("DETECTED THREATS\n" + sub + "\n")
		threats := make([]int, len(r.Threats))
		for i := range threats {
			threats[i] = i
		}
		sort.SliceStable(threats, func(i, j int) bool {
			ri, ok := severityRank[strings.ToLower(r.Threats[threats[i]].Severity)]
			if !ok {
				ri = len(severityRank)
			}
			rj, ok := severityRank[strings.ToLower(r.Threats[threats[j]].Severity)]
			if !ok {
				rj = len(severityRank)
			}
			return ri < rj
		})
		for n, idx := range threats {
			t := r.Threats[idx]
			fmt.Fprintf(&b, "%d. [%s] %s\n", n+1, strings.ToUpper(t.Severity), t.Type)
			fmt.Fprintf(&b, "   Source: %s\n", t.Source)
			fmt.Fprintf(&b, "   Description: %s\n", t.Description)
			if len(t.Indicators) > 0 {
				fmt.Fprintf(&b, "   Indicators: %s\n", strings.Join(t.Indicators, ", "))
			}
			if t.Recommendation != "" {
				fmt.Fprintf(&b, "   Recommendation: %s\n", t.Recommendation)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Assessments) > 0 {
		b.WriteString("DETAILED ANALYSIS\n" + sub + "\n")
		for _, a := range r.Assessments {
			fmt.Fprintf(&b, "\nSource: %s\n", a.Source)
			fmt.Fprintf(&b, "Confidence: %s\n", a.Confidence)
			fmt.Fprintf(&b, "Summary: %s\n", a.Summary)
		}
		b.WriteString("\n")
	}

	if len(r.RawAssessments) > 0 {
		b.WriteString("FAILED ANALYSES\n" + sub + "\n")
		for _, ra := range r.RawAssessments {
			fmt.Fprintf(&b, "Source: %s\n", ra.Source)
			fmt.Fprintf(&b, "Error: %s\n\n", ra.ParseError)
		}
	}

	b.WriteString(rule + "\n")
	_, err := io.WriteString(out, b.String())
	return err
}

// PrintSummary writes the short console summary shown at the end of a run.
func PrintSummary(out io.Writer, r *Report) {
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "ANALYSIS COMPLETE")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Sources analyzed:    %d\n", r.Summary.SourcesAnalyzed)
	fmt.Fprintf(out, "Pattern-based flags: %d\n", r.Summary.HeuristicFlags)
	fmt.Fprintf(out, "IOC matches:         %d\n", r.Summary.IOCMatches)
	fmt.Fprintf(out, "Detected threats:    %d\n", r.Summary.DetectedThreats)
	if r.Summary.FailedAssessments > 0 {
		fmt.Fprintf(out, "Failed analyses:     %d\n", r.Summary.FailedAssessments)
	}
	if r.TimelinePath != "" {
		fmt.Fprintf(out, "Timeline: %s\n", r.TimelinePath)
	}
}
