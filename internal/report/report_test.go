package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dfirlab/casetrace/internal/analyzer"
	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/heuristics"
	"github.com/dfirlab/casetrace/internal/ingest"
	"github.com/dfirlab/casetrace/internal/search"
)

func sampleReport() *Report {
	result := &analyzer.Result{
		Assessments: []analyzer.Assessment{
			{
				Source: "processes",
				Threats: []analyzer.Threat{
					{Type: "malware", Severity: "low", Description: "low severity threat"},
					{Type: "suspicious_process", Severity: "critical", Description: "critical threat", Indicators: []string{"evil.exe"}, Recommendation: "isolate host"},
				},
				Summary:    "suspicious activity observed",
				Confidence: "high",
			},
		},
		RawAssessments: []analyzer.RawAssessment{
			{Source: "netconns", RawOutput: "not json", ParseError: "invalid JSON"},
		},
	}
	return New(
		casefile.Context{Analyst: "jdoe", Type: casefile.Ransomware, ThreatActor: "LockBit"},
		[]ingest.Skipped{{Path: "bad.xlsx", Err: "corrupt workbook"}},
		[]heuristics.Flag{{Source: "processes", Rule: heuristics.RuleSuspiciousKeyword, Severity: "medium", Column: "command_line", Value: "mimikatz.exe", Description: "suspicious keyword"}},
		[]search.Match{{Source: "processes", IOC: "evil.exe", IOCType: "executable", MatchType: "exact", Column: "process_name", MatchedValue: "evil.exe"}},
		nil,
		result,
	)
}

func TestNew_SummaryCounts(t *testing.T) {
	r := sampleReport()
	if r.RunID == "" {
		t.Error("RunID not set")
	}
	if r.Summary.SourcesAnalyzed != 1 {
		t.Errorf("SourcesAnalyzed = %d, want 1", r.Summary.SourcesAnalyzed)
	}
	if r.Summary.DetectedThreats != 2 {
		t.Errorf("DetectedThreats = %d, want 2", r.Summary.DetectedThreats)
	}
	if r.Summary.FailedAssessments != 1 {
		t.Errorf("FailedAssessments = %d, want 1", r.Summary.FailedAssessments)
	}
	if r.MatchSummary.TotalMatches != 1 {
		t.Errorf("TotalMatches = %d, want 1", r.MatchSummary.TotalMatches)
	}
	for _, threat := range r.Threats {
		if threat.Source != "processes" {
			t.Errorf("threat source = %q, want processes", threat.Source)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()

	path, err := NewWriter(dir).WriteJSON(r)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "forensic_report_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("unexpected filename %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.RunID != r.RunID {
		t.Errorf("round-trip RunID = %q, want %q", decoded.RunID, r.RunID)
	}
	if len(decoded.Threats) != 2 {
		t.Errorf("round-trip threats = %d, want 2", len(decoded.Threats))
	}
}

func TestWriteText(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()

	path, err := NewWriter(dir).WriteText(r)
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		"FORENSIC ANALYSIS REPORT",
		"Analyst:   jdoe",
		"Threat Actor: LockBit",
		"PATTERN-BASED FLAGS",
		"IOC MATCHES",
		"DETECTED THREATS",
		"DETAILED ANALYSIS",
		"FAILED ANALYSES",
		"bad.xlsx: corrupt workbook",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q", want)
		}
	}

	// Threats render in severity order, critical before low.
	critical := strings.Index(text, "critical threat")
	low := strings.Index(text, "low severity threat")
	if critical == -1 || low == -1 || critical > low {
		t.Errorf("threats not sorted by severity: critical at %d, low at %d", critical, low)
	}
}

func TestPrintSummary(t *testing.T) {
	r := sampleReport()
	r.TimelinePath = "/tmp/timeline_ransomware.csv"
	var sb strings.Builder
	PrintSummary(&sb, r)
	out := sb.String()
	if !strings.Contains(out, "ANALYSIS COMPLETE") {
		t.Error("missing completion banner")
	}
	if !strings.Contains(out, "Detected threats:    2") {
		t.Errorf("missing threat count in %q", out)
	}
	if !strings.Contains(out, "timeline_ransomware.csv") {
		t.Error("missing timeline path")
	}
}
