package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/heuristics"
	"github.com/dfirlab/casetrace/internal/ingest"
)

// fakeProvider returns canned responses and records calls.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	schema    interface{}
}

func (f *fakeProvider) Analyze(_ context.Context, _, userPrompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func (f *fakeProvider) SetFormat(schema interface{}) { f.schema = schema }

func testInput() Input {
	return Input{
		Case: casefile.Context{
			Analyst:     "jdoe",
			Type:        casefile.Ransomware,
			ThreatActor: "LockBit",
		},
		IOCs: []string{"evil.com", "payload.exe"},
		TTPs: []string{"T1486: Data Encrypted for Impact"},
		Flags: []heuristics.Flag{
			{Source: "processes", Severity: "high", Description: "suspicious keyword \"payload\" in file_path"},
		},
	}
}

func testTables() []*ingest.Table {
	return []*ingest.Table{
		{
			Source:  "processes",
			Columns: []string{"process_name", "file_path"},
			Rows:    []ingest.Row{{"process_name": "evil.exe", "file_path": "C:\\Temp\\evil.exe"}},
		},
	}
}

func TestAnalyzeAll_Success(t *testing.T) {
	p := &fakeProvider{responses: []string{validAssessmentJSON}}
	a := New(p, zap.NewNop())

	result := a.AnalyzeAll(context.Background(), testTables(), testInput())
	if len(result.Assessments) != 1 {
		t.Fatalf("assessments = %d, want 1", len(result.Assessments))
	}
	if len(result.RawAssessments) != 0 {
		t.Errorf("raw assessments = %d, want 0", len(result.RawAssessments))
	}
	if result.Assessments[0].Source != "processes" {
		t.Errorf("source = %q, want processes", result.Assessments[0].Source)
	}
	if p.schema == nil {
		t.Error("expected SetFormat to be called with the assessment schema")
	}

	// Case context, IOCs, TTPs, and flags must all reach the prompt.
	prompt := p.prompts[0]
	for _, want := range []string{"Ransomware", "LockBit", "evil.com", "T1486", "suspicious keyword"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyzeAll_RetriesOnce(t *testing.T) {
	p := &fakeProvider{
		responses: []string{"", validAssessmentJSON},
		errs:      []error{errors.New("transient"), nil},
	}
	a := New(p, zap.NewNop())

	result := a.AnalyzeAll(context.Background(), testTables(), testInput())
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", p.calls)
	}
	if len(result.RawAssessments) != 0 {
		t.Errorf("raw assessments = %d, want 0 after successful retry", len(result.RawAssessments))
	}
}

func TestAnalyzeAll_FallsBackOnFailure(t *testing.T) {
	p := &fakeProvider{
		errs: []error{errors.New("quota exceeded"), errors.New("quota exceeded")},
	}
	a := New(p, zap.NewNop())

	result := a.AnalyzeAll(context.Background(), testTables(), testInput())
	if len(result.Assessments) != 1 {
		t.Fatalf("assessments = %d, want 1 (fallback)", len(result.Assessments))
	}
	if result.Assessments[0].Confidence != "low" {
		t.Errorf("fallback confidence = %q, want low", result.Assessments[0].Confidence)
	}
	if len(result.RawAssessments) != 1 {
		t.Fatalf("raw assessments = %d, want 1", len(result.RawAssessments))
	}
	if !strings.Contains(result.RawAssessments[0].ParseError, "quota exceeded") {
		t.Errorf("parse error = %q, want provider error preserved", result.RawAssessments[0].ParseError)
	}
}

func TestAnalyzeAll_FallsBackOnMalformedOutput(t *testing.T) {
	prose := "I cannot analyze this data. " + strings.Repeat("More prose. ", 50)
	p := &fakeProvider{responses: []string{prose}}
	a := New(p, zap.NewNop())

	result := a.AnalyzeAll(context.Background(), testTables(), testInput())
	if len(result.RawAssessments) != 1 {
		t.Fatalf("raw assessments = %d, want 1", len(result.RawAssessments))
	}
	if len(result.Assessments) != 1 {
		t.Fatalf("assessments = %d, want fallback assessment", len(result.Assessments))
	}
	// The full response survives untruncated for later inspection.
	if got := result.RawAssessments[0].RawOutput; got != prose {
		t.Errorf("raw output = %q, want the complete model response", got)
	}
}

func TestAllThreats_TagsSource(t *testing.T) {
	r := &Result{Assessments: []Assessment{
		{Source: "a", Threats: []Threat{{Type: "other", Severity: "low", Description: "x"}}},
		{Source: "b", Threats: []Threat{{Source: "b", Type: "malware", Severity: "high", Description: "y"}}},
	}}

	threats := r.AllThreats()
	if len(threats) != 2 {
		t.Fatalf("threats = %d, want 2", len(threats))
	}
	if threats[0].Source != "a" || threats[1].Source != "b" {
		t.Errorf("sources = %q/%q, want a/b", threats[0].Source, threats[1].Source)
	}
}
