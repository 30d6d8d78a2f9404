package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/config"
	"github.com/dfirlab/casetrace/internal/report"
)

const assessmentJSON = `{
	"threats": [
		{"type": "suspicious_process", "severity": "high", "description": "mimikatz execution observed", "indicators": ["mimikatz.exe"], "recommendation": "isolate host"}
	],
	"summary": "Credential dumping activity detected",
	"confidence": "high"
}`

const intelJSON = `{
	"threat_actor": "LockBit",
	"ttps": [{"tactic": "Impact", "technique": "T1486", "description": "encrypts files"}],
	"iocs": {
		"ip_addresses": [], "domains": ["lockbit.example"], "file_hashes": [],
		"email_addresses": [], "executables": [], "registry_keys": [],
		"user_agents": [], "other": []
	}
}`

type fakeProvider struct {
	calls   int
	prompts []string
}

func (f *fakeProvider) Analyze(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, user)
	if strings.Contains(system, "threat intelligence researcher") {
		return intelJSON, nil
	}
	return assessmentJSON, nil
}

func (f *fakeProvider) SetFormat(schema interface{}) {}

func testConfig(outputDir string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{Provider: "gemini", APIKey: "test", Model: "gemini-1.5-flash"},
		Output: config.OutputConfig{
			Dir: outputDir,
		},
		Case: config.CaseConfig{
			Analyst:     "jdoe",
			CaseType:    "Ransomware",
			ThreatActor: "LockBit",
			IOCs:        []string{"mimikatz.exe"},
			Interactive: false,
		},
	}
}

func writeSampleData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	csvData := "Timestamp,Computer Name,User Name,Process Name,Command Line\n" +
		"2024-03-15 10:30:00,WKS-01,alice,mimikatz.exe,mimikatz.exe sekurlsa::logonpasswords\n" +
		"2024-03-15 10:31:00,WKS-01,alice,notepad.exe,notepad.exe report.txt\n"
	if err := os.WriteFile(filepath.Join(dir, "process_list.csv"), []byte(csvData), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRun_FullPipeline(t *testing.T) {
	dataDir := writeSampleData(t)
	outDir := t.TempDir()

	o := New(testConfig(outDir), Options{DataDir: dataDir, Version: "1.2.3 (abc)"}, zap.NewNop())
	fake := &fakeProvider{}
	o.SetProvider(fake)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One OSINT lookup plus one analysis per source.
	if fake.calls != 2 {
		t.Errorf("provider calls = %d, want 2", fake.calls)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	var haveTimeline, haveJSON, haveText bool
	var jsonPath string
	for _, e := range entries {
		switch {
		case e.Name() == "timeline_ransomware.csv":
			haveTimeline = true
		case strings.HasPrefix(e.Name(), "forensic_report_") && strings.HasSuffix(e.Name(), ".json"):
			haveJSON = true
			jsonPath = filepath.Join(outDir, e.Name())
		case strings.HasPrefix(e.Name(), "forensic_report_") && strings.HasSuffix(e.Name(), ".txt"):
			haveText = true
		}
	}
	if !haveTimeline || !haveJSON || !haveText {
		t.Fatalf("missing outputs: timeline=%v json=%v text=%v", haveTimeline, haveJSON, haveText)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if rep.Case.Analyst != "jdoe" {
		t.Errorf("analyst = %q, want jdoe", rep.Case.Analyst)
	}
	if rep.Version != "1.2.3 (abc)" {
		t.Errorf("version = %q, want build version stamped", rep.Version)
	}
	if rep.Summary.DetectedThreats != 1 {
		t.Errorf("detected threats = %d, want 1", rep.Summary.DetectedThreats)
	}
	if rep.Summary.IOCMatches == 0 {
		t.Error("expected at least one IOC match for mimikatz.exe")
	}
	if rep.Intelligence == nil || rep.Intelligence.ThreatActor != "LockBit" {
		t.Errorf("intelligence not recorded: %+v", rep.Intelligence)
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	o := New(testConfig(t.TempDir()), Options{DataDir: t.TempDir()}, zap.NewNop())
	o.SetProvider(&fakeProvider{})

	err := o.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no supported files") {
		t.Errorf("err = %v, want no-files error", err)
	}
}

func TestRun_NoOSINTFlag(t *testing.T) {
	dataDir := writeSampleData(t)
	cfg := testConfig(t.TempDir())

	o := New(cfg, Options{DataDir: dataDir, NoOSINT: true}, zap.NewNop())
	fake := &fakeProvider{}
	o.SetProvider(fake)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Only the per-source analysis call, no intel lookup.
	if fake.calls != 1 {
		t.Errorf("provider calls = %d, want 1", fake.calls)
	}
}

func TestRun_NoIOCsSkipsSearch(t *testing.T) {
	dataDir := writeSampleData(t)
	cfg := testConfig(t.TempDir())
	cfg.Case.ThreatActor = ""
	cfg.Case.IOCs = nil

	o := New(cfg, Options{DataDir: dataDir}, zap.NewNop())
	o.SetProvider(&fakeProvider{})

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
