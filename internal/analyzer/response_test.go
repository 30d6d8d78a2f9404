package analyzer

import (
	"strings"
	"testing"
)

const validAssessmentJSON = `{
  "threats": [
    {
      "type": "Suspicious_Process",
      "severity": "HIGH",
      "description": "powershell.exe -EncodedCommand observed in command_line",
      "indicators": ["powershell.exe -EncodedCommand SQBFAFgA"],
      "recommendation": "Decode and review the command"
    }
  ],
  "summary": "One suspicious process execution found.",
  "confidence": "Medium"
}`

func TestParseAssessment_NormalizesEnums(t *testing.T) {
	a, err := ParseAssessment("sysmon", validAssessmentJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Source != "sysmon" {
		t.Errorf("source = %q, want sysmon", a.Source)
	}
	if a.Confidence != "medium" {
		t.Errorf("confidence = %q, want medium", a.Confidence)
	}
	if len(a.Threats) != 1 {
		t.Fatalf("threats = %d, want 1", len(a.Threats))
	}
	if a.Threats[0].Severity != "high" {
		t.Errorf("severity = %q, want high", a.Threats[0].Severity)
	}
	if a.Threats[0].Type != "suspicious_process" {
		t.Errorf("type = %q, want suspicious_process", a.Threats[0].Type)
	}
	if a.Threats[0].Source != "sysmon" {
		t.Errorf("threat source = %q, want sysmon", a.Threats[0].Source)
	}
}

func TestParseAssessment_MarkdownFences(t *testing.T) {
	wrapped := "```json\n" + validAssessmentJSON + "\n```"
	if _, err := ParseAssessment("sysmon", wrapped); err != nil {
		t.Errorf("unexpected error for fenced JSON: %v", err)
	}
}

func TestParseAssessment_LeadingProse(t *testing.T) {
	prose := "Here is my analysis:\n\n" + validAssessmentJSON + "\n\nLet me know if you need more."
	if _, err := ParseAssessment("sysmon", prose); err != nil {
		t.Errorf("unexpected error for prose-wrapped JSON: %v", err)
	}
}

func TestParseAssessment_RejectsMissingFields(t *testing.T) {
	if _, err := ParseAssessment("x", `{"threats": []}`); err == nil {
		t.Error("expected schema violation for missing summary/confidence")
	}
	if _, err := ParseAssessment("x", "not json at all"); err == nil {
		t.Error("expected error for non-JSON output")
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct{ name, in, want string }{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", "Sure! {\"a\":1} done", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONResponse(tt.in); got != tt.want {
				t.Errorf("CleanJSONResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFallbackAssessment(t *testing.T) {
	a := FallbackAssessment("files", "c:\\users\\x\\appdata\\local\\temp\\payload.bin")
	if a.Confidence != "low" {
		t.Errorf("confidence = %q, want low", a.Confidence)
	}
	if len(a.Threats) != 1 || a.Threats[0].Type != "file_anomaly" {
		t.Errorf("threats = %+v, want one file_anomaly", a.Threats)
	}

	clean := FallbackAssessment("files", "c:\\program files\\app.txt")
	if len(clean.Threats) != 0 {
		t.Errorf("threats = %+v, want none for clean sample", clean.Threats)
	}
	if !strings.Contains(clean.Summary, "fallback") {
		t.Errorf("summary should mention fallback, got %q", clean.Summary)
	}
}
