package search

import (
	"testing"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/ingest"
)

func TestClassify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"10.0.0.5", "ip_address"},
		{"d41d8cd98f00b204e9800998ecf8427e", "hash"},
		{"DA39A3EE5E6B4B0D3255BFEF95601890AFD80709", "hash"},
		{"evil.com", "domain"},
		{"sub.evil.co.uk", "domain"},
		{"attacker@evil.com", "email"},
		{"payload.exe", "executable"},
		{"stage1.PS1", "executable"},
		{"HKLM\\Software\\Run", "unknown"},
	}
	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func searchTables() []*ingest.Table {
	return []*ingest.Table{
		{
			Source:  "dns",
			Columns: []string{"timestamp", "domain"},
			Rows: []ingest.Row{
				{"timestamp": "2024-03-01 10:00:00", "domain": "EVIL.COM"},
				{"timestamp": "2024-03-01 10:01:00", "domain": "good.example.org"},
			},
		},
		{
			Source:  "proxy",
			Columns: []string{"url"},
			Rows: []ingest.Row{
				{"url": "https://cdn.evil.com/stage2"},
			},
		},
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	s := New([]string{"evil.com"}, zap.NewNop())
	matches := s.Search(searchTables())

	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}

	// Uppercase cell, lowercase IOC: exact match.
	if matches[0].MatchType != "exact" || matches[0].MatchedValue != "EVIL.COM" {
		t.Errorf("first match = %+v, want exact EVIL.COM", matches[0])
	}
	// Embedded in a URL: partial match.
	if matches[1].MatchType != "partial" || matches[1].Source != "proxy" {
		t.Errorf("second match = %+v, want partial in proxy", matches[1])
	}
}

func TestSearch_SingleRowPrecision(t *testing.T) {
	// A known IOC present in exactly one row must report that row and no others.
	s := New([]string{"good.example.org"}, zap.NewNop())
	matches := s.Search(searchTables())

	if len(matches) != 1 {
		t.Fatalf("matches = %d, want exactly 1", len(matches))
	}
	m := matches[0]
	if m.Source != "dns" || m.RowIndex != 1 || m.Column != "domain" {
		t.Errorf("match = %+v, want dns row 1 column domain", m)
	}
	if m.IOCType != "domain" {
		t.Errorf("ioc type = %q, want domain", m.IOCType)
	}
}

func TestSearch_NoIOCs(t *testing.T) {
	s := New([]string{"", "  "}, zap.NewNop())
	if matches := s.Search(searchTables()); len(matches) != 0 {
		t.Errorf("matches = %d, want 0 for empty IOC list", len(matches))
	}
}

func TestSummarize(t *testing.T) {
	s := New([]string{"evil.com", "good.example.org"}, zap.NewNop())
	sum := Summarize(s.Search(searchTables()))

	if sum.TotalMatches != 3 {
		t.Errorf("total = %d, want 3", sum.TotalMatches)
	}
	if sum.BySource["dns"] != 2 || sum.BySource["proxy"] != 1 {
		t.Errorf("by source = %v", sum.BySource)
	}
	if sum.ByIOC["evil.com"] != 2 {
		t.Errorf("by ioc = %v", sum.ByIOC)
	}
	if sum.ByIOCType["domain"] != 3 {
		t.Errorf("by type = %v", sum.ByIOCType)
	}
}
