package normalize

import (
	"reflect"
	"testing"

	"github.com/dfirlab/casetrace/internal/ingest"
)

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Process Name", "process_name"},
		{"  Event-ID ", "event_id"},
		{"already_folded", "already_folded"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonical_MapsSynonymsToSameKey(t *testing.T) {
	n, err := NewDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Known synonyms from different tools must land on the same canonical key.
	synonyms := []string{"proc_name", "Process Name", "Image", "process"}
	for _, s := range synonyms {
		if got := n.Canonical(s); got != "process_name" {
			t.Errorf("Canonical(%q) = %q, want %q", s, got, "process_name")
		}
	}

	if got := n.Canonical("Computer Name"); got != "host" {
		t.Errorf("Canonical(%q) = %q, want %q", "Computer Name", got, "host")
	}
	if got := n.Canonical("SubjectUserName"); got != "subjectusername" {
		// Not in the synonym table verbatim; passes through folded.
		t.Errorf("Canonical(%q) = %q, want folded passthrough", "SubjectUserName", got)
	}
}

func TestApply_RenamesColumnsAndRows(t *testing.T) {
	n, err := NewDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := &ingest.Table{
		Source:  "proc_export",
		Columns: []string{"Process Name", "PID", "Full Path"},
		Rows: []ingest.Row{
			{"Process Name": "evil.exe", "PID": "666", "Full Path": "C:\\Temp\\evil.exe"},
		},
	}

	out := n.Apply(in)
	want := []string{"process_name", "pid", "file_path"}
	if !reflect.DeepEqual(out.Columns, want) {
		t.Errorf("columns = %v, want %v", out.Columns, want)
	}
	if out.Rows[0]["process_name"] != "evil.exe" {
		t.Errorf("process_name = %q, want %q", out.Rows[0]["process_name"], "evil.exe")
	}
	if out.Rows[0]["file_path"] != "C:\\Temp\\evil.exe" {
		t.Errorf("file_path = %q, want evil.exe path", out.Rows[0]["file_path"])
	}

	// The input table must not be mutated.
	if in.Columns[0] != "Process Name" {
		t.Error("Apply mutated the input table")
	}
}

func TestApply_CollidingColumnsKeepData(t *testing.T) {
	n, err := NewDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both "time" and "date" map to the canonical "timestamp"; the second
	// must keep its folded name instead of clobbering the first.
	in := &ingest.Table{
		Source:  "log",
		Columns: []string{"Time", "Date"},
		Rows: []ingest.Row{
			{"Time": "10:00:00", "Date": "2024-03-01"},
		},
	}

	out := n.Apply(in)
	if out.Columns[0] != "timestamp" || out.Columns[1] != "date" {
		t.Errorf("columns = %v, want [timestamp date]", out.Columns)
	}
	if out.Rows[0]["timestamp"] != "10:00:00" || out.Rows[0]["date"] != "2024-03-01" {
		t.Errorf("row = %v, lost data on collision", out.Rows[0])
	}
}

func TestNew_RejectsBadYAML(t *testing.T) {
	if _, err := New([]byte("columns: [not a map")); err == nil {
		t.Error("expected error for malformed schema")
	}
}
