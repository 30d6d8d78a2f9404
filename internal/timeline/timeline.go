// Package timeline consolidates findings into the chronologically ordered
// event list exported as the timeline CSV.
package timeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dfirlab/casetrace/internal/analyzer"
	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/heuristics"
	"github.com/dfirlab/casetrace/internal/ingest"
	"github.com/dfirlab/casetrace/internal/search"
)

// Header is the fixed column set of the timeline CSV.
var Header = []string{
	"Timestamp", "Device Name", "Account", "Event",
	"Artifact", "Event ID", "Analyst", "Comments", "Level",
}

// Event is one timeline row. When is nil for events without a timestamp;
// those sort after all timestamped events.
type Event struct {
	When       *time.Time `json:"-"`
	Timestamp  string     `json:"timestamp"`
	DeviceName string     `json:"device_name"`
	Account    string     `json:"account"`
	Event      string     `json:"event"`
	Artifact   string     `json:"artifact"`
	EventID    string     `json:"event_id"`
	Analyst    string     `json:"analyst"`
	Comments   string     `json:"comments"`
	Level      string     `json:"level"`
}

// Builder accumulates timeline events from the pipeline stages.
type Builder struct {
	analyst string
	events  []Event
}

func NewBuilder(analyst string) *Builder {
	return &Builder{analyst: analyst}
}

// Events returns the accumulated events in their current order.
func (b *Builder) Events() []Event { return b.events }

func (b *Builder) newEvent(row ingest.Row, source string) Event {
	e := Event{
		Artifact: ArtifactType(source),
		Analyst:  b.analyst,
	}
	if row != nil {
		if ts := rowTimestamp(row); ts != nil {
			e.When = ts
			e.Timestamp = ts.Format("2006-01-02 15:04:05")
		}
		e.DeviceName = rowField(row, deviceColumns)
		e.Account = rowField(row, accountColumns)
		e.EventID = rowField(row, eventIDColumns)
	}
	return e
}

// AddFromMatch records an IOC match as a suspicious timeline event.
func (b *Builder) AddFromMatch(m search.Match) {
	e := b.newEvent(m.Row, m.Source)
	e.Event = fmt.Sprintf("IOC Match: %s found in %s: %s", m.IOC, m.Column, m.MatchedValue)
	e.Comments = fmt.Sprintf("Matched IOC (%s) in %s", m.IOCType, m.Column)
	e.Level = "Suspicious"
	b.events = append(b.events, e)
}

// AddFromFlag records a heuristic flag. The row gives timestamp and host
// context when the caller still has the source table.
func (b *Builder) AddFromFlag(f heuristics.Flag, row ingest.Row) {
	e := b.newEvent(row, f.Source)
	e.Event = f.Description
	if e.Event == "" {
		e.Event = "Pattern-based anomaly detected"
	}
	if f.Column != "" {
		e.Comments = fmt.Sprintf("Detected %s pattern in %s", f.Rule, f.Column)
	} else {
		e.Comments = fmt.Sprintf("Detected %s pattern", f.Rule)
	}
	e.Level = "Suspicious"
	b.events = append(b.events, e)
}

// AddFromThreat records an AI-identified threat. Critical and high severity
// threats are marked Malicious, everything else Suspicious.
func (b *Builder) AddFromThreat(t analyzer.Threat) {
	e := b.newEvent(nil, t.Source)
	e.Event = t.Description
	if e.Event == "" {
		e.Event = t.Type
	}
	e.Comments = t.Recommendation
	if len(t.Indicators) > 0 {
		if e.Comments != "" {
			e.Comments += " "
		}
		e.Comments += "Indicators: " + strings.Join(t.Indicators, ", ")
	}
	switch strings.ToLower(t.Severity) {
	case "critical", "high":
		e.Level = "Malicious"
	default:
		e.Level = "Suspicious"
	}
	b.events = append(b.events, e)
}

// Sort orders events by timestamp ascending; events without a timestamp
// keep their insertion order after all timestamped events.
func (b *Builder) Sort() {
	sort.SliceStable(b.events, func(i, j int) bool {
		a, c := b.events[i].When, b.events[j].When
		switch {
		case a == nil:
			return false
		case c == nil:
			return true
		default:
			return a.Before(*c)
		}
	})
}

// Filename returns the timeline CSV name for a case type.
func Filename(caseType casefile.CaseType) string {
	return fmt.Sprintf("timeline_%s.csv", strings.ToLower(string(caseType)))
}

// WriteCSV sorts the events and writes them to dir/timeline_<case_type>.csv,
// creating the directory if needed. It returns the written path.
func (b *Builder) WriteCSV(dir string, caseType casefile.CaseType) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	b.Sort()

	path := filepath.Join(dir, Filename(caseType))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create timeline: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return "", fmt.Errorf("write timeline header: %w", err)
	}
	for _, e := range b.events {
		record := []string{
			e.Timestamp, e.DeviceName, e.Account, e.Event,
			e.Artifact, e.EventID, e.Analyst, e.Comments, e.Level,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write timeline row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush timeline: %w", err)
	}
	return path, nil
}
