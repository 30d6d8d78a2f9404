package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dfirlab/casetrace/internal/ingest"
)

// timestampPatterns are tried in order against raw cell values.
var timestampPatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`), "2006-01-02 15:04:05"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`), "2006-01-02T15:04:05"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}:\d{2}`), "01/02/2006 15:04:05"},
	{regexp.MustCompile(`\d{2}-\d{2}-\d{4}\s+\d{2}:\d{2}:\d{2}`), "02-01-2006 15:04:05"},
}

var epochPattern = regexp.MustCompile(`\b(\d{13}|\d{10})\b`)

// timestampColumns are checked after the canonical "timestamp" column.
var timestampColumns = []string{
	"timestamp", "time", "date", "datetime", "created", "modified",
	"last_accessed", "last_modified", "event_time", "log_time",
}

// ParseTimestamp extracts a timestamp embedded anywhere in the value.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, p := range timestampPatterns {
		if m := p.re.FindString(value); m != "" {
			if ts, err := time.Parse(p.layout, m); err == nil {
				return ts, true
			}
		}
	}
	if m := epochPattern.FindString(value); m != "" {
		n, err := strconv.ParseInt(m, 10, 64)
		if err == nil {
			if len(m) == 13 {
				return time.UnixMilli(n).UTC(), true
			}
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// rowTimestamp looks up the first parseable timestamp in a row.
func rowTimestamp(row ingest.Row) *time.Time {
	for _, col := range timestampColumns {
		if v, ok := row[col]; ok {
			if ts, ok := ParseTimestamp(v); ok {
				return &ts
			}
		}
	}
	// Any other column may carry an embedded timestamp.
	for _, v := range row {
		if ts, ok := ParseTimestamp(v); ok {
			return &ts
		}
	}
	return nil
}

var deviceColumns = []string{"host", "device", "computer", "hostname", "host_name", "system", "machine_name", "computer_name"}

var accountColumns = []string{"user", "account", "username", "user_name", "account_name", "subject_user_name", "target_user_name", "logon_account"}

var eventIDColumns = []string{"event_id", "eventid", "id"}

func rowField(row ingest.Row, candidates []string) string {
	for _, col := range candidates {
		if v := strings.TrimSpace(row[col]); v != "" {
			return v
		}
	}
	return ""
}

// ArtifactType infers the forensic artifact class from a source name.
func ArtifactType(source string) string {
	s := strings.ToLower(source)
	switch {
	case strings.Contains(s, "amcache"):
		return "Amcache"
	case strings.Contains(s, "prefetch"):
		return "Prefetch"
	case strings.Contains(s, "shimcache"):
		return "Shimcache"
	case strings.Contains(s, "sysmon"):
		return "Sysmon Event Log"
	case strings.Contains(s, "security") && strings.Contains(s, "log"):
		return "Security Event Log"
	case strings.Contains(s, "application") && strings.Contains(s, "log"):
		return "Application Event Log"
	case strings.Contains(s, "system") && strings.Contains(s, "log"):
		return "System Event Log"
	case strings.Contains(s, "event") && strings.Contains(s, "log"):
		return "Event Log"
	case strings.Contains(s, "process"):
		return "Process List"
	case strings.Contains(s, "network"), strings.Contains(s, "connection"):
		return "Network Connection"
	case strings.Contains(s, "file"):
		return "File System"
	case strings.Contains(s, "registry"):
		return "Registry"
	default:
		return source
	}
}
