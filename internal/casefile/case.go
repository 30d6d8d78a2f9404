// Package casefile holds the analyst-supplied case context that steers the
// ingestion, search, and analysis stages.
package casefile

import (
	"fmt"
	"strings"
)

// CaseType categorizes the incident under investigation.
type CaseType string

const (
	Ransomware CaseType = "Ransomware"
	BEC        CaseType = "BEC"
	Intrusion  CaseType = "Intrusion"
	Other      CaseType = "Other"
)

// CaseTypes lists the selectable case types in menu order.
var CaseTypes = []CaseType{Ransomware, BEC, Intrusion, Other}

// ParseCaseType resolves a user-entered case type. It accepts the canonical
// name case-insensitively or a 1-based menu index.
func ParseCaseType(s string) (CaseType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty case type")
	}
	for i, ct := range CaseTypes {
		if strings.EqualFold(s, string(ct)) || s == fmt.Sprintf("%d", i+1) {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown case type: %q (expected one of Ransomware, BEC, Intrusion, Other)", s)
}

// Context is the immutable case description collected before the pipeline runs.
type Context struct {
	Analyst     string   `json:"analyst"`
	Type        CaseType `json:"case_type"`
	ThreatActor string   `json:"threat_actor,omitempty"`
	KnownIOCs   []string `json:"known_iocs,omitempty"`
}

// Summary renders a short single-paragraph description for prompts and logs.
func (c Context) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case Type: %s", c.Type)
	if c.ThreatActor != "" {
		fmt.Fprintf(&b, "\nThreat Actor Group: %s", c.ThreatActor)
	}
	fmt.Fprintf(&b, "\nKnown IOCs: %d", len(c.KnownIOCs))
	return b.String()
}

// SplitIOCList parses a pasted IOC blob. Analysts paste lists separated by
// newlines, commas, semicolons, or pipes, often mixed. Entries are trimmed and
// deduplicated case-insensitively, preserving first-seen order and casing.
func SplitIOCList(text string) []string {
	var raw []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		split := false
		for _, delim := range []string{",", ";", "|"} {
			if strings.Contains(line, delim) {
				raw = append(raw, strings.Split(line, delim)...)
				split = true
				break
			}
		}
		if !split {
			raw = append(raw, line)
		}
	}

	seen := make(map[string]bool, len(raw))
	var iocs []string
	for _, ioc := range raw {
		ioc = strings.TrimSpace(ioc)
		key := strings.ToLower(ioc)
		if ioc == "" || seen[key] {
			continue
		}
		seen[key] = true
		iocs = append(iocs, ioc)
	}
	return iocs
}

// CombineIOCs merges analyst-supplied IOCs with OSINT-derived ones,
// deduplicating case-insensitively and keeping analyst entries first.
func CombineIOCs(known, osint []string) []string {
	seen := make(map[string]bool, len(known)+len(osint))
	var combined []string
	for _, ioc := range append(append([]string{}, known...), osint...) {
		ioc = strings.TrimSpace(ioc)
		key := strings.ToLower(ioc)
		if ioc == "" || seen[key] {
			continue
		}
		seen[key] = true
		combined = append(combined, ioc)
	}
	return combined
}
