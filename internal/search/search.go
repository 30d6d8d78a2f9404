// Package search scans normalized tables for analyst- and OSINT-supplied
// indicators of compromise.
package search

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/ingest"
)

// Match records one IOC hit in one cell.
type Match struct {
	Source       string     `json:"source"`
	IOC          string     `json:"ioc"`
	IOCType      string     `json:"ioc_type"`
	MatchType    string     `json:"match_type"` // exact | partial
	Column       string     `json:"column"`
	RowIndex     int        `json:"row_index"`
	MatchedValue string     `json:"matched_value"`
	Row          ingest.Row `json:"row,omitempty"`
}

// Summary aggregates matches for reporting.
type Summary struct {
	TotalMatches int            `json:"total_matches"`
	BySource     map[string]int `json:"matches_by_source"`
	ByIOCType    map[string]int `json:"matches_by_ioc_type"`
	ByIOC        map[string]int `json:"matches_by_ioc"`
}

var (
	ipPattern     = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	hashPattern   = regexp.MustCompile(`^[a-f0-9]{32}$|^[a-f0-9]{40}$|^[a-f0-9]{64}$`)
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var executableSuffixes = []string{".exe", ".dll", ".bat", ".cmd", ".ps1", ".vbs", ".scr"}

// Classify guesses the IOC category from its shape.
func Classify(ioc string) string {
	switch {
	case ipPattern.MatchString(ioc):
		return "ip_address"
	case hashPattern.MatchString(strings.ToLower(ioc)):
		return "hash"
	case emailPattern.MatchString(ioc):
		return "email"
	case hasExecutableSuffix(ioc):
		return "executable"
	case domainPattern.MatchString(ioc):
		return "domain"
	default:
		return "unknown"
	}
}

func hasExecutableSuffix(ioc string) bool {
	lower := strings.ToLower(ioc)
	for _, suf := range executableSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// Searcher matches a fixed IOC list against table cells.
type Searcher struct {
	iocs []string
	log  *zap.Logger
}

// New creates a Searcher. Empty entries are dropped.
func New(iocs []string, log *zap.Logger) *Searcher {
	var cleaned []string
	for _, ioc := range iocs {
		if s := strings.TrimSpace(ioc); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return &Searcher{iocs: cleaned, log: log}
}

// Search scans every cell of every table for every IOC. Matching is
// case-insensitive; a cell equal to the IOC is an exact match, a cell merely
// containing it is partial. One match is recorded per (IOC, cell).
func (s *Searcher) Search(tables []*ingest.Table) []Match {
	var matches []Match
	for _, t := range tables {
		n := len(matches)
		matches = append(matches, s.searchTable(t)...)
		s.log.Debug("ioc search", zap.String("source", t.Source), zap.Int("matches", len(matches)-n))
	}
	return matches
}

func (s *Searcher) searchTable(t *ingest.Table) []Match {
	var matches []Match
	for _, ioc := range s.iocs {
		lowered := strings.ToLower(ioc)
		iocType := Classify(ioc)

		for i, row := range t.Rows {
			for _, col := range t.Columns {
				cell := strings.ToLower(row[col])
				if cell == "" || !strings.Contains(cell, lowered) {
					continue
				}
				matchType := "partial"
				if cell == lowered {
					matchType = "exact"
				}
				matches = append(matches, Match{
					Source:       t.Source,
					IOC:          ioc,
					IOCType:      iocType,
					MatchType:    matchType,
					Column:       col,
					RowIndex:     i,
					MatchedValue: row[col],
					Row:          row,
				})
			}
		}
	}
	return matches
}

// Summarize rolls matches up by source, IOC type, and IOC value.
func Summarize(matches []Match) Summary {
	s := Summary{
		TotalMatches: len(matches),
		BySource:     make(map[string]int),
		ByIOCType:    make(map[string]int),
		ByIOC:        make(map[string]int),
	}
	for _, m := range matches {
		s.BySource[m.Source]++
		s.ByIOCType[m.IOCType]++
		s.ByIOC[m.IOC]++
	}
	return s
}
