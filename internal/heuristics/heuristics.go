// Package heuristics flags rows matching known-suspicious tokens and embedded
// Sigma detection rules.
package heuristics

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/ingest"
)

// Flag marks one cell of one row as matching a heuristic rule.
type Flag struct {
	Source      string `json:"source"`
	Rule        string `json:"rule"`
	Severity    string `json:"severity"` // low | medium | high
	Column      string `json:"column"`
	Value       string `json:"value"`
	Token       string `json:"token"`
	RowIndex    int    `json:"row_index"`
	Description string `json:"description"`
}

const (
	RuleSuspiciousExtension = "suspicious_extension"
	RuleSuspiciousPath      = "suspicious_path"
	RuleSuspiciousKeyword   = "suspicious_keyword"
)

// executableExtensions are file extensions commonly used for payload delivery.
var executableExtensions = []string{
	".exe", ".dll", ".bat", ".cmd", ".ps1", ".vbs", ".scr", ".com",
}

// suspiciousPathPatterns match staging and living-off-the-land locations.
var suspiciousPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`temp`),
	regexp.MustCompile(`tmp`),
	regexp.MustCompile(`appdata`),
	regexp.MustCompile(`local.*temp`),
	regexp.MustCompile(`programdata`),
	regexp.MustCompile(`windows.*system32`),
	regexp.MustCompile(`syswow64`),
}

// suspiciousKeywords are malware-family and tooling terms that rarely appear
// in benign telemetry.
var suspiciousKeywords = []string{
	"malware", "trojan", "virus", "backdoor", "keylogger",
	"ransomware", "rootkit", "exploit", "payload", "shellcode",
}

// Matcher scans normalized tables for suspicious tokens.
type Matcher struct {
	extraKeywords []string
	knownPaths    []string // allowlisted path prefixes; matches under these are suppressed
	sigma         *RuleEngine
	log           *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithExtraKeywords adds operator-supplied keywords to the keyword rule.
func WithExtraKeywords(keywords []string) Option {
	return func(m *Matcher) { m.extraKeywords = keywords }
}

// WithKnownPaths suppresses flags on values under these path prefixes. Listed
// paths are expected operator infrastructure, not attack artifacts.
func WithKnownPaths(paths []string) Option {
	return func(m *Matcher) { m.knownPaths = paths }
}

// WithSigma attaches a Sigma rule engine evaluated alongside the token rules.
func WithSigma(engine *RuleEngine) Option {
	return func(m *Matcher) { m.sigma = engine }
}

// NewMatcher creates a Matcher.
func NewMatcher(log *zap.Logger, opts ...Option) *Matcher {
	m := &Matcher{log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Scan evaluates every rule against every row of every table.
func (m *Matcher) Scan(tables []*ingest.Table) []Flag {
	var flags []Flag
	for _, t := range tables {
		n := len(flags)
		flags = append(flags, m.scanTable(t)...)
		if m.sigma != nil {
			flags = append(flags, m.sigma.Match(t)...)
		}
		m.log.Debug("heuristic scan", zap.String("source", t.Source), zap.Int("flags", len(flags)-n))
	}
	return flags
}

func (m *Matcher) scanTable(t *ingest.Table) []Flag {
	var flags []Flag
	keywords := append(append([]string{}, suspiciousKeywords...), m.extraKeywords...)

	for i, row := range t.Rows {
		for _, col := range t.Columns {
			value := row[col]
			if value == "" {
				continue
			}
			lower := strings.ToLower(value)
			if m.allowlisted(lower) {
				continue
			}

			if ext := firstToken(lower, executableExtensions); ext != "" {
				flags = append(flags, Flag{
					Source: t.Source, Rule: RuleSuspiciousExtension, Severity: "medium",
					Column: col, Value: value, Token: ext, RowIndex: i,
					Description: fmt.Sprintf("executable extension %s in %s", ext, col),
				})
			}
			if kw := firstToken(lower, keywords); kw != "" {
				flags = append(flags, Flag{
					Source: t.Source, Rule: RuleSuspiciousKeyword, Severity: "high",
					Column: col, Value: value, Token: kw, RowIndex: i,
					Description: fmt.Sprintf("suspicious keyword %q in %s", kw, col),
				})
			}
			if pat := firstPattern(lower, suspiciousPathPatterns); pat != "" {
				flags = append(flags, Flag{
					Source: t.Source, Rule: RuleSuspiciousPath, Severity: "medium",
					Column: col, Value: value, Token: pat, RowIndex: i,
					Description: fmt.Sprintf("suspicious path pattern %q in %s", pat, col),
				})
			}
		}
	}
	return flags
}

// allowlisted reports whether a lowercased value starts with a known-good
// path prefix.
func (m *Matcher) allowlisted(lowerValue string) bool {
	for _, p := range m.knownPaths {
		if p != "" && strings.HasPrefix(lowerValue, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func firstToken(lowerValue string, tokens []string) string {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(lowerValue, strings.ToLower(tok)) {
			return tok
		}
	}
	return ""
}

func firstPattern(lowerValue string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if p.MatchString(lowerValue) {
			return p.String()
		}
	}
	return ""
}
