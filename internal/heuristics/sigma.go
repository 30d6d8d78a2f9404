package heuristics

import (
	"context"
	"embed"
	"io/fs"
	"path/filepath"

	sigmalib "github.com/bradleyjkemp/sigma-go"
	"github.com/bradleyjkemp/sigma-go/evaluator"

	"github.com/dfirlab/casetrace/internal/ingest"
)

//go:embed rules
var embeddedRules embed.FS

// RuleEngine evaluates Sigma rules against normalized table rows.
type RuleEngine struct {
	rules []evaluator.RuleEvaluator
}

// NewDefaultRuleEngine creates a RuleEngine loaded with the built-in rules.
func NewDefaultRuleEngine() (*RuleEngine, error) {
	sub, err := fs.Sub(embeddedRules, "rules")
	if err != nil {
		return nil, err
	}
	return NewRuleEngine(sub)
}

// NewRuleEngine creates a RuleEngine by loading Sigma rules from the given FS.
// All .yml/.yaml files are parsed as Sigma rules.
func NewRuleEngine(rulesFS fs.FS) (*RuleEngine, error) {
	var rules []evaluator.RuleEvaluator

	err := fs.WalkDir(rulesFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		data, err := fs.ReadFile(rulesFS, path)
		if err != nil {
			return err
		}
		rule, err := sigmalib.ParseRule(data)
		if err != nil {
			return err
		}
		rules = append(rules, *evaluator.ForRule(rule))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RuleEngine{rules: rules}, nil
}

// Len returns the number of loaded rules.
func (e *RuleEngine) Len() int { return len(e.rules) }

// Match evaluates every rule against every row of the table. Rule hits become
// Flags with the rule title and level so they merge with token-based flags
// downstream.
func (e *RuleEngine) Match(t *ingest.Table) []Flag {
	ctx := context.Background()
	var flags []Flag

	for i, row := range t.Rows {
		event := make(map[string]interface{}, len(row))
		for k, v := range row {
			event[k] = v
		}

		for _, ev := range e.rules {
			res, err := ev.Matches(ctx, event)
			if err != nil || !res.Match {
				continue
			}
			flags = append(flags, Flag{
				Source:      t.Source,
				Rule:        "sigma:" + ev.Rule.Title,
				Severity:    sigmaLevelToSeverity(ev.Rule.Level),
				RowIndex:    i,
				Description: ev.Rule.Description,
			})
		}
	}
	return flags
}

// sigmaLevelToSeverity folds Sigma's five levels onto the three used by the
// token rules.
func sigmaLevelToSeverity(level string) string {
	switch level {
	case "critical", "high":
		return "high"
	case "medium":
		return "medium"
	default:
		return "low"
	}
}
