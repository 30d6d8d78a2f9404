// Package normalize maps heterogeneous export column names onto a canonical
// schema so downstream stages can address fields uniformly.
package normalize

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dfirlab/casetrace/internal/ingest"
)

//go:embed schema.yaml
var schemaYAML []byte

// schema is the embedded synonym table, keyed canonical name -> synonyms.
type schema struct {
	Columns map[string][]string `yaml:"columns"`
}

// Normalizer renames table columns to canonical names. Columns with no
// canonical mapping pass through with only case/separator folding applied.
type Normalizer struct {
	// synonymToCanonical maps folded synonym -> canonical name.
	synonymToCanonical map[string]string
}

// NewDefault creates a Normalizer from the embedded schema.
func NewDefault() (*Normalizer, error) {
	return New(schemaYAML)
}

// New creates a Normalizer from YAML schema bytes.
func New(schemaBytes []byte) (*Normalizer, error) {
	var s schema
	if err := yaml.Unmarshal(schemaBytes, &s); err != nil {
		return nil, fmt.Errorf("parse column schema: %w", err)
	}

	m := make(map[string]string)
	for canonical, synonyms := range s.Columns {
		m[Fold(canonical)] = canonical
		for _, syn := range synonyms {
			m[Fold(syn)] = canonical
		}
	}
	return &Normalizer{synonymToCanonical: m}, nil
}

// Fold lowercases a column name and converts spaces and dashes to
// underscores. This is the first normalization step for every column.
func Fold(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

// Canonical returns the canonical name for a raw column header. Headers with
// no mapping return their folded form.
func (n *Normalizer) Canonical(name string) string {
	folded := Fold(name)
	if canonical, ok := n.synonymToCanonical[folded]; ok {
		return canonical
	}
	return folded
}

// Apply returns a copy of the table with canonical column names. When two
// source columns fold to the same canonical name the first keeps it and later
// ones keep their folded original name, so no data is dropped.
func (n *Normalizer) Apply(t *ingest.Table) *ingest.Table {
	renames := make(map[string]string, len(t.Columns))
	used := make(map[string]bool, len(t.Columns))
	columns := make([]string, len(t.Columns))

	for i, col := range t.Columns {
		target := n.Canonical(col)
		if used[target] {
			target = Fold(col)
		}
		used[target] = true
		renames[col] = target
		columns[i] = target
	}

	out := &ingest.Table{
		Source:  t.Source,
		Path:    t.Path,
		Columns: columns,
		Rows:    make([]ingest.Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		next := make(ingest.Row, len(row))
		for col, val := range row {
			next[renames[col]] = val
		}
		out.Rows[i] = next
	}
	return out
}

// ApplyAll normalizes every table.
func (n *Normalizer) ApplyAll(tables []*ingest.Table) []*ingest.Table {
	out := make([]*ingest.Table, len(tables))
	for i, t := range tables {
		out[i] = n.Apply(t)
	}
	return out
}
