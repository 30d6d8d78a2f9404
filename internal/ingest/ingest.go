package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// supportedExtensions maps file extensions to their parsers.
var supportedExtensions = map[string]func(string) (*Table, error){
	".csv":  loadDelimited,
	".tsv":  loadDelimited,
	".txt":  loadDelimited,
	".log":  loadDelimited,
	".xlsx": loadXLSX,
}

// Ingester loads every supported file under a directory tree.
type Ingester struct {
	dir string
	log *zap.Logger
}

// New creates an Ingester rooted at dir.
func New(dir string, log *zap.Logger) *Ingester {
	return &Ingester{dir: dir, log: log}
}

// Discover walks the directory tree and returns paths of supported files in
// walk order. Hidden directories are descendend into; forensic collections
// often nest exports per host.
func (i *Ingester) Discover() ([]string, error) {
	info, err := os.Stat(i.dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", i.dir)
	}

	var paths []string
	err = filepath.WalkDir(i.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			i.log.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := supportedExtensions[ext]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", i.dir, err)
	}
	return paths, nil
}

// IngestAll discovers and parses every supported file. Malformed files are
// recorded as Skipped and do not stop the remaining files from loading.
func (i *Ingester) IngestAll() ([]*Table, []Skipped, error) {
	paths, err := i.Discover()
	if err != nil {
		return nil, nil, err
	}

	var tables []*Table
	var skipped []Skipped
	for _, path := range paths {
		table, err := Load(path)
		if err != nil {
			i.log.Warn("skipping file", zap.String("path", path), zap.Error(err))
			skipped = append(skipped, Skipped{Path: path, Err: err.Error()})
			continue
		}
		i.log.Debug("loaded file",
			zap.String("source", table.Source),
			zap.Int("rows", len(table.Rows)),
			zap.Int("columns", len(table.Columns)))
		tables = append(tables, table)
	}
	return tables, skipped, nil
}

// Load parses a single file by extension.
func Load(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := supportedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	return loader(path)
}

// sourceName derives the table label from a path: base name, no extension.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
