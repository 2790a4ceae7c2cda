// Package catalog loads the list of records a run generates videos for.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is used when a record carries neither pl_name nor name.
const DefaultName = "planet"

// Record is one entity to generate a video for.
type Record struct {
	Index int    // position in the catalog file
	Name  string // never empty
}

// entry mirrors the fields read from each object; everything else in the
// file is ignored.
type entry struct {
	PlName string `json:"pl_name" yaml:"pl_name"`
	Name   string `json:"name" yaml:"name"`
}

// ErrNotList means the top-level value of a catalog is not a list.
var ErrNotList = errors.New("top-level value is not a list")

// DataLoadError reports a catalog that could not be read or parsed.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// Load parses path as a list of records and returns them in file order.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = decodeYAML(data)
	default:
		// null decodes into a nil slice without complaint; [] does not.
		if err = json.Unmarshal(data, &entries); err == nil && entries == nil {
			err = ErrNotList
		}
	}
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = Record{Index: i, Name: e.name()}
	}
	return records, nil
}

func decodeYAML(data []byte) ([]entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.SequenceNode {
		return nil, ErrNotList
	}
	entries := []entry{}
	if err := doc.Content[0].Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (e entry) name() string {
	if e.PlName != "" {
		return e.PlName
	}
	if e.Name != "" {
		return e.Name
	}
	return DefaultName
}

// Limit returns at most n records; n <= 0 means all of them.
func Limit(records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
