/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package semantic implements the OLAP semantic layer: the business-facing
// abstraction of datasets, measures, and dimensions that the query
// builders in internal/olap/query resolve down to SQL (spec.md §9 OLAP
// section).
package semantic

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

// Measure is a named, pre-defined aggregation expression (e.g. "SUM(amount)").
type Measure struct {
	Name            string `yaml:"name"`
	Expression      string `yaml:"expression"`
	Format          string `yaml:"format"`
	Description     string `yaml:"description"`
	RequiresWindow  bool   `yaml:"requires_window"`
}

// DimensionLevel is one level of a Hierarchy, e.g. "year" within "calendar".
type DimensionLevel struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Column     string `yaml:"column"`
}

// Hierarchy is a named, ordered drill path through a Dimension's levels.
type Hierarchy struct {
	Name   string           `yaml:"name"`
	Levels []DimensionLevel `yaml:"levels"`
}

// Dimension is a named grouping column, optionally carrying hierarchies
// for drill-down queries.
type Dimension struct {
	Name          string               `yaml:"name"`
	Column        string               `yaml:"column"`
	DimensionType string               `yaml:"type"`
	Hierarchies   map[string]Hierarchy `yaml:"hierarchies"`
	Description   string               `yaml:"description"`
}

// Join is a table join a Dataset's source_table requires to resolve its
// dimensions/measures.
type Join struct {
	Table    string `yaml:"table"`
	JoinType string `yaml:"type"`
	OnClause string `yaml:"on"`
	Alias    string `yaml:"alias"`
}

// Dataset is the top-level queryable entity: a source table plus the
// dimensions and measures it exposes.
type Dataset struct {
	Name                  string   `yaml:"name"`
	DisplayName           string   `yaml:"display_name"`
	Description           string   `yaml:"description"`
	SourceTable           string   `yaml:"source_table"`
	Joins                 []Join   `yaml:"joins"`
	Dimensions            []string `yaml:"dimensions"`
	Measures              []string `yaml:"measures"`
	DefaultTimeDimension  string   `yaml:"default_time_dimension"`
}

// config is the on-disk shape of each of datasets.yaml/measures.yaml/dimensions.yaml.
type config struct {
	Datasets   map[string]Dataset   `yaml:"datasets"`
	Measures   map[string]Measure   `yaml:"measures"`
	Dimensions map[string]Dimension `yaml:"dimensions"`
}

// Layer is the registry of datasets/measures/dimensions, guarded by a
// reader-writer lock; LoadFile merges each file's entries in under the
// write lock.
type Layer struct {
	log logr.Logger

	mu         sync.RWMutex
	datasets   map[string]Dataset
	measures   map[string]Measure
	dimensions map[string]Dimension
}

// New creates an empty Layer.
func New(log logr.Logger) *Layer {
	return &Layer{
		log:        log.WithName("olap-semantic"),
		datasets:   make(map[string]Dataset),
		measures:   make(map[string]Measure),
		dimensions: make(map[string]Dimension),
	}
}

// LoadFile loads one YAML config file (datasets.yaml, measures.yaml, or
// dimensions.yaml) and merges its contents into the Layer.
func (l *Layer) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading semantic config %s: %w", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parsing semantic config %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for name, ds := range cfg.Datasets {
		ds.Name = name
		l.datasets[name] = ds
	}
	for name, m := range cfg.Measures {
		m.Name = name
		l.measures[name] = m
	}
	for name, d := range cfg.Dimensions {
		d.Name = name
		l.dimensions[name] = d
	}
	l.log.Info("loaded semantic config", "file", path,
		"datasets", len(cfg.Datasets), "measures", len(cfg.Measures), "dimensions", len(cfg.Dimensions))
	return nil
}

// Dataset looks up a dataset by name.
func (l *Layer) Dataset(name string) (Dataset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.datasets[name]
	return d, ok
}

// Measure looks up a measure by name.
func (l *Layer) Measure(name string) (Measure, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.measures[name]
	return m, ok
}

// Dimension looks up a dimension by name.
func (l *Layer) Dimension(name string) (Dimension, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.dimensions[name]
	return d, ok
}

// ListDatasets returns every registered dataset's display metadata.
func (l *Layer) ListDatasets() []Dataset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Dataset, 0, len(l.datasets))
	for _, d := range l.datasets {
		out = append(out, d)
	}
	return out
}

// ResolveDimension resolves a dimension name (optionally within a
// hierarchy/level) to its SQL expression. A name with no matching
// Dimension is treated as a direct column reference, matching the
// original semantic layer's fallback behavior.
func (l *Layer) ResolveDimension(dimName, hierarchy, level string) string {
	dim, ok := l.Dimension(dimName)
	if !ok {
		return dimName
	}
	if hierarchy != "" && level != "" {
		if hier, ok := dim.Hierarchies[hierarchy]; ok {
			for _, lvl := range hier.Levels {
				if lvl.Name == level {
					if lvl.Expression != "" {
						return lvl.Expression
					}
					return lvl.Column
				}
			}
		}
	}
	return dim.Column
}

// ResolveMeasure resolves a measure name to its SQL expression. A name
// with no matching Measure is treated as a raw column wrapped in the
// given (or default SUM) aggregation.
func (l *Layer) ResolveMeasure(measureName, aggregation string) string {
	measure, ok := l.Measure(measureName)
	if !ok {
		agg := aggregation
		if agg == "" {
			agg = "SUM"
		}
		return fmt.Sprintf("%s(%s)", agg, measureName)
	}
	return measure.Expression
}

// ValidationResult mirrors the original semantic layer's
// valid/errors/warnings validate_query contract.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateQuery checks that a dataset exists and that every requested
// dimension/measure either belongs to it or resolves as a raw expression.
func (l *Layer) ValidateQuery(datasetName string, dimensions, measures []string) ValidationResult {
	dataset, ok := l.Dataset(datasetName)
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("dataset %q not found", datasetName)}}
	}

	var errs, warnings []string
	for _, dim := range dimensions {
		if !contains(dataset.Dimensions, dim) {
			if _, ok := l.Dimension(dim); !ok {
				errs = append(errs, fmt.Sprintf("dimension %q not found in dataset", dim))
			}
		}
	}
	for _, measure := range measures {
		if !contains(dataset.Measures, measure) {
			if _, ok := l.Measure(measure); !ok {
				warnings = append(warnings, fmt.Sprintf("measure %q not in dataset definition, will use as raw expression", measure))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
