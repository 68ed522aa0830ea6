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

package semantic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

const testConfig = `
datasets:
  sales:
    display_name: Sales
    description: Sales transactions
    source_table: fact_sales
    dimensions: [region]
    measures: [revenue]
measures:
  revenue:
    expression: "SUM(amount)"
    format: currency
dimensions:
  region:
    column: region_code
    type: standard
    hierarchies:
      geo:
        name: geo
        levels:
          - name: country
            column: country_code
          - name: region
            expression: region_code
`

func loadTestLayer(t *testing.T) *Layer {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "semantic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	l := New(logr.Discard())
	require.NoError(t, l.LoadFile(path))
	return l
}

func TestResolveDimensionDirectColumn(t *testing.T) {
	l := loadTestLayer(t)
	require.Equal(t, "region_code", l.ResolveDimension("region", "", ""))
}

func TestResolveDimensionUnknownFallsBackToName(t *testing.T) {
	l := loadTestLayer(t)
	require.Equal(t, "unknown_col", l.ResolveDimension("unknown_col", "", ""))
}

func TestResolveDimensionHierarchyLevel(t *testing.T) {
	l := loadTestLayer(t)
	require.Equal(t, "country_code", l.ResolveDimension("region", "geo", "country"))
}

func TestResolveMeasureKnown(t *testing.T) {
	l := loadTestLayer(t)
	require.Equal(t, "SUM(amount)", l.ResolveMeasure("revenue", ""))
}

func TestResolveMeasureUnknownAppliesDefaultAggregation(t *testing.T) {
	l := loadTestLayer(t)
	require.Equal(t, "SUM(raw_col)", l.ResolveMeasure("raw_col", ""))
	require.Equal(t, "AVG(raw_col)", l.ResolveMeasure("raw_col", "AVG"))
}

func TestValidateQueryUnknownDataset(t *testing.T) {
	l := loadTestLayer(t)
	result := l.ValidateQuery("missing", nil, nil)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
}

func TestValidateQueryWarnsOnRawMeasure(t *testing.T) {
	l := loadTestLayer(t)
	result := l.ValidateQuery("sales", []string{"region"}, []string{"raw_col"})
	require.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
}
