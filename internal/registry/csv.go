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

package registry

import (
	"encoding/csv"
	"sort"
	"strconv"
	"strings"
	"time"
)

// csvColumns is the deterministic column order mandated by spec.md §4.1.
var csvColumns = []string{
	"name", "version", "enabled", "execution_count", "average_duration",
	"last_execution", "description",
}

// ExportMetricsCSV renders every tool's definition+metrics as CSV text in
// the deterministic column order spec.md §4.1 mandates, sorted by name for
// reproducibility across runs.
func (r *Registry) ExportMetricsCSV() (string, error) {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(csvColumns); err != nil {
		return "", err
	}

	for _, name := range names {
		r.mu.RLock()
		e, ok := r.entries[name]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		def := e.def
		m := cloneMetrics(e.metrics)
		e.mu.Unlock()

		lastExec := ""
		if !m.LastExecutionAt.IsZero() {
			lastExec = m.LastExecutionAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			def.Name,
			def.Version,
			strconv.FormatBool(def.Enabled),
			strconv.FormatUint(m.ExecutionCount, 10),
			m.AverageDuration().String(),
			lastExec,
			def.Description,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
