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

package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// resultRow is the fixed Parquet row schema used to archive a ResultSet.
// A ResultSet's column set varies per query, so each logical row is stored
// as a JSON-encoded values array alongside the shared column list, the
// same "serialize the dynamic part to a JSON text column" technique used
// to archive session messages.
type resultRow struct {
	RowIndex   int64  `parquet:"row_index"`
	ColumnsCSV string `parquet:"columns_json"`
	ValuesJSON string `parquet:"values_json"`
}

// WriteParquet serializes rs into Parquet bytes with Snappy compression.
func WriteParquet(rs *ResultSet) ([]byte, error) {
	columnsJSON, err := json.Marshal(rs.Columns)
	if err != nil {
		return nil, fmt.Errorf("marshal columns: %w", err)
	}

	rows := make([]resultRow, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		valuesJSON, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal row %d: %w", i, err)
		}
		rows = append(rows, resultRow{
			RowIndex:   int64(i),
			ColumnsCSV: string(columnsJSON),
			ValuesJSON: string(valuesJSON),
		})
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[resultRow](&buf, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("parquet write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadParquet deserializes Parquet bytes produced by WriteParquet back
// into a ResultSet.
func ReadParquet(data []byte) (*ResultSet, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parquet open: %w", err)
	}

	r := parquet.NewGenericReader[resultRow](f)
	rows := make([]resultRow, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parquet read: %w", err)
	}
	_ = r.Close()
	rows = rows[:n]

	rs := &ResultSet{}
	for i, row := range rows {
		if i == 0 {
			if err := json.Unmarshal([]byte(row.ColumnsCSV), &rs.Columns); err != nil {
				return nil, fmt.Errorf("unmarshal columns: %w", err)
			}
		}
		var values []any
		if err := json.Unmarshal([]byte(row.ValuesJSON), &values); err != nil {
			return nil, fmt.Errorf("unmarshal row %d values: %w", i, err)
		}
		rs.Rows = append(rs.Rows, values)
	}
	return rs, nil
}
