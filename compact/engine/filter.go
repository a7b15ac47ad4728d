/*
 * Copyright 2025 BergLoom
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var mem = memory.DefaultAllocator

// filterRecord returns a new record containing only the rows where keep[i]
// is true. It supports the primitive column types a compaction workload
// actually carries; anything else is reported rather than silently dropped.
func filterRecord(rec arrow.Record, keep []bool) (arrow.Record, error) {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	cols := make([]arrow.Array, rec.NumCols())
	for i := range int(rec.NumCols()) {
		col, err := filterColumn(rec.Column(i), keep, n)
		if err != nil {
			return nil, fmt.Errorf("filter column %q: %w", rec.ColumnName(i), err)
		}
		cols[i] = col
	}
	return array.NewRecord(rec.Schema(), cols, int64(n)), nil
}

func filterColumn(col arrow.Array, keep []bool, n int) (arrow.Array, error) {
	switch c := col.(type) {
	case *array.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i := 0; i < c.Len(); i++ {
			if !keep[i] {
				continue
			}
			if c.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(c.Value(i))
			}
		}
		return b.NewInt64Array(), nil
	case *array.Int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for i := 0; i < c.Len(); i++ {
			if !keep[i] {
				continue
			}
			if c.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(c.Value(i))
			}
		}
		return b.NewInt32Array(), nil
	case *array.Float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := 0; i < c.Len(); i++ {
			if !keep[i] {
				continue
			}
			if c.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(c.Value(i))
			}
		}
		return b.NewFloat64Array(), nil
	case *array.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for i := 0; i < c.Len(); i++ {
			if !keep[i] {
				continue
			}
			if c.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(c.Value(i))
			}
		}
		return b.NewStringArray(), nil
	case *array.Boolean:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i := 0; i < c.Len(); i++ {
			if !keep[i] {
				continue
			}
			if c.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(c.Value(i))
			}
		}
		return b.NewBooleanArray(), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.DataType())
	}
}

// columnStrings renders every value of a named column as a string, used to
// build equality-delete join keys. Null values render as the marker
// "\x00NULL".
func columnStrings(rec arrow.Record, name string) ([]string, error) {
	idx := -1
	for i, f := range rec.Schema().Fields() {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	col := rec.Column(idx)
	out := make([]string, col.Len())
	for i := range out {
		if col.IsNull(i) {
			out[i] = "\x00NULL"
			continue
		}
		out[i] = fmt.Sprint(valueAt(col, i))
	}
	return out, nil
}

func valueAt(col arrow.Array, i int) any {
	switch c := col.(type) {
	case *array.Int64:
		return c.Value(i)
	case *array.Int32:
		return c.Value(i)
	case *array.Float64:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.Boolean:
		return c.Value(i)
	default:
		return col.ValueStr(i)
	}
}
