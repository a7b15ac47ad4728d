// Package arrowbatch decorates and strips the hidden columns the execution
// plan and processor rely on (spec.md §4.4, §4.5, §9): sys_hidden_seq_num,
// file_path, and pos. Grounded on the original source's
// add_seq_num_into_batch / add_file_path_pos_into_batch
// (core/src/executor/datafusion/iceberg_file_task_scan.rs), re-expressed
// against github.com/apache/arrow-go/v18 record batches since Go has no
// DataFusion to lean on.
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

package arrowbatch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Reserved hidden-column names (spec.md §9). A user schema containing any
// of these is rejected by compact.Compaction before a request is built.
const (
	SeqNumCol   = "sys_hidden_seq_num"
	FilePathCol = "file_path"
	PosCol      = "pos"
)

var mem = memory.DefaultAllocator

// HasReservedName reports whether name collides with a hidden column name.
func HasReservedName(name string) bool {
	return name == SeqNumCol || name == FilePathCol || name == PosCol
}

// AddSeqNum appends a non-nullable Int64 sys_hidden_seq_num column whose
// value is seqNum for every row (spec.md §4.4 step 3).
func AddSeqNum(rec arrow.Record, seqNum int64) (arrow.Record, error) {
	n := int(rec.NumRows())
	b := array.NewInt64Builder(mem)
	defer b.Release()
	for range make([]struct{}, n) {
		b.Append(seqNum)
	}
	col := b.NewInt64Array()
	defer col.Release()
	return appendColumn(rec, arrow.Field{Name: SeqNumCol, Type: arrow.PrimitiveTypes.Int64}, col)
}

// AddFilePathPos appends non-nullable file_path (Utf8) and pos (Int64)
// columns. pos is a running row index starting at startPos, so that
// consecutive calls against batches of the same stream produce a
// contiguous counter (spec.md invariant 7).
func AddFilePathPos(rec arrow.Record, filePath string, startPos int64) (arrow.Record, error) {
	n := int(rec.NumRows())

	fpB := array.NewStringBuilder(mem)
	defer fpB.Release()
	posB := array.NewInt64Builder(mem)
	defer posB.Release()
	for i := range n {
		fpB.Append(filePath)
		posB.Append(startPos + int64(i))
	}
	fpCol := fpB.NewStringArray()
	defer fpCol.Release()
	posCol := posB.NewInt64Array()
	defer posCol.Release()

	withPath, err := appendColumn(rec, arrow.Field{Name: FilePathCol, Type: arrow.BinaryTypes.String}, fpCol)
	if err != nil {
		return nil, err
	}
	defer withPath.Release()
	return appendColumn(withPath, arrow.Field{Name: PosCol, Type: arrow.PrimitiveTypes.Int64}, posCol)
}

func appendColumn(rec arrow.Record, field arrow.Field, col arrow.Array) (arrow.Record, error) {
	fields := append(append([]arrow.Field{}, rec.Schema().Fields()...), field)
	schema := arrow.NewSchema(fields, nil)
	cols := make([]arrow.Array, 0, len(fields))
	for i := range int(rec.NumCols()) {
		cols = append(cols, rec.Column(i))
	}
	cols = append(cols, col)
	return array.NewRecord(schema, cols, rec.NumRows()), nil
}

// StripHidden projects the hidden columns back out, restoring the user
// schema before rows reach the writer (spec.md §4.5).
func StripHidden(rec arrow.Record) (arrow.Record, error) {
	fields := rec.Schema().Fields()
	keepIdx := make([]int, 0, len(fields))
	keepFields := make([]arrow.Field, 0, len(fields))
	for i, f := range fields {
		if HasReservedName(f.Name) {
			continue
		}
		keepIdx = append(keepIdx, i)
		keepFields = append(keepFields, f)
	}
	if len(keepIdx) == len(fields) {
		rec.Retain()
		return rec, nil
	}
	schema := arrow.NewSchema(keepFields, nil)
	cols := make([]arrow.Array, 0, len(keepIdx))
	for _, i := range keepIdx {
		cols = append(cols, rec.Column(i))
	}
	return array.NewRecord(schema, cols, rec.NumRows()), nil
}

// ValidateUserSchema rejects a table schema whose user columns collide with
// a hidden column name (spec.md §9).
func ValidateUserSchema(names []string) error {
	for _, n := range names {
		if HasReservedName(n) {
			return fmt.Errorf("user schema column %q collides with reserved hidden column name", n)
		}
	}
	return nil
}
