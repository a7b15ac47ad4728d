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
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimtable/bergloom-go/compact/exec"
	"github.com/nimtable/bergloom-go/iceberg"
	"github.com/nimtable/bergloom-go/iceberg/scan"
)

// dataBatch builds a decorated data batch: user column "id" (int64) plus the
// hidden file_path/pos/sys_hidden_seq_num columns the exec stage attaches.
func dataBatch(t *testing.T, filePath string, ids []int64, seq int64) exec.DecoratedBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "sys_hidden_seq_num", Type: arrow.PrimitiveTypes.Int64},
		{Name: "file_path", Type: arrow.BinaryTypes.String},
		{Name: "pos", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	idB := array.NewInt64Builder(memory.DefaultAllocator)
	defer idB.Release()
	idB.AppendValues(ids, nil)
	idArr := idB.NewInt64Array()
	defer idArr.Release()

	seqB := array.NewInt64Builder(memory.DefaultAllocator)
	defer seqB.Release()
	fpB := array.NewStringBuilder(memory.DefaultAllocator)
	defer fpB.Release()
	posB := array.NewInt64Builder(memory.DefaultAllocator)
	defer posB.Release()
	for i := range ids {
		seqB.Append(seq)
		fpB.Append(filePath)
		posB.Append(int64(i))
	}
	seqArr := seqB.NewInt64Array()
	defer seqArr.Release()
	fpArr := fpB.NewStringArray()
	defer fpArr.Release()
	posArr := posB.NewInt64Array()
	defer posArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{idArr, seqArr, fpArr, posArr}, int64(len(ids)))
	return exec.DecoratedBatch{
		Task: scan.FileScanTask{DataFilePath: filePath, ContentType: iceberg.ContentData, SequenceNumber: seq},
		Record: rec,
	}
}

// dataBatchWide builds a decorated data batch over a table wider than the
// equality-delete key: "id" (the equality column) plus "name" (an ordinary
// column absent from the equality-delete file), so tests can tell apart a
// join keyed on all user columns (wrong) from one keyed on only the
// equality-delete's own columns (spec.md §4.5).
func dataBatchWide(t *testing.T, filePath string, ids []int64, names []string, seq int64) exec.DecoratedBatch {
	t.Helper()
	require.Equal(t, len(ids), len(names))
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "sys_hidden_seq_num", Type: arrow.PrimitiveTypes.Int64},
		{Name: "file_path", Type: arrow.BinaryTypes.String},
		{Name: "pos", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	idB := array.NewInt64Builder(memory.DefaultAllocator)
	defer idB.Release()
	idB.AppendValues(ids, nil)
	idArr := idB.NewInt64Array()
	defer idArr.Release()

	nameB := array.NewStringBuilder(memory.DefaultAllocator)
	defer nameB.Release()
	nameB.AppendValues(names, nil)
	nameArr := nameB.NewStringArray()
	defer nameArr.Release()

	seqB := array.NewInt64Builder(memory.DefaultAllocator)
	defer seqB.Release()
	fpB := array.NewStringBuilder(memory.DefaultAllocator)
	defer fpB.Release()
	posB := array.NewInt64Builder(memory.DefaultAllocator)
	defer posB.Release()
	for i := range ids {
		seqB.Append(seq)
		fpB.Append(filePath)
		posB.Append(int64(i))
	}
	seqArr := seqB.NewInt64Array()
	defer seqArr.Release()
	fpArr := fpB.NewStringArray()
	defer fpArr.Release()
	posArr := posB.NewInt64Array()
	defer posArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{idArr, nameArr, seqArr, fpArr, posArr}, int64(len(ids)))
	return exec.DecoratedBatch{
		Task:   scan.FileScanTask{DataFilePath: filePath, ContentType: iceberg.ContentData, SequenceNumber: seq},
		Record: rec,
	}
}

func positionDeleteBatch(t *testing.T, filePath string, positions []int64) exec.DecoratedBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "file_path", Type: arrow.BinaryTypes.String},
		{Name: "pos", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	fpB := array.NewStringBuilder(memory.DefaultAllocator)
	defer fpB.Release()
	posB := array.NewInt64Builder(memory.DefaultAllocator)
	defer posB.Release()
	for _, p := range positions {
		fpB.Append(filePath)
		posB.Append(p)
	}
	fpArr := fpB.NewStringArray()
	defer fpArr.Release()
	posArr := posB.NewInt64Array()
	defer posArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{fpArr, posArr}, int64(len(positions)))
	return exec.DecoratedBatch{
		Task:   scan.FileScanTask{DataFilePath: filePath, ContentType: iceberg.ContentPositionDeletes},
		Record: rec,
	}
}

func equalityDeleteBatch(t *testing.T, ids []int64, seq int64) exec.DecoratedBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	idB := array.NewInt64Builder(memory.DefaultAllocator)
	defer idB.Release()
	idB.AppendValues(ids, nil)
	idArr := idB.NewInt64Array()
	defer idArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{idArr}, int64(len(ids)))
	return exec.DecoratedBatch{
		Task: scan.FileScanTask{
			ContentType:    iceberg.ContentEqualityDeletes,
			SequenceNumber: seq,
			EqualityIDs:    []int{1},
		},
		Record: rec,
	}
}

func drain(ctx context.Context, t *testing.T, ch <-chan exec.DecoratedBatch) []exec.DecoratedBatch {
	t.Helper()
	var out []exec.DecoratedBatch
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, b)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out draining filter output")
		case <-ctx.Done():
			t.Fatal(ctx.Err())
		}
	}
}

func TestPositionIndexContains(t *testing.T) {
	idx := newPositionIndex()
	idx.add("f1.parquet", 3)
	assert.True(t, idx.Contains("f1.parquet", 3))
	assert.False(t, idx.Contains("f1.parquet", 4))
	assert.False(t, idx.Contains("f2.parquet", 3))
}

func TestEqualityIndexDeletesByStrictSequence(t *testing.T) {
	idx := newEqualityIndex()
	idx.add([]string{"id"}, "k1", 5)

	assert.True(t, idx.Deletes("k1", 4), "data row older than the delete must be removed")
	assert.False(t, idx.Deletes("k1", 5), "data row at the same sequence number as the delete must survive")
	assert.False(t, idx.Deletes("k1", 6), "data row newer than the delete must survive")
	assert.False(t, idx.Deletes("unknown", 0))
}

func TestEqualityIndexKeepsHighestDeleteSeq(t *testing.T) {
	idx := newEqualityIndex()
	idx.add([]string{"id"}, "k1", 3)
	idx.add([]string{"id"}, "k1", 7)
	idx.add([]string{"id"}, "k1", 5)
	assert.True(t, idx.Deletes("k1", 6))
	assert.False(t, idx.Deletes("k1", 7))
}

func TestEqualityIndexRecordsKeyColsFromFirstAdd(t *testing.T) {
	idx := newEqualityIndex()
	assert.Nil(t, idx.KeyCols())
	idx.add([]string{"id"}, "k1", 3)
	assert.Equal(t, []string{"id"}, idx.KeyCols())
	idx.add([]string{"other", "cols"}, "k2", 4)
	assert.Equal(t, []string{"id"}, idx.KeyCols(), "key columns are fixed by the first delete batch seen")
}

func TestBuildIndexesClassifiesByContentType(t *testing.T) {
	ch := make(chan exec.DecoratedBatch, 2)
	ch <- positionDeleteBatch(t, "data1.parquet", []int64{0, 2})
	ch <- equalityDeleteBatch(t, []int64{9}, 10)
	close(ch)

	pos, eq, err := BuildIndexes(context.Background(), ch)
	require.NoError(t, err)
	assert.True(t, pos.Contains("data1.parquet", 0))
	assert.True(t, pos.Contains("data1.parquet", 2))
	assert.False(t, pos.Contains("data1.parquet", 1))
	assert.True(t, eq.Deletes("9", 9))
	assert.False(t, eq.Deletes("9", 10))
}

func TestFilterDropsPositionDeletedRows(t *testing.T) {
	pos := newPositionIndex()
	pos.add("data1.parquet", 1)
	eq := newEqualityIndex()

	in := make(chan exec.DecoratedBatch, 1)
	in <- dataBatch(t, "data1.parquet", []int64{100, 101, 102}, 1)
	close(in)

	out, err := Filter(context.Background(), in, pos, eq)
	require.NoError(t, err)
	batches := drain(context.Background(), t, out)
	require.Len(t, batches, 1)
	rec := batches[0].Record
	defer rec.Release()

	assert.Equal(t, int64(2), rec.NumRows())
	idCol := rec.Column(0).(*array.Int64)
	assert.Equal(t, int64(100), idCol.Value(0))
	assert.Equal(t, int64(102), idCol.Value(1))
	for _, f := range rec.Schema().Fields() {
		assert.Equal(t, "id", f.Name, "hidden columns must be stripped from filter output")
	}
}

func TestFilterDropsEqualityDeletedRows(t *testing.T) {
	pos := newPositionIndex()
	eq := newEqualityIndex()
	eq.add([]string{"id"}, "100", 5)

	in := make(chan exec.DecoratedBatch, 1)
	in <- dataBatch(t, "data1.parquet", []int64{100, 101}, 3)
	close(in)

	out, err := Filter(context.Background(), in, pos, eq)
	require.NoError(t, err)
	batches := drain(context.Background(), t, out)
	require.Len(t, batches, 1)
	rec := batches[0].Record
	defer rec.Release()

	assert.Equal(t, int64(1), rec.NumRows())
	assert.Equal(t, int64(101), rec.Column(0).(*array.Int64).Value(0))
}

// TestFilterDropsEqualityDeletedRowsWithExtraColumns is the regression case
// for spec.md §4.5's "matches on every equality key column" (and only those
// columns): a data row with columns beyond the equality key must still
// match a delete keyed on the narrower equality-delete schema. Keying the
// join on every non-hidden data column ("100\x1fAlice") instead of the
// delete's own columns ("100") would leave this delete unmatched.
func TestFilterDropsEqualityDeletedRowsWithExtraColumns(t *testing.T) {
	pos := newPositionIndex()
	eq := newEqualityIndex()
	eq.add([]string{"id"}, "100", 5)

	in := make(chan exec.DecoratedBatch, 1)
	in <- dataBatchWide(t, "data1.parquet", []int64{100, 101}, []string{"Alice", "Bob"}, 3)
	close(in)

	out, err := Filter(context.Background(), in, pos, eq)
	require.NoError(t, err)
	batches := drain(context.Background(), t, out)
	require.Len(t, batches, 1)
	rec := batches[0].Record
	defer rec.Release()

	assert.Equal(t, int64(1), rec.NumRows(), "the id=100 row must be removed even though its schema carries an extra name column")
	assert.Equal(t, int64(101), rec.Column(0).(*array.Int64).Value(0))
	assert.Equal(t, "Bob", rec.Column(1).(*array.String).Value(0))
}

func TestFilterKeepsRowWhenDataSeqNotLessThanDeleteSeq(t *testing.T) {
	pos := newPositionIndex()
	eq := newEqualityIndex()
	eq.add([]string{"id"}, "100", 5)

	in := make(chan exec.DecoratedBatch, 1)
	in <- dataBatch(t, "data1.parquet", []int64{100}, 5)
	close(in)

	out, err := Filter(context.Background(), in, pos, eq)
	require.NoError(t, err)
	batches := drain(context.Background(), t, out)
	require.Len(t, batches, 1, "a row at the same sequence number as its equality delete must survive")
}

func TestFilterEmitsNothingWhenAllRowsDropped(t *testing.T) {
	pos := newPositionIndex()
	pos.add("data1.parquet", 0)
	eq := newEqualityIndex()

	in := make(chan exec.DecoratedBatch, 1)
	in <- dataBatch(t, "data1.parquet", []int64{100}, 1)
	close(in)

	out, err := Filter(context.Background(), in, pos, eq)
	require.NoError(t, err)
	batches := drain(context.Background(), t, out)
	assert.Empty(t, batches)
}
