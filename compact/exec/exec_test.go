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

package exec

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimtable/bergloom-go/compact/arrowbatch"
	"github.com/nimtable/bergloom-go/iceberg"
	"github.com/nimtable/bergloom-go/iceberg/scan"
)

func idRecord(t *testing.T, fields []arrow.Field, ids []int64) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema(fields, nil)
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(ids, nil)
	arr := b.NewInt64Array()
	defer arr.Release()
	return array.NewRecord(schema, []arrow.Array{arr}, int64(len(ids)))
}

func TestDecorateForContentDataGetsSeqAndFilePathPos(t *testing.T) {
	rec := idRecord(t, []arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, []int64{1, 2})
	task := scan.FileScanTask{ContentType: iceberg.ContentData, DataFilePath: "d1.parquet", SequenceNumber: 7}

	var pos int64
	out, err := decorateForContent(task, rec, &pos)
	require.NoError(t, err)
	defer out.Release()

	_, hasSeq := fieldIndex(out, arrowbatch.SeqNumCol)
	_, hasPath := fieldIndex(out, arrowbatch.FilePathCol)
	_, hasPos := fieldIndex(out, arrowbatch.PosCol)
	assert.True(t, hasSeq)
	assert.True(t, hasPath)
	assert.True(t, hasPos)
	assert.Equal(t, int64(2), pos, "pos must advance by the number of rows decorated")
}

func TestDecorateForContentPositionDeletesPassThroughUnchanged(t *testing.T) {
	fpB := array.NewStringBuilder(memory.DefaultAllocator)
	defer fpB.Release()
	fpB.AppendValues([]string{"d1.parquet", "d1.parquet"}, nil)
	fpArr := fpB.NewStringArray()
	defer fpArr.Release()
	posB := array.NewInt64Builder(memory.DefaultAllocator)
	defer posB.Release()
	posB.AppendValues([]int64{0, 1}, nil)
	posArr := posB.NewInt64Array()
	defer posArr.Release()
	rec := array.NewRecord(arrow.NewSchema([]arrow.Field{
		{Name: arrowbatch.FilePathCol, Type: arrow.BinaryTypes.String},
		{Name: arrowbatch.PosCol, Type: arrow.PrimitiveTypes.Int64},
	}, nil), []arrow.Array{fpArr, posArr}, 2)
	task := scan.FileScanTask{ContentType: iceberg.ContentPositionDeletes, DataFilePath: "d1.parquet", SequenceNumber: 7}

	var pos int64
	out, err := decorateForContent(task, rec, &pos)
	require.NoError(t, err)
	defer out.Release()

	assert.Same(t, rec, out, "position-delete batches already carry native file_path/pos and must not be re-decorated")
	assert.Equal(t, int64(2), out.NumCols())
	assert.Equal(t, int64(0), pos, "pos must not advance for a content type that never uses it")
}

func TestDecorateForContentEqualityDeletesGetOnlySeqNum(t *testing.T) {
	rec := idRecord(t, []arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, []int64{1})
	task := scan.FileScanTask{ContentType: iceberg.ContentEqualityDeletes, DataFilePath: "d1.parquet", SequenceNumber: 9, EqualityIDs: []int{1}}

	var pos int64
	out, err := decorateForContent(task, rec, &pos)
	require.NoError(t, err)
	defer out.Release()

	_, hasSeq := fieldIndex(out, arrowbatch.SeqNumCol)
	_, hasPath := fieldIndex(out, arrowbatch.FilePathCol)
	_, hasPos := fieldIndex(out, arrowbatch.PosCol)
	assert.True(t, hasSeq)
	assert.False(t, hasPath, "equality-delete batches must not gain file_path; it is not their join key")
	assert.False(t, hasPos, "equality-delete batches must not gain pos; it is not their join key")
	assert.Equal(t, int64(0), pos, "pos must not advance for a content type that never uses it")
}

func fieldIndex(rec arrow.Record, name string) (int, bool) {
	for i, f := range rec.Schema().Fields() {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}
