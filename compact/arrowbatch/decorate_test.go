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
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRecord(t *testing.T, ids []int64, names []string) arrow.Record {
	t.Helper()
	require.Equal(t, len(ids), len(names))

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
	}, nil)

	idB := array.NewInt64Builder(memory.DefaultAllocator)
	defer idB.Release()
	idB.AppendValues(ids, nil)

	nameB := array.NewStringBuilder(memory.DefaultAllocator)
	defer nameB.Release()
	nameB.AppendValues(names, nil)

	idArr := idB.NewInt64Array()
	defer idArr.Release()
	nameArr := nameB.NewStringArray()
	defer nameArr.Release()

	return array.NewRecord(schema, []arrow.Array{idArr, nameArr}, int64(len(ids)))
}

func TestHasReservedName(t *testing.T) {
	assert.True(t, HasReservedName(SeqNumCol))
	assert.True(t, HasReservedName(FilePathCol))
	assert.True(t, HasReservedName(PosCol))
	assert.False(t, HasReservedName("id"))
}

func TestValidateUserSchemaRejectsCollision(t *testing.T) {
	assert.NoError(t, ValidateUserSchema([]string{"id", "name"}))
	assert.Error(t, ValidateUserSchema([]string{"id", PosCol}))
}

func TestAddSeqNumAppendsConstantColumn(t *testing.T) {
	rec := userRecord(t, []int64{1, 2, 3}, []string{"a", "b", "c"})
	defer rec.Release()

	decorated, err := AddSeqNum(rec, 42)
	require.NoError(t, err)
	defer decorated.Release()

	require.Equal(t, rec.NumCols()+1, decorated.NumCols())
	idx, ok := fieldIndex(decorated, SeqNumCol)
	require.True(t, ok)
	col := decorated.Column(idx).(*array.Int64)
	for i := 0; i < col.Len(); i++ {
		assert.Equal(t, int64(42), col.Value(i))
	}
}

func TestAddFilePathPosAppendsRunningCounter(t *testing.T) {
	rec := userRecord(t, []int64{1, 2, 3}, []string{"a", "b", "c"})
	defer rec.Release()

	decorated, err := AddFilePathPos(rec, "s3://bucket/data.parquet", 10)
	require.NoError(t, err)
	defer decorated.Release()

	fpIdx, ok := fieldIndex(decorated, FilePathCol)
	require.True(t, ok)
	posIdx, ok := fieldIndex(decorated, PosCol)
	require.True(t, ok)

	fpCol := decorated.Column(fpIdx).(*array.String)
	posCol := decorated.Column(posIdx).(*array.Int64)
	for i := 0; i < decorated.NumRows(); i++ {
		assert.Equal(t, "s3://bucket/data.parquet", fpCol.Value(i))
		assert.Equal(t, int64(10+i), posCol.Value(i))
	}
}

func TestStripHiddenRestoresUserSchema(t *testing.T) {
	rec := userRecord(t, []int64{1, 2}, []string{"a", "b"})
	defer rec.Release()

	withSeq, err := AddSeqNum(rec, 1)
	require.NoError(t, err)
	defer withSeq.Release()
	withAll, err := AddFilePathPos(withSeq, "f.parquet", 0)
	require.NoError(t, err)
	defer withAll.Release()

	require.Equal(t, int64(5), withAll.NumCols())

	stripped, err := StripHidden(withAll)
	require.NoError(t, err)
	defer stripped.Release()

	require.Equal(t, int64(2), stripped.NumCols())
	for _, f := range stripped.Schema().Fields() {
		assert.False(t, HasReservedName(f.Name))
	}
}

func TestStripHiddenNoOpWhenNothingReserved(t *testing.T) {
	rec := userRecord(t, []int64{1}, []string{"a"})
	defer rec.Release()

	stripped, err := StripHidden(rec)
	require.NoError(t, err)
	defer stripped.Release()
	assert.Equal(t, rec.NumCols(), stripped.NumCols())
}

func fieldIndex(rec arrow.Record, name string) (int, bool) {
	for i, f := range rec.Schema().Fields() {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}
