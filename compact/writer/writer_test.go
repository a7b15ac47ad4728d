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

package writer

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimtable/bergloom-go/compact/exec"
	"github.com/nimtable/bergloom-go/iceberg/scan"
	"github.com/nimtable/bergloom-go/stats"
)

// memSink is a FileSink backed by in-memory buffers, for tests that don't
// want a live object store.
type memSink struct {
	created map[string]*bytes.Buffer
}

func newMemSink() *memSink { return &memSink{created: make(map[string]*bytes.Buffer)} }

type nopCloserBuf struct{ *bytes.Buffer }

func (nopCloserBuf) Close() error { return nil }

func (m *memSink) Create(_ context.Context, uri string) (io.WriteCloser, error) {
	buf := &bytes.Buffer{}
	m.created[uri] = buf
	return nopCloserBuf{buf}, nil
}

func record(t *testing.T, ids []int64) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(ids, nil)
	arr := b.NewInt64Array()
	defer arr.Release()
	return array.NewRecord(schema, []arrow.Array{arr}, int64(len(ids)))
}

func TestShardForIsDeterministic(t *testing.T) {
	w := New(newMemSink(), "base", "data-", 4, stats.New())
	b := exec.DecoratedBatch{Task: scan.FileScanTask{DataFilePath: "s3://bucket/data1.parquet"}}

	first := w.shardFor(b)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, w.shardFor(b))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 4)
}

func TestShardForSpreadsAcrossPartitions(t *testing.T) {
	w := New(newMemSink(), "base", "data-", 4, stats.New())
	seen := make(map[int]bool)
	for i := 0; i < 50; i++ {
		b := exec.DecoratedBatch{Task: scan.FileScanTask{DataFilePath: pathFor(i)}}
		seen[w.shardFor(b)] = true
	}
	assert.Greater(t, len(seen), 1, "50 distinct paths should not all land on one shard")
}

func pathFor(i int) string {
	return "s3://bucket/data" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".parquet"
}

func TestAcceptGroupsSameSourceIntoOneShard(t *testing.T) {
	stat := stats.New()
	sink := newMemSink()
	w := New(sink, "base", "data-", 1, stat)

	b1 := exec.DecoratedBatch{Task: scan.FileScanTask{DataFilePath: "src.parquet"}, Record: record(t, []int64{1, 2})}
	b2 := exec.DecoratedBatch{Task: scan.FileScanTask{DataFilePath: "src.parquet"}, Record: record(t, []int64{3})}
	w.Accept(b1)
	w.Accept(b2)

	files, err := w.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1, "both batches share target_partitions=1 so must flush to a single file")
	assert.Equal(t, int64(3), files[0].RecordCount)
	assert.Equal(t, int64(1), stat.Snapshot().AddedFilesCount)
}

func TestFlushEmitsNoFileForEmptyShardState(t *testing.T) {
	stat := stats.New()
	w := New(newMemSink(), "base", "data-", 4, stat)
	files, err := w.Flush(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, int64(0), stat.Snapshot().AddedFilesCount)
}
