// Package writer is the File Writer stage (spec.md §4.6): it takes survivor
// record batches from the engine, routes each one to a partition-scoped
// Parquet file under target_partitions shards, and counts the added (and
// failed) output files. Grounded on the original source's
// IcebergWriter/data_file_writer (core/src/executor/datafusion/iceberg_writer.rs),
// re-expressed against apache/arrow-go/v18's parquet/pqarrow writer. Shard
// assignment is deterministic, keyed by the original data task's path
// through dchest/siphash (the same routing primitive the reference CLI uses
// for client-side sharding), so reruns of an identical input group rows into
// the same shards; each file name carries a fresh random uuid, so target
// paths differ from run to run.
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
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/dchest/siphash"
	"github.com/google/uuid"

	"github.com/nimtable/bergloom-go/cmn"
	"github.com/nimtable/bergloom-go/compact/exec"
	"github.com/nimtable/bergloom-go/iceberg"
	"github.com/nimtable/bergloom-go/stats"
)

// hashKey is a fixed siphash key; only determinism across a single process's
// runs is required, not cross-process secrecy.
var hashKey0, hashKey1 uint64 = 0x6267726c6f6f6d, 0x636f6d7061637431

// FileSink creates the backing file for a target path and returns a writer
// to it. iofs.FileIO implementations satisfy this against S3/Azure/GCS/local
// disk directly.
type FileSink interface {
	Create(ctx context.Context, uri string) (io.WriteCloser, error)
}

// Writer buffers survivor batches across targetParts shards and writes one
// output file per non-empty shard.
type Writer struct {
	sink           FileSink
	basePath       string
	dataFilePrefix string
	targetParts    int
	stat           *stats.RewriteFilesStat

	mu     sync.Mutex
	shards map[int]*shardState
}

type shardState struct {
	path    string
	records []arrow.Record
}

func New(sink FileSink, basePath, dataFilePrefix string, targetPartitions int, stat *stats.RewriteFilesStat) *Writer {
	if targetPartitions <= 0 {
		targetPartitions = 1
	}
	return &Writer{
		sink:           sink,
		basePath:       basePath,
		dataFilePrefix: dataFilePrefix,
		targetParts:    targetPartitions,
		stat:           stat,
		shards:         make(map[int]*shardState),
	}
}

func (w *Writer) shardFor(b exec.DecoratedBatch) int {
	h := siphash.Hash(hashKey0, hashKey1, []byte(b.Task.DataFilePath))
	return int(h % uint64(w.targetParts))
}

// Accept buffers one survivor batch under its deterministic shard. Batches
// for the same shard are later flushed into one Parquet file per shard
// (spec.md §4.6: "data files are grouped by target partition count").
func (w *Writer) Accept(b exec.DecoratedBatch) {
	shard := w.shardFor(b)
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.shards[shard]
	if !ok {
		name := fmt.Sprintf("%s%08x-%s.parquet", w.dataFilePrefix, shard, uuid.NewString())
		s = &shardState{path: path.Join(w.basePath, name)}
		w.shards[shard] = s
	}
	s.records = append(s.records, b.Record)
}

// Flush writes every shard's buffered batches to one Parquet file apiece and
// returns the resulting DataFile descriptors. The writer takes ownership of
// every buffered record's reference and releases it once encoded.
func (w *Writer) Flush(ctx context.Context) ([]iceberg.DataFile, error) {
	w.mu.Lock()
	shards := w.shards
	w.shards = make(map[int]*shardState)
	w.mu.Unlock()

	var out []iceberg.DataFile
	for _, s := range shards {
		df, err := w.flushShard(ctx, s)
		if err != nil {
			w.stat.AddFailedFile()
			return out, err
		}
		if df != nil {
			out = append(out, *df)
			w.stat.AddAddedFile()
		}
	}
	return out, nil
}

func (w *Writer) flushShard(ctx context.Context, s *shardState) (*iceberg.DataFile, error) {
	defer func() {
		for _, r := range s.records {
			r.Release()
		}
	}()
	if len(s.records) == 0 {
		return nil, nil
	}

	sink, err := w.sink.Create(ctx, s.path)
	if err != nil {
		return nil, cmn.NewErrIO(s.path, err)
	}

	schema := s.records[0].Schema()
	pw, err := pqarrow.NewFileWriter(schema, sink, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		sink.Close()
		return nil, cmn.NewErrIO(s.path, err)
	}

	var rows int64
	for _, r := range s.records {
		if err := pw.WriteBuffered(r); err != nil {
			pw.Close()
			sink.Close()
			return nil, cmn.NewErrIO(s.path, err)
		}
		rows += r.NumRows()
	}
	if err := pw.Close(); err != nil {
		sink.Close()
		return nil, cmn.NewErrIO(s.path, err)
	}
	if err := sink.Close(); err != nil {
		return nil, cmn.NewErrIO(s.path, err)
	}

	return &iceberg.DataFile{
		FilePath:    s.path,
		Content:     iceberg.ContentData,
		Format:      iceberg.FormatParquet,
		RecordCount: rows,
	}, nil
}
