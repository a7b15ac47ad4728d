// Package engine is the Datafusion-equivalent Processor (spec.md §4.5): a
// two-stage anti-join that removes rows covered by a position delete or by
// an equality delete with a strictly greater sequence number than the data
// row's own. Grounded on the original source's build_dedup_plan /
// build_merge_plan (core/src/executor/datafusion/mod.rs), re-expressed as
// two in-memory index builds followed by a row-keep filter since Go has no
// query planner to hand the join off to.
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
	"strings"

	"github.com/nimtable/bergloom-go/cmn"
	"github.com/nimtable/bergloom-go/cmn/nlog"
	"github.com/nimtable/bergloom-go/compact/arrowbatch"
	"github.com/nimtable/bergloom-go/compact/exec"
	"github.com/nimtable/bergloom-go/iceberg"
)

// PositionIndex is the set of (file_path, pos) pairs marked deleted.
type PositionIndex struct {
	deleted map[string]map[int64]struct{}
}

func newPositionIndex() *PositionIndex {
	return &PositionIndex{deleted: make(map[string]map[int64]struct{})}
}

func (p *PositionIndex) add(filePath string, pos int64) {
	s, ok := p.deleted[filePath]
	if !ok {
		s = make(map[int64]struct{})
		p.deleted[filePath] = s
	}
	s[pos] = struct{}{}
}

func (p *PositionIndex) Contains(filePath string, pos int64) bool {
	s, ok := p.deleted[filePath]
	if !ok {
		return false
	}
	_, ok = s[pos]
	return ok
}

// EqualityIndex maps an equality-column join key to the greatest sequence
// number among equality deletes sharing that key. A data row with that key
// is removed iff its own sequence number is strictly less (spec.md §4.5,
// §8 invariant 5). keyCols records the column names the key was built from,
// so the data side of the join can select the matching subset of its own
// (wider) schema instead of keying on every column it happens to carry.
type EqualityIndex struct {
	maxDeleteSeq map[string]int64
	keyCols      []string
}

func newEqualityIndex() *EqualityIndex {
	return &EqualityIndex{maxDeleteSeq: make(map[string]int64)}
}

func (e *EqualityIndex) add(cols []string, key string, seq int64) {
	if e.keyCols == nil {
		e.keyCols = cols
	}
	if cur, ok := e.maxDeleteSeq[key]; !ok || seq > cur {
		e.maxDeleteSeq[key] = seq
	}
}

// Deletes reports whether a data row carrying the given key and sequence
// number is covered by an equality delete.
func (e *EqualityIndex) Deletes(key string, dataSeq int64) bool {
	del, ok := e.maxDeleteSeq[key]
	return ok && dataSeq < del
}

// KeyCols returns the equality-delete column names the index was built
// from, or nil if the index has seen no equality deletes yet.
func (e *EqualityIndex) KeyCols() []string { return e.keyCols }

func equalityKey(values []string) string { return strings.Join(values, "\x1f") }

// BuildIndexes drains batches tagged as delete content, classifying each
// into the position or equality index. A batch of any other content type is
// a protocol error, so the caller feeds it only the delete file sets, which
// the planner already separated from the data files (spec.md §4.1).
func BuildIndexes(ctx context.Context, deleteBatches <-chan exec.DecoratedBatch) (*PositionIndex, *EqualityIndex, error) {
	pos := newPositionIndex()
	eq := newEqualityIndex()

	for b := range deleteBatches {
		select {
		case <-ctx.Done():
			b.Record.Release()
			return nil, nil, ctx.Err()
		default:
		}

		switch b.Task.ContentType {
		case iceberg.ContentPositionDeletes:
			err := indexPositionBatch(pos, b)
			b.Record.Release()
			if err != nil {
				return nil, nil, err
			}
		case iceberg.ContentEqualityDeletes:
			err := indexEqualityBatch(eq, b)
			b.Record.Release()
			if err != nil {
				return nil, nil, err
			}
		default:
			b.Record.Release()
			return nil, nil, cmn.NewErrProtocol("engine: unexpected delete content type %v", b.Task.ContentType)
		}
	}
	return pos, eq, nil
}

func indexPositionBatch(idx *PositionIndex, b exec.DecoratedBatch) error {
	paths, err := columnStrings(b.Record, arrowbatch.FilePathCol)
	if err != nil {
		return err
	}
	positions, err := columnStrings(b.Record, arrowbatch.PosCol)
	if err != nil {
		return err
	}
	for i := range paths {
		var pos int64
		if _, err := parsePos(positions[i], &pos); err != nil {
			return err
		}
		idx.add(paths[i], pos)
	}
	return nil
}

// indexEqualityBatch builds the delete-side join key from every non-hidden
// column the delete batch carries; an equality-delete file physically
// carries only its EqualityIDs columns, so these are the key columns
// (EqualityIDs itself is only checked to be non-empty). The index records
// the column names so filterDataBatch can select the matching subset out of
// the data record's wider schema.
func indexEqualityBatch(idx *EqualityIndex, b exec.DecoratedBatch) error {
	if len(b.Task.EqualityIDs) == 0 {
		return cmn.NewErrProtocol("equality delete task %s carries no equality field ids", b.Task.DataFilePath)
	}
	var colNames []string
	for _, f := range b.Record.Schema().Fields() {
		if arrowbatch.HasReservedName(f.Name) {
			continue
		}
		colNames = append(colNames, f.Name)
	}
	if len(colNames) == 0 {
		return nil
	}
	cols := make([][]string, len(colNames))
	for i, name := range colNames {
		vs, err := columnStrings(b.Record, name)
		if err != nil {
			return err
		}
		cols[i] = vs
	}
	rows := len(cols[0])
	for r := 0; r < rows; r++ {
		key := make([]string, len(cols))
		for c := range cols {
			key[c] = cols[c][r]
		}
		idx.add(colNames, equalityKey(key), b.Task.SequenceNumber)
	}
	return nil
}

// Filter drains dataBatches, drops every row covered by pos or eq, strips
// the hidden columns, and emits surviving records. Rows are evaluated in
// file_path/pos/data-sequence-number order against the already-built
// indexes, so this stage must run strictly after BuildIndexes completes
// (spec.md §4.5 step ordering: position stage, then equality stage).
func Filter(ctx context.Context, dataBatches <-chan exec.DecoratedBatch, pos *PositionIndex, eq *EqualityIndex) (<-chan exec.DecoratedBatch, error) {
	out := make(chan exec.DecoratedBatch, 100)
	go func() {
		defer close(out)
		for b := range dataBatches {
			select {
			case <-ctx.Done():
				b.Record.Release()
				return
			default:
			}
			kept, err := filterDataBatch(b, pos, eq)
			b.Record.Release()
			if err != nil {
				nlog.Warningf("engine: filter batch from %s failed: %v", b.Task.DataFilePath, err)
				continue
			}
			if kept == nil {
				continue
			}
			select {
			case out <- *kept:
			case <-ctx.Done():
				kept.Record.Release()
				return
			}
		}
	}()
	return out, nil
}

func filterDataBatch(b exec.DecoratedBatch, pos *PositionIndex, eq *EqualityIndex) (*exec.DecoratedBatch, error) {
	paths, err := columnStrings(b.Record, arrowbatch.FilePathCol)
	if err != nil {
		return nil, err
	}
	positions, err := columnStrings(b.Record, arrowbatch.PosCol)
	if err != nil {
		return nil, err
	}

	// Only the columns the equality index was actually built from take part
	// in the equality-delete key; a data row's other columns (present in
	// its wider schema but absent from the equality-delete file) must not
	// affect the match (spec.md §4.5).
	keyCols := eq.KeyCols()
	eqCols := make([][]string, len(keyCols))
	for i, name := range keyCols {
		vs, err := columnStrings(b.Record, name)
		if err != nil {
			return nil, err
		}
		eqCols[i] = vs
	}

	keep := make([]bool, b.Record.NumRows())
	anyKept := false
	for i := range keep {
		var p int64
		if _, err := parsePos(positions[i], &p); err != nil {
			return nil, err
		}
		if pos.Contains(paths[i], p) {
			continue
		}
		if len(eqCols) > 0 {
			key := make([]string, len(eqCols))
			for c := range eqCols {
				key[c] = eqCols[c][i]
			}
			if eq.Deletes(equalityKey(key), b.Task.SequenceNumber) {
				continue
			}
		}
		keep[i] = true
		anyKept = true
	}
	if !anyKept {
		return nil, nil
	}

	filtered, err := filterRecord(b.Record, keep)
	if err != nil {
		return nil, err
	}
	stripped, err := arrowbatch.StripHidden(filtered)
	filtered.Release()
	if err != nil {
		return nil, err
	}
	return &exec.DecoratedBatch{GroupIdx: b.GroupIdx, Task: b.Task, Record: stripped}, nil
}

func parsePos(s string, out *int64) (int64, error) {
	var n int64
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, cmn.NewErrDecode("pos", errInvalidPos{s})
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	*out = n
	return n, nil
}

type errInvalidPos struct{ s string }

func (e errInvalidPos) Error() string { return "invalid pos value: " + e.s }
