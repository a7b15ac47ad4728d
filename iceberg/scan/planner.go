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

package scan

import (
	"context"

	omap "github.com/elliotchance/orderedmap/v2"

	"github.com/nimtable/bergloom-go/cmn"
	"github.com/nimtable/bergloom-go/iceberg"
)

// Scanner opens a scan at a snapshot id and yields the FileScanTask stream
// the planner consumes. It stands in for "table.scan().build()" in the
// original source (core/src/compaction/mod.rs: get_tasks_from_table).
type Scanner interface {
	PlanFiles(ctx context.Context, table iceberg.Table, snapshotID int64) (<-chan TaskOrErr, error)
}

type TaskOrErr struct {
	Task FileScanTask
	Err  error
}

// BasicScanner builds scan tasks directly from table metadata: it walks the
// snapshot's manifests, and for every Data entry attaches the delete entries
// that may apply — position deletes from the same partition (the anti-join
// stage is an exact (file_path,pos) match, so over-attaching a position
// delete task costs only an extra read, never a correctness bug) and
// equality deletes from the same partition with a strictly greater
// sequence number (spec.md's ordering invariant, applied here at pairing
// time as well as at join time).
type BasicScanner struct{}

func NewBasicScanner() *BasicScanner { return &BasicScanner{} }

func (*BasicScanner) PlanFiles(ctx context.Context, table iceberg.Table, snapshotID int64) (<-chan TaskOrErr, error) {
	meta := table.Metadata()
	snap, ok := meta.Snapshots[snapshotID]
	if !ok {
		return nil, cmn.NewErrNoSnapshot(table.Ident().String())
	}
	ml, ok := meta.LoadManifestList(snap)
	if !ok {
		return nil, cmn.NewErrProtocol("manifest list not found for snapshot %d", snapshotID)
	}

	var dataEntries, posDeletes, eqDeletes []iceberg.ManifestEntry
	for _, mf := range ml.Manifest {
		for _, e := range mf.Entries {
			switch e.ContentType() {
			case iceberg.ContentData:
				dataEntries = append(dataEntries, e)
			case iceberg.ContentPositionDeletes:
				posDeletes = append(posDeletes, e)
			case iceberg.ContentEqualityDeletes:
				eqDeletes = append(eqDeletes, e)
			default:
				return nil, cmn.NewErrProtocol("unexpected content type in manifest entry: %v", e.ContentType())
			}
		}
	}

	out := make(chan TaskOrErr, len(dataEntries))
	go func() {
		defer close(out)
		for _, d := range dataEntries {
			select {
			case <-ctx.Done():
				out <- TaskOrErr{Err: ctx.Err()}
				return
			default:
			}
			task := fromDataFile(d.DataFile)
			part := d.DataFile.Partition.Path()
			for _, pd := range posDeletes {
				if pd.DataFile.Partition.Path() == part {
					task.Deletes = append(task.Deletes, fromDataFile(pd.DataFile))
				}
			}
			for _, ed := range eqDeletes {
				if ed.DataFile.Partition.Path() == part && ed.DataFile.SequenceNumber > d.DataFile.SequenceNumber {
					task.Deletes = append(task.Deletes, fromDataFile(ed.DataFile))
				}
			}
			out <- TaskOrErr{Task: task}
		}
	}()
	return out, nil
}

// PlanTasks is the operation named in spec.md §4.1: plan_tasks(table, snapshot_id) -> InputFileScanTasks.
//
// Duplicate delete-file URIs across multiple data tasks collapse to one
// entry; the last-seen descriptor wins (spec.md's open question on
// duplicate delete URIs — both descriptors name the same physical file, so
// the choice is behaviorally idempotent).
func PlanTasks(ctx context.Context, scanner Scanner, table iceberg.Table, snapshotID int64) (*InputFileScanTasks, error) {
	stream, err := scanner.PlanFiles(ctx, table, snapshotID)
	if err != nil {
		return nil, err
	}

	posDeletes := omap.NewOrderedMap[string, FileScanTask]()
	eqDeletes := omap.NewOrderedMap[string, FileScanTask]()
	var dataTasks []FileScanTask

	for item := range stream {
		if item.Err != nil {
			return nil, item.Err
		}
		task := item.Task
		if task.ContentType != iceberg.ContentData {
			return nil, cmn.NewErrProtocol("planner received non-Data top-level task: %v", task.ContentType)
		}
		for _, del := range task.Deletes {
			switch del.ContentType {
			case iceberg.ContentPositionDeletes:
				d := del
				d.ProjectFieldIDs = nil
				posDeletes.Set(d.DataFilePath, d)
			case iceberg.ContentEqualityDeletes:
				d := del
				d.ProjectFieldIDs = append([]int(nil), d.EqualityIDs...)
				eqDeletes.Set(d.DataFilePath, d)
			default:
				return nil, cmn.NewErrProtocol("unexpected delete content type: %v", del.ContentType)
			}
		}
		dataTasks = append(dataTasks, task)
	}

	result := &InputFileScanTasks{DataFiles: dataTasks}
	for el := posDeletes.Front(); el != nil; el = el.Next() {
		result.PositionDeleteFiles = append(result.PositionDeleteFiles, el.Value)
	}
	for el := eqDeletes.Front(); el != nil; el = el.Next() {
		result.EqualityDeleteFiles = append(result.EqualityDeleteFiles, el.Value)
	}
	return result, nil
}

// uriSet collects the task URIs that Disjoint compares (spec.md §8, invariant 4).
func uriSet(tasks []FileScanTask) map[string]struct{} {
	m := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		m[t.DataFilePath] = struct{}{}
	}
	return m
}

// Disjoint reports whether data/position/equality URI sets are pairwise disjoint.
func (r *InputFileScanTasks) Disjoint() bool {
	d, p, e := uriSet(r.DataFiles), uriSet(r.PositionDeleteFiles), uriSet(r.EqualityDeleteFiles)
	for u := range p {
		if _, ok := d[u]; ok {
			return false
		}
		if _, ok := e[u]; ok {
			return false
		}
	}
	for u := range e {
		if _, ok := d[u]; ok {
			return false
		}
	}
	return true
}
