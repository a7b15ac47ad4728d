// Package mem is an in-process Catalog used by tests and by compactctl's
// local dev mode (no database required). It implements the same optimistic
// concurrency contract as sqlcatalog: a commit fails with
// cmn.ErrCommitConflict if the table's current snapshot moved since the
// table handle was loaded.
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

package mem

import (
	"context"
	"sync"

	"github.com/nimtable/bergloom-go/cmn"
	"github.com/nimtable/bergloom-go/iceberg"
)

type Catalog struct {
	mu     sync.Mutex
	tables map[string]*state
}

type state struct {
	ident    iceberg.TableIdent
	meta     *iceberg.Metadata
	nextSeq  int64
	nextSnap int64
}

func New() *Catalog {
	return &Catalog{tables: make(map[string]*state)}
}

// Seed registers a table at its initial metadata; intended for tests and
// fixture setup, not the running service.
func (c *Catalog) Seed(ident iceberg.TableIdent, meta *iceberg.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[ident.String()] = &state{
		ident:    ident,
		meta:     meta,
		nextSeq:  highestSeq(meta) + 1,
		nextSnap: meta.CurrentSnapshotID + 1,
	}
}

func highestSeq(meta *iceberg.Metadata) int64 {
	var max int64
	for _, s := range meta.Snapshots {
		if s.SequenceNumber > max {
			max = s.SequenceNumber
		}
	}
	return max
}

func (c *Catalog) LoadTable(_ context.Context, ident iceberg.TableIdent) (iceberg.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tables[ident.String()]
	if !ok {
		return nil, cmn.NewErrCatalog("LoadTable", cmn.NewErrProtocol("table %s not found", ident))
	}
	return &table{cat: c, ident: ident, loadedSnapshotID: st.meta.CurrentSnapshotID}, nil
}

// table is the Table handle returned to callers; it pins the snapshot id it
// was loaded at so Commit can detect a conflicting concurrent writer.
type table struct {
	cat              *Catalog
	ident            iceberg.TableIdent
	loadedSnapshotID int64
}

func (t *table) Ident() iceberg.TableIdent { return t.ident }

func (t *table) Metadata() *iceberg.Metadata {
	t.cat.mu.Lock()
	defer t.cat.mu.Unlock()
	return t.cat.tables[t.ident.String()].meta
}

func (t *table) FileIOURIBase() string { return "" }

func (t *table) NewTransaction() iceberg.Transaction {
	return &transaction{table: t}
}

type transaction struct {
	table        *table
	addedFiles   []iceberg.DataFile
	removedFiles []iceberg.DataFile
	expireBefore int64
	expireSet    bool
}

func (tx *transaction) Table() iceberg.Table { return tx.table }

func (tx *transaction) RewriteFiles() iceberg.RewriteFilesAction { return &rewriteAction{tx: tx} }

func (tx *transaction) ExpireSnapshots() iceberg.ExpireSnapshotsAction { return &expireAction{tx: tx} }

func (tx *transaction) Commit(_ context.Context) error {
	c := tx.table.cat
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.tables[tx.table.ident.String()]
	if !ok {
		return cmn.NewErrCatalog("Commit", cmn.NewErrProtocol("table %s not found", tx.table.ident))
	}
	if st.meta.CurrentSnapshotID != tx.table.loadedSnapshotID {
		return cmn.NewErrCommitConflict(tx.table.ident.String(), cmn.NewErrProtocol("snapshot advanced from %d to %d", tx.table.loadedSnapshotID, st.meta.CurrentSnapshotID))
	}

	if tx.expireSet {
		for id := range st.meta.Snapshots {
			if id <= tx.expireBefore && id != st.meta.CurrentSnapshotID {
				delete(st.meta.Snapshots, id)
			}
		}
		return nil
	}

	newSnapID := st.nextSnap
	st.nextSnap++
	newSeq := st.nextSeq
	st.nextSeq++

	for i := range tx.addedFiles {
		tx.addedFiles[i].SequenceNumber = newSeq
	}
	removed := make(map[string]struct{}, len(tx.removedFiles))
	for _, f := range tx.removedFiles {
		removed[f.FilePath] = struct{}{}
	}

	var entries []iceberg.ManifestEntry
	if prev, ok := st.meta.CurrentSnapshot(); ok {
		if ml, ok := st.meta.LoadManifestList(prev); ok {
			for _, mf := range ml.Manifest {
				for _, e := range mf.Entries {
					if _, gone := removed[e.DataFile.FilePath]; !gone {
						entries = append(entries, e)
					}
				}
			}
		}
	}
	for _, f := range tx.addedFiles {
		entries = append(entries, iceberg.ManifestEntry{DataFile: f})
	}

	mlLoc := tx.table.ident.String() + "/metadata/snap-" + itoa(newSnapID) + ".avro"
	st.meta.ManifestLists[mlLoc] = &iceberg.ManifestList{
		Path:     mlLoc,
		Manifest: []iceberg.ManifestFile{{Path: mlLoc, Entries: entries}},
	}
	st.meta.Snapshots[newSnapID] = &iceberg.Snapshot{SnapshotID: newSnapID, SequenceNumber: newSeq, ManifestListLoc: mlLoc}
	st.meta.CurrentSnapshotID = newSnapID
	tx.table.loadedSnapshotID = newSnapID
	return nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

type rewriteAction struct {
	tx *transaction
}

func (a *rewriteAction) Apply(context.Context) error { return nil }

func (a *rewriteAction) AddDataFiles(files []iceberg.DataFile) error {
	a.tx.addedFiles = append(a.tx.addedFiles, files...)
	return nil
}

func (a *rewriteAction) DeleteFiles(files []iceberg.DataFile) error {
	a.tx.removedFiles = append(a.tx.removedFiles, files...)
	return nil
}

type expireAction struct {
	tx *transaction
}

func (a *expireAction) Apply(context.Context) error { return nil }

func (a *expireAction) ExpireOlderThan(snapshotID int64) {
	a.tx.expireSet = true
	a.tx.expireBefore = snapshotID
}
