// Package commitx is the Committer (spec.md §4.7): it folds added data
// files and removed old files into one rewrite-files transaction action and
// commits it through the catalog in a single attempt; a commit conflict is
// returned to the caller, which decides whether to retry. Grounded on the original source's
// RewriteFilesAction::commit (core/src/compaction/mod.rs), re-expressed
// against the Transaction/RewriteFilesAction interfaces in the iceberg
// package instead of iceberg-rust's builder.
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

package commitx

import (
	"context"

	"github.com/nimtable/bergloom-go/cmn/nlog"
	"github.com/nimtable/bergloom-go/iceberg"
)

// Request names everything one rewrite-files commit needs.
type Request struct {
	Table          iceberg.Table
	AddedDataFiles []iceberg.DataFile
	RemovedFiles   []iceberg.DataFile // old data files + old delete files, spec.md §4.2
}

// Commit builds and commits one rewrite-files transaction. Any commit error,
// including a cmn.ErrCommitConflict, is returned as is; there is no retry.
// Rewritten/added file stats are the caller's responsibility (compact.go
// records them once, before calling Commit); this keeps the count in
// exactly one place.
func Commit(ctx context.Context, req Request) error {
	tx := req.Table.NewTransaction()
	action := tx.RewriteFiles()
	if err := action.AddDataFiles(req.AddedDataFiles); err != nil {
		return err
	}
	if err := action.DeleteFiles(req.RemovedFiles); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	nlog.Infof("commitx: rewrote %d files, added %d files on %s", len(req.RemovedFiles), len(req.AddedDataFiles), req.Table.Ident())
	return nil
}

// ExpireSnapshots applies an expire-snapshots transaction, a passthrough
// operation the pipeline exposes alongside Compact (spec.md §5.2,
// SPEC_FULL.md §5 "expire_snapshot passthrough").
func ExpireSnapshots(ctx context.Context, table iceberg.Table, olderThanSnapshotID int64) error {
	tx := table.NewTransaction()
	action := tx.ExpireSnapshots()
	action.ExpireOlderThan(olderThanSnapshotID)
	return tx.Commit(ctx)
}
