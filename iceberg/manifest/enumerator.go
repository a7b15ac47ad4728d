// Package manifest implements the Old-File Enumerator (spec.md §4.2): it
// walks the current snapshot's manifest list and splits every listed entry
// into data files and delete files, for removal at commit time.
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

package manifest

import (
	"github.com/nimtable/bergloom-go/cmn"
	"github.com/nimtable/bergloom-go/iceberg"
)

// ListCurrentFiles is list_current_files(table) -> (data_files, delete_files).
func ListCurrentFiles(table iceberg.Table) (dataFiles, deleteFiles []iceberg.DataFile, err error) {
	meta := table.Metadata()
	snap, ok := meta.CurrentSnapshot()
	if !ok {
		return nil, nil, cmn.NewErrNoSnapshot(table.Ident().String())
	}
	ml, ok := meta.LoadManifestList(snap)
	if !ok {
		return nil, nil, cmn.NewErrProtocol("manifest list not found for current snapshot of %s", table.Ident())
	}

	for _, mf := range ml.Manifest {
		for _, entry := range mf.Entries {
			switch entry.ContentType() {
			case iceberg.ContentData:
				dataFiles = append(dataFiles, entry.DataFile)
			case iceberg.ContentPositionDeletes, iceberg.ContentEqualityDeletes:
				deleteFiles = append(deleteFiles, entry.DataFile)
			default:
				return nil, nil, cmn.NewErrProtocol("corrupt manifest %s: unexpected content type %v", mf.Path, entry.ContentType())
			}
		}
	}
	return dataFiles, deleteFiles, nil
}
