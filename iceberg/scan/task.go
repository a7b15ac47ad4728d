// Package scan implements the Scan-Task Planner (spec.md §4.1): it turns a
// table + snapshot id into an InputFileScanTasks record, pairing every data
// file with the position- and equality-delete tasks that may shadow its rows.
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

import "github.com/nimtable/bergloom-go/iceberg"

// FileScanTask describes one file to be read as part of a scan: a data file
// plus (if it is itself a Data task) the delete tasks that may shadow it.
type FileScanTask struct {
	DataFilePath     string
	ContentType      iceberg.DataContentType
	Length           int64
	Start            int64
	ProjectFieldIDs  []int
	Deletes          []FileScanTask
	SequenceNumber   int64
	EqualityIDs      []int
	RecordCount      int64
	Format           iceberg.DataFileFormat
	Partition        iceberg.PartitionTuple
}

// InputFileScanTasks is the planner's result: data tasks plus deduplicated
// (by URI) position- and equality-delete task vectors (spec.md §3).
type InputFileScanTasks struct {
	DataFiles            []FileScanTask
	PositionDeleteFiles  []FileScanTask
	EqualityDeleteFiles  []FileScanTask
}

func fromDataFile(df iceberg.DataFile) FileScanTask {
	return FileScanTask{
		DataFilePath:   df.FilePath,
		ContentType:    df.Content,
		Length:         df.FileSizeInBytes,
		RecordCount:    df.RecordCount,
		Format:         df.Format,
		Partition:      df.Partition,
		SequenceNumber: df.SequenceNumber,
		EqualityIDs:    df.EqualityIDs,
	}
}
