// Package iceberg holds the table-format data model the compactor operates
// over: identifiers, snapshots, manifests, data files, and the table/
// transaction contracts the catalog and committer drive. It intentionally
// models only the subset of the Iceberg table spec the compaction pipeline
// touches (spec.md §3) rather than a general-purpose table library.
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

package iceberg

import (
	"context"
	"strings"
)

// TableIdent is an ordered namespace path plus a table name, e.g.
// {Namespace: []string{"demo_db"}, Name: "orders"}.
type TableIdent struct {
	Namespace []string
	Name      string
}

func NewTableIdent(namespace []string, name string) TableIdent {
	return TableIdent{Namespace: namespace, Name: name}
}

// ParseTableIdent parses "ns1.ns2.table" into a TableIdent.
func ParseTableIdent(s string) (TableIdent, bool) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return TableIdent{}, false
	}
	return TableIdent{Namespace: parts[:len(parts)-1], Name: parts[len(parts)-1]}, true
}

func (t TableIdent) String() string {
	if len(t.Namespace) == 0 {
		return t.Name
	}
	return strings.Join(t.Namespace, ".") + "." + t.Name
}

func (t TableIdent) Valid() bool { return t.Name != "" }

// DataContentType fixes which delete semantics apply to a file (spec.md §3).
type DataContentType int

const (
	ContentData DataContentType = iota
	ContentPositionDeletes
	ContentEqualityDeletes
)

func (c DataContentType) String() string {
	switch c {
	case ContentData:
		return "DATA"
	case ContentPositionDeletes:
		return "POSITION_DELETES"
	case ContentEqualityDeletes:
		return "EQUALITY_DELETES"
	default:
		return "UNKNOWN"
	}
}

// DataFileFormat is the on-disk encoding of a DataFile's bytes.
type DataFileFormat int

const (
	FormatParquet DataFileFormat = iota
	FormatAvro
	FormatORC
)

// DataFile describes one physical file tracked by a manifest entry.
type DataFile struct {
	FilePath        string
	Content         DataContentType
	Format          DataFileFormat
	FileSizeInBytes int64
	RecordCount     int64
	Partition       PartitionTuple
	EqualityIDs     []int
	SequenceNumber  int64
}

// PartitionTuple is the partition-spec-derived key routing a file to its
// subpath; values are opaque strings (already formatted per partition
// transform) to keep this package free of a full partition-transform engine.
type PartitionTuple struct {
	Values []string
}

func (p PartitionTuple) Path() string {
	if len(p.Values) == 0 {
		return ""
	}
	return strings.Join(p.Values, "/")
}

// Field is a minimal schema field: just what partition routing, projection,
// and equality-delete matching need.
type Field struct {
	ID       int
	Name     string
	Type     string // e.g. "long", "string", "double" — enough for routing/logging
	Required bool
}

// Schema is an ordered list of top-level fields, keyed by field id.
type Schema struct {
	Fields []Field
}

func (s *Schema) FieldByID(id int) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) Names(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.FieldByID(id); ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// PartitionField maps a source schema field to a partition-tuple position via a transform name.
type PartitionField struct {
	SourceID  int
	Name      string
	Transform string // "identity" | "bucket[N]" | "truncate[N]" | ...
}

type PartitionSpec struct {
	SpecID int
	Fields []PartitionField
}

// ManifestEntry is one row of a manifest: the data file it describes (no
// entry status is modeled).
type ManifestEntry struct {
	DataFile DataFile
}

func (e ManifestEntry) ContentType() DataContentType { return e.DataFile.Content }

// ManifestFile is a pointer to one manifest and its entries, as would be
// loaded from the object store via FileIO.
type ManifestFile struct {
	Path    string
	Entries []ManifestEntry
}

// ManifestList is the list of manifests belonging to one snapshot.
type ManifestList struct {
	Path     string
	Manifest []ManifestFile
}

// Snapshot is an immutable pointer to a consistent set of manifests.
type Snapshot struct {
	SnapshotID      int64
	SequenceNumber  int64
	ManifestListLoc string
}

// Metadata is the subset of table metadata the compactor reads: schema,
// partition spec, current snapshot, and the manifest lists of every
// snapshot known to the table, all held in memory.
type Metadata struct {
	Location          string
	Schema            *Schema
	DefaultSpec       PartitionSpec
	CurrentSnapshotID int64
	Snapshots         map[int64]*Snapshot
	ManifestLists     map[string]*ManifestList // keyed by Snapshot.ManifestListLoc
}

func (m *Metadata) CurrentSnapshot() (*Snapshot, bool) {
	if m.CurrentSnapshotID == 0 {
		return nil, false
	}
	s, ok := m.Snapshots[m.CurrentSnapshotID]
	return s, ok
}

func (m *Metadata) LoadManifestList(snap *Snapshot) (*ManifestList, bool) {
	ml, ok := m.ManifestLists[snap.ManifestListLoc]
	return ml, ok
}

// Table is the live, catalog-resolved handle the compactor operates on for
// the duration of one call; it is released when the call returns (spec.md §3).
type Table interface {
	Ident() TableIdent
	Metadata() *Metadata
	FileIOURIBase() string // root URI prefix to resolve relative file paths against, if any
	NewTransaction() Transaction
}

// Action is one mutation staged inside a Transaction (rewrite-files,
// expire-snapshot, ...).
type Action interface {
	Apply(ctx context.Context) error
}

// Transaction stages one or more Actions against a Table snapshot and
// commits them as a single new snapshot through the Catalog.
type Transaction interface {
	Table() Table
	RewriteFiles() RewriteFilesAction
	ExpireSnapshots() ExpireSnapshotsAction
	Commit(ctx context.Context) error
}

// RewriteFilesAction builds the file-level delta of a compaction commit.
type RewriteFilesAction interface {
	Action
	AddDataFiles(files []DataFile) error
	DeleteFiles(files []DataFile) error
}

// ExpireSnapshotsAction expires every snapshot whose id is at or below the
// given bound, except the table's current snapshot.
type ExpireSnapshotsAction interface {
	Action
	ExpireOlderThan(snapshotID int64)
}
