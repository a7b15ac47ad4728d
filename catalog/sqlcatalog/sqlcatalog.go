// Package sqlcatalog is the Postgres-backed Catalog: one row per table
// holding its serialized iceberg.Metadata plus a version counter used for
// optimistic-concurrency commit detection. Grounded on the teacher pack's
// only SQL-catalog precedent, bunbase's platform/internal/database/db.go
// (jackc/pgx/v5/pgxpool connection pooling, golang-migrate/migrate/v4
// schema bootstrap), adapted from a hand-rolled users/sessions schema to a
// single versioned JSONB metadata blob per table.
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

package sqlcatalog

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimtable/bergloom-go/cmn"
	"github.com/nimtable/bergloom-go/cmn/nlog"
	"github.com/nimtable/bergloom-go/iceberg"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Config is the pgx connection + bootstrap configuration: one DSN (where
// bunbase's database.Config has separate host/port/user/password/name
// fields), plus whether to run migrations on Open.
type Config struct {
	DSN           string
	RunMigrations bool
}

type Catalog struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, cmn.NewErrCatalog("Open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, cmn.NewErrCatalog("Ping", err)
	}

	if cfg.RunMigrations {
		if err := runMigrations(cfg.DSN); err != nil {
			pool.Close()
			return nil, cmn.NewErrCatalog("Migrate", err)
		}
	}
	return &Catalog{pool: pool}, nil
}

func runMigrations(dsn string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	nlog.Infoln("sqlcatalog: schema migrated")
	return nil
}

func (c *Catalog) Close() { c.pool.Close() }

func (c *Catalog) LoadTable(ctx context.Context, ident iceberg.TableIdent) (iceberg.Table, error) {
	ns := namespaceKey(ident)
	row := c.pool.QueryRow(ctx, `SELECT metadata, version FROM bergloom_tables WHERE namespace = $1 AND name = $2`, ns, ident.Name)

	var raw []byte
	var version int64
	if err := row.Scan(&raw, &version); err != nil {
		return nil, cmn.NewErrCatalog("LoadTable", err)
	}

	var meta iceberg.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, cmn.NewErrDecode(ident.String(), err)
	}
	return &table{cat: c, ident: ident, meta: &meta, version: version}, nil
}

// CreateTable inserts a brand new table row at version 0, for seeding a
// table into the catalog.
func (c *Catalog) CreateTable(ctx context.Context, ident iceberg.TableIdent, meta *iceberg.Metadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, `INSERT INTO bergloom_tables (namespace, name, metadata, version) VALUES ($1, $2, $3, 0)`,
		namespaceKey(ident), ident.Name, raw)
	if err != nil {
		return cmn.NewErrCatalog("CreateTable", err)
	}
	return nil
}

func namespaceKey(ident iceberg.TableIdent) string {
	key := ""
	for i, p := range ident.Namespace {
		if i > 0 {
			key += "."
		}
		key += p
	}
	return key
}

type table struct {
	cat     *Catalog
	ident   iceberg.TableIdent
	meta    *iceberg.Metadata
	version int64
}

func (t *table) Ident() iceberg.TableIdent { return t.ident }
func (t *table) Metadata() *iceberg.Metadata { return t.meta }
func (t *table) FileIOURIBase() string     { return t.meta.Location }

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

func (tx *transaction) RewriteFiles() iceberg.RewriteFilesAction {
	return &rewriteAction{tx: tx}
}

func (tx *transaction) ExpireSnapshots() iceberg.ExpireSnapshotsAction {
	return &expireAction{tx: tx}
}

// Commit applies the optimistic-concurrency UPDATE ... WHERE version = $old
// pattern: zero rows affected means a concurrent writer advanced the table
// first, surfaced to the caller as cmn.ErrCommitConflict (spec.md §4.7).
func (tx *transaction) Commit(ctx context.Context) error {
	t := tx.table
	next := *t.meta

	if tx.expireSet {
		kept := make(map[int64]*iceberg.Snapshot, len(t.meta.Snapshots))
		for id, s := range t.meta.Snapshots {
			if id > tx.expireBefore || id == t.meta.CurrentSnapshotID {
				kept[id] = s
			}
		}
		next.Snapshots = kept
	} else {
		removed := make(map[string]struct{}, len(tx.removedFiles))
		for _, f := range tx.removedFiles {
			removed[f.FilePath] = struct{}{}
		}
		var entries []iceberg.ManifestEntry
		if prev, ok := t.meta.CurrentSnapshot(); ok {
			if ml, ok := t.meta.LoadManifestList(prev); ok {
				for _, mf := range ml.Manifest {
					for _, e := range mf.Entries {
						if _, gone := removed[e.DataFile.FilePath]; !gone {
							entries = append(entries, e)
						}
					}
				}
			}
		}
		newSeq := maxSeq(t.meta) + 1
		for i := range tx.addedFiles {
			tx.addedFiles[i].SequenceNumber = newSeq
			entries = append(entries, iceberg.ManifestEntry{DataFile: tx.addedFiles[i]})
		}
		newSnapID := maxSnapID(t.meta) + 1
		mlLoc := fmt.Sprintf("%s/metadata/snap-%d.avro", t.ident, newSnapID)

		nextLists := make(map[string]*iceberg.ManifestList, len(t.meta.ManifestLists)+1)
		for k, v := range t.meta.ManifestLists {
			nextLists[k] = v
		}
		nextLists[mlLoc] = &iceberg.ManifestList{Path: mlLoc, Manifest: []iceberg.ManifestFile{{Path: mlLoc, Entries: entries}}}
		next.ManifestLists = nextLists

		nextSnaps := make(map[int64]*iceberg.Snapshot, len(t.meta.Snapshots)+1)
		for k, v := range t.meta.Snapshots {
			nextSnaps[k] = v
		}
		nextSnaps[newSnapID] = &iceberg.Snapshot{SnapshotID: newSnapID, SequenceNumber: newSeq, ManifestListLoc: mlLoc}
		next.Snapshots = nextSnaps
		next.CurrentSnapshotID = newSnapID
	}

	raw, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	tag, err := t.cat.pool.Exec(ctx,
		`UPDATE bergloom_tables SET metadata = $1, version = version + 1, updated_at = now() WHERE namespace = $2 AND name = $3 AND version = $4`,
		raw, namespaceKey(t.ident), t.ident.Name, t.version)
	if err != nil {
		return cmn.NewErrCatalog("Commit", err)
	}
	if tag.RowsAffected() == 0 {
		return cmn.NewErrCommitConflict(t.ident.String(), fmt.Errorf("version %d no longer current", t.version))
	}
	t.meta = &next
	t.version++
	return nil
}

func maxSeq(meta *iceberg.Metadata) int64 {
	var max int64
	for _, s := range meta.Snapshots {
		if s.SequenceNumber > max {
			max = s.SequenceNumber
		}
	}
	return max
}

func maxSnapID(meta *iceberg.Metadata) int64 {
	var max int64
	for id := range meta.Snapshots {
		if id > max {
			max = id
		}
	}
	return max
}

type rewriteAction struct{ tx *transaction }

func (a *rewriteAction) Apply(context.Context) error { return nil }
func (a *rewriteAction) AddDataFiles(files []iceberg.DataFile) error {
	a.tx.addedFiles = append(a.tx.addedFiles, files...)
	return nil
}
func (a *rewriteAction) DeleteFiles(files []iceberg.DataFile) error {
	a.tx.removedFiles = append(a.tx.removedFiles, files...)
	return nil
}

type expireAction struct{ tx *transaction }

func (a *expireAction) Apply(context.Context) error { return nil }
func (a *expireAction) ExpireOlderThan(snapshotID int64) {
	a.tx.expireSet = true
	a.tx.expireBefore = snapshotID
}
