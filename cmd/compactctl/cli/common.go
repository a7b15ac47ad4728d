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

package cli

import (
	"context"
	"fmt"

	"github.com/nimtable/bergloom-go/catalog"
	"github.com/nimtable/bergloom-go/catalog/mem"
	"github.com/nimtable/bergloom-go/catalog/sqlcatalog"
	"github.com/nimtable/bergloom-go/cmn/config"
	"github.com/nimtable/bergloom-go/compact"
	"github.com/nimtable/bergloom-go/iofs"
	"github.com/nimtable/bergloom-go/iofs/localfs"
)

// buildCompaction wires a Compaction instance from the loaded config: a
// Postgres-backed catalog when catalog.driver is "sql", otherwise an
// in-process one for local/dev use; local disk is always registered for
// file:// paths, since tests and single-node setups read and write there
// regardless of which cloud backends are also configured.
func buildCompaction(ctx context.Context, cfg *config.Config) (*compact.Compaction, error) {
	var cat catalog.Catalog
	switch cfg.Catalog.Driver {
	case "sql":
		sc, err := sqlcatalog.Open(ctx, sqlcatalog.Config{DSN: cfg.Catalog.DSN, RunMigrations: true})
		if err != nil {
			return nil, fmt.Errorf("open sql catalog: %w", err)
		}
		cat = sc
	case "memory", "":
		cat = mem.New()
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}

	fio := iofs.NewRegistry()
	lfs := localfs.New(".")
	fio.Register("file", lfs)
	fio.Register("", lfs)
	return compact.New(cat, fio), nil
}
