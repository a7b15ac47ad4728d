// Package catalog defines the table-resolution contract the compactor is
// built against: load a table by identifier, hand back a live handle whose
// Transaction commits are atomic and conflict-detecting. sqlcatalog backs it
// with Postgres; mem backs it with an in-process map for tests and local
// runs (spec.md §3, "only their interfaces are specified").
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

package catalog

import (
	"context"

	"github.com/nimtable/bergloom-go/iceberg"
)

// Catalog resolves table identifiers to live Table handles.
type Catalog interface {
	LoadTable(ctx context.Context, ident iceberg.TableIdent) (iceberg.Table, error)
}
