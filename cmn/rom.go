// Package cmn provides common types, error taxonomy, and runtime knobs
// shared across the compactor packages — the counterpart of aistore's cmn.
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

package cmn

import "sync/atomic"

// Rom ("runtime operation modes") gates sparse verbose logging the way the
// teacher's cmn.Rom does, without paying for a full config read on every
// call site.
var Rom romFlags

type romFlags struct {
	verbosity atomic.Int64
}

// SetVerbosity sets the global verbosity level (0 disables verbose logs).
func (r *romFlags) SetVerbosity(v int) { r.verbosity.Store(int64(v)) }

// V reports whether verbosity level n (within module mod) is currently enabled.
// mod is accepted for call-site parity with the teacher's per-module gating;
// this implementation has a single global level.
func (r *romFlags) V(n int, _ string) bool { return r.verbosity.Load() >= int64(n) }
