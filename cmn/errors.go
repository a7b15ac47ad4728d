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

import (
	"errors"
	"fmt"
)

// Error taxonomy (spec §7): catalog, snapshot-missing, protocol, I/O,
// decode, commit-conflict, internal. Each is a distinct type so callers can
// branch on kind via errors.As without string matching, matching the
// teacher's cmn.NewErrXxx / errors.Is convention (cmn/cos/err.go).

type (
	// ErrCatalog wraps a load/commit failure surfaced by the catalog, unmodified.
	ErrCatalog struct {
		Op  string
		Err error
	}
	// ErrNoSnapshot reports a missing current snapshot where one is required.
	ErrNoSnapshot struct {
		Table string
	}
	// ErrProtocol reports an unexpected DataContentType or corrupt manifest.
	ErrProtocol struct {
		Msg string
	}
	// ErrIO wraps an object-store read/write failure.
	ErrIO struct {
		URI string
		Err error
	}
	// ErrDecode wraps an Arrow/Parquet decode failure for one file; it is
	// isolated by callers (counted, not fatal) rather than propagated raw.
	ErrDecode struct {
		URI string
		Err error
	}
	// ErrCommitConflict reports that another writer advanced the table
	// past the snapshot this compaction was planned against.
	ErrCommitConflict struct {
		Table string
		Err   error
	}
	// ErrInternal covers channel-send failures and invariant violations.
	ErrInternal struct {
		Msg string
	}
)

func (e *ErrCatalog) Error() string        { return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err) }
func (e *ErrCatalog) Unwrap() error         { return e.Err }
func (e *ErrNoSnapshot) Error() string      { return fmt.Sprintf("table %s: no current snapshot", e.Table) }
func (e *ErrProtocol) Error() string        { return "protocol: " + e.Msg }
func (e *ErrIO) Error() string              { return fmt.Sprintf("io %s: %v", e.URI, e.Err) }
func (e *ErrIO) Unwrap() error              { return e.Err }
func (e *ErrDecode) Error() string          { return fmt.Sprintf("decode %s: %v", e.URI, e.Err) }
func (e *ErrDecode) Unwrap() error          { return e.Err }
func (e *ErrCommitConflict) Error() string  { return fmt.Sprintf("commit conflict on %s: %v", e.Table, e.Err) }
func (e *ErrCommitConflict) Unwrap() error  { return e.Err }
func (e *ErrInternal) Error() string        { return "internal: " + e.Msg }

func NewErrCatalog(op string, err error) error       { return &ErrCatalog{Op: op, Err: err} }
func NewErrNoSnapshot(table string) error            { return &ErrNoSnapshot{Table: table} }
func NewErrProtocol(format string, a ...any) error   { return &ErrProtocol{Msg: fmt.Sprintf(format, a...)} }
func NewErrIO(uri string, err error) error           { return &ErrIO{URI: uri, Err: err} }
func NewErrDecode(uri string, err error) error       { return &ErrDecode{URI: uri, Err: err} }
func NewErrCommitConflict(table string, err error) error {
	return &ErrCommitConflict{Table: table, Err: err}
}
func NewErrInternal(format string, a ...any) error { return &ErrInternal{Msg: fmt.Sprintf(format, a...)} }

// IsErrNoSnapshot reports whether err (or its chain) is an ErrNoSnapshot.
func IsErrNoSnapshot(err error) bool {
	var e *ErrNoSnapshot
	return errors.As(err, &e)
}

// IsErrProtocol reports whether err (or its chain) is an ErrProtocol.
func IsErrProtocol(err error) bool {
	var e *ErrProtocol
	return errors.As(err, &e)
}

// IsErrCommitConflict reports whether err (or its chain) is an ErrCommitConflict.
func IsErrCommitConflict(err error) bool {
	var e *ErrCommitConflict
	return errors.As(err, &e)
}
