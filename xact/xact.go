// Package xact is the background-job bookkeeping base a long-running
// operation (a Compact or FullCompact call) embeds, grounded on the
// teacher's xact.Base/XactCln pattern (space/cleanup.go: "XactCln struct {
// xact.Base }"). Trimmed to what a single-node compactor actually needs:
// an ID, a kind, a start/end time, and an abort channel — the teacher's
// multi-target registry and mountpath-jogger bookkeeping has no counterpart
// in a process with one table and one executor.
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

package xact

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

var idCounter int64

func nextID(kind string) string {
	n := atomic.AddInt64(&idCounter, 1)
	return fmt.Sprintf("%s-%d", kind, n)
}

// Base is the embeddable job-tracking state for one running operation.
type Base struct {
	id        string
	kind      string
	startTime time.Time
	endTime   time.Time
	err       error
	abortCh   chan struct{}
}

func NewBase(kind string) Base {
	return Base{
		id:        nextID(kind),
		kind:      kind,
		startTime: time.Now(),
		abortCh:   make(chan struct{}),
	}
}

func (b *Base) ID() string      { return b.id }
func (b *Base) Kind() string    { return b.kind }
func (b *Base) StartTime() time.Time { return b.startTime }
func (b *Base) EndTime() time.Time   { return b.endTime }
func (b *Base) Running() bool   { return b.endTime.IsZero() }
func (b *Base) Err() error      { return b.err }

// Finish records completion (err nil on success) and is idempotent.
func (b *Base) Finish(err error) {
	if !b.endTime.IsZero() {
		return
	}
	b.endTime = time.Now()
	b.err = err
}

// Abort closes AbortCh and records reason as the terminal error through
// Finish (so a job that already finished keeps its earlier error). A second
// Abort is a no-op.
func (b *Base) Abort(reason error) {
	select {
	case <-b.abortCh:
		return // already aborted
	default:
		close(b.abortCh)
	}
	b.Finish(reason)
}

func (b *Base) AbortCh() <-chan struct{} { return b.abortCh }

// WithDeadline derives a context that is cancelled either by the caller's
// ctx or by this job's own Abort, whichever comes first.
func (b *Base) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-b.abortCh:
			cancel()
		case <-cctx.Done():
		}
	}()
	return cctx, cancel
}
