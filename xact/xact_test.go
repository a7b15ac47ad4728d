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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBase(t *testing.T) {
	b := NewBase("compact")
	assert.Equal(t, "compact", b.Kind())
	assert.NotEmpty(t, b.ID())
	assert.True(t, b.Running())
	assert.True(t, b.EndTime().IsZero())
	assert.NoError(t, b.Err())
}

func TestNewBaseUniqueIDs(t *testing.T) {
	a := NewBase("compact")
	b := NewBase("compact")
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestFinishIsIdempotent(t *testing.T) {
	b := NewBase("compact")
	b.Finish(nil)
	firstEnd := b.EndTime()
	assert.False(t, b.Running())

	sentinel := errors.New("too late")
	b.Finish(sentinel)
	assert.Equal(t, firstEnd, b.EndTime())
	assert.NoError(t, b.Err(), "second Finish must not overwrite the first result")
}

func TestFinishRecordsError(t *testing.T) {
	b := NewBase("compact")
	sentinel := errors.New("boom")
	b.Finish(sentinel)
	assert.Equal(t, sentinel, b.Err())
	assert.False(t, b.Running())
}

func TestAbortClosesChannelOnce(t *testing.T) {
	b := NewBase("compact")
	sentinel := errors.New("aborted")

	done := make(chan struct{})
	go func() {
		<-b.AbortCh()
		close(done)
	}()

	b.Abort(sentinel)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AbortCh was never closed")
	}
	assert.Equal(t, sentinel, b.Err())

	require.NotPanics(t, func() { b.Abort(errors.New("second call")) })
	assert.Equal(t, sentinel, b.Err(), "first abort reason wins")
}

func TestWithDeadlineCancelledByAbort(t *testing.T) {
	b := NewBase("compact")
	ctx, cancel := b.WithDeadline(context.Background())
	defer cancel()

	b.Abort(errors.New("stop"))

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context was not cancelled after Abort")
	}
}

func TestWithDeadlineCancelledByParent(t *testing.T) {
	b := NewBase("compact")
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := b.WithDeadline(parent)
	defer cancel()

	parentCancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context was not cancelled after parent cancellation")
	}
}
