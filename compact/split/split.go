// Package split implements the Task Splitter (spec.md §4.3): a deterministic
// min-heap best-fit-decreasing-like packing of scan tasks into N groups with
// approximately balanced total byte length. Grounded on the original
// source's split_n_vecs (core/src/executor/datafusion/iceberg_file_task_scan.rs),
// re-expressed with Go's container/heap instead of a BinaryHeap<Reverse<T>>.
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

package split

import (
	"container/heap"

	"github.com/nimtable/bergloom-go/iceberg/scan"
)

// Group is one partition's worth of scan tasks plus its running byte total.
type Group struct {
	Idx         int
	Tasks       []scan.FileScanTask
	TotalLength int64
}

// groupHeap is a min-heap on (TotalLength, Idx) — ties broken by the
// original group index so repeated invocations on identical input are
// reproducible (spec.md invariant 3).
type groupHeap []*Group

func (h groupHeap) Len() int { return len(h) }
func (h groupHeap) Less(i, j int) bool {
	if h[i].TotalLength == h[j].TotalLength {
		return h[i].Idx < h[j].Idx
	}
	return h[i].TotalLength < h[j].TotalLength
}
func (h groupHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *groupHeap) Push(x any)        { *h = append(*h, x.(*Group)) }
func (h *groupHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Split packs tasks into exactly n groups, each assignment going to the
// currently-smallest-total group (peek, append, fix). Time O(t log n),
// space O(n), where t = len(tasks).
func Split(tasks []scan.FileScanTask, n int) []Group {
	if n <= 0 {
		n = 1
	}
	h := make(groupHeap, n)
	for i := range n {
		h[i] = &Group{Idx: i}
	}
	heap.Init(&h)

	for _, task := range tasks {
		g := h[0] // peek
		g.TotalLength += task.Length
		g.Tasks = append(g.Tasks, task)
		heap.Fix(&h, 0)
	}

	out := make([]Group, len(h))
	for i, g := range h {
		out[i] = *g
	}
	return out
}
