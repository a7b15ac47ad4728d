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

package split_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nimtable/bergloom-go/compact/split"
	"github.com/nimtable/bergloom-go/iceberg"
	"github.com/nimtable/bergloom-go/iceberg/scan"
)

func TestSplit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "split suite")
}

func task(length int64, id int) scan.FileScanTask {
	return scan.FileScanTask{
		DataFilePath: "test.parquet",
		ContentType:  iceberg.ContentData,
		Length:       length,
		SequenceNumber: int64(id),
	}
}

func totalLengths(groups []split.Group) []int64 {
	out := make([]int64, len(groups))
	for i, g := range groups {
		out[i] = g.TotalLength
	}
	return out
}

var _ = Describe("Split", func() {
	It("S1: balances 12 tasks of lengths 101..112 into 3 groups", func() {
		var tasks []scan.FileScanTask
		for i := int64(1); i <= 12; i++ {
			tasks = append(tasks, task(100+i, int(i)))
		}
		groups := split.Split(tasks, 3)
		Expect(groups).To(HaveLen(3))

		lens := totalLengths(groups)
		var maxLen, minLen int64
		for i, l := range lens {
			if i == 0 || l > maxLen {
				maxLen = l
			}
			if i == 0 || l < minLen {
				minLen = l
			}
		}
		Expect(maxLen - minLen).To(BeNumerically("<=", 10))

		total := 0
		for _, g := range groups {
			total += len(g.Tasks)
		}
		Expect(total).To(Equal(12))
	})

	It("S2: empty input yields N empty groups", func() {
		groups := split.Split(nil, 3)
		Expect(groups).To(HaveLen(3))
		for _, g := range groups {
			Expect(g.Tasks).To(BeEmpty())
		}
	})

	It("S3: one heavy task gets isolated into its own group", func() {
		tasks := []scan.FileScanTask{
			task(1000, 1), task(100, 2), task(100, 3), task(100, 4), task(100, 5),
		}
		groups := split.Split(tasks, 2)
		Expect(groups).To(HaveLen(2))

		var heavy *split.Group
		for i := range groups {
			for _, t := range groups[i].Tasks {
				if t.Length == 1000 {
					heavy = &groups[i]
				}
			}
		}
		Expect(heavy).NotTo(BeNil())
		Expect(heavy.Tasks).To(HaveLen(1))
	})

	It("S4: is deterministic across repeated invocations", func() {
		var tasks []scan.FileScanTask
		for i := 1; i <= 8; i++ {
			tasks = append(tasks, task(100, i))
		}
		first := split.Split(tasks, 4)
		for range 200 {
			again := split.Split(tasks, 4)
			Expect(again).To(HaveLen(len(first)))
			for i := range first {
				Expect(len(again[i].Tasks)).To(Equal(len(first[i].Tasks)))
				for j := range first[i].Tasks {
					Expect(again[i].Tasks[j].SequenceNumber).To(Equal(first[i].Tasks[j].SequenceNumber))
				}
			}
		}
	})

	It("preserves the multiset of tasks for arbitrary N", func() {
		var tasks []scan.FileScanTask
		for i := 1; i <= 37; i++ {
			tasks = append(tasks, task(int64(i*7%53+1), i))
		}
		groups := split.Split(tasks, 5)
		Expect(groups).To(HaveLen(5))
		seen := map[int64]int{}
		for _, g := range groups {
			for _, t := range g.Tasks {
				seen[t.SequenceNumber]++
			}
		}
		Expect(seen).To(HaveLen(37))
	})
})
