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

package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteFilesStatAccumulates(t *testing.T) {
	s := New()
	s.AddRewrittenFile(100)
	s.AddRewrittenFile(50)
	s.AddAddedFile()
	s.AddAddedFile()
	s.AddAddedFile()
	s.AddFailedFile()

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.RewrittenFilesCount)
	assert.Equal(t, int64(150), snap.RewrittenBytes)
	assert.Equal(t, int64(3), snap.AddedFilesCount)
	assert.Equal(t, int64(1), snap.FailedDataFilesCount)
}

func TestRewriteFilesStatZeroValue(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	assert.Equal(t, Snapshot{}, snap)
}

func TestRewriteFilesStatConcurrentAdds(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddRewrittenFile(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), s.Snapshot().RewrittenFilesCount)
	assert.Equal(t, int64(100), s.Snapshot().RewrittenBytes)
}

func TestPromTrackerObserveMirrorsSnapshot(t *testing.T) {
	tr := NewPromTracker()
	s := New()
	s.AddRewrittenFile(1024)
	s.AddAddedFile()
	s.AddFailedFile()

	tr.Observe(s.Snapshot())

	families, err := tr.Registry().Gather()
	assert.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}

	assert.Equal(t, float64(1), values["bergloom_rewritten_files_count"])
	assert.Equal(t, float64(1024), values["bergloom_rewritten_bytes"])
	assert.Equal(t, float64(1), values["bergloom_added_files_count"])
	assert.Equal(t, float64(1), values["bergloom_failed_data_files_count"])
}
