// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag_TriggerOnce(t *testing.T) {
	f := New()
	assert.False(t, f.IsSet())

	f.Trigger("first")
	f.Trigger("second")

	assert.True(t, f.IsSet())
	assert.Equal(t, "first", f.Reason())
	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel should be closed after Trigger")
	}
}

func TestFlag_SleepInterrupted(t *testing.T) {
	f := New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Trigger("stop")
	}()
	start := time.Now()
	ok := f.Sleep(10 * time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFlag_SleepCompletes(t *testing.T) {
	f := New()
	require.True(t, f.Sleep(5*time.Millisecond))
	f.Trigger("x")
	require.False(t, f.Sleep(0))
}

func TestFlag_ConcurrentTrigger(t *testing.T) {
	f := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Trigger("race")
		}()
	}
	wg.Wait()
	assert.True(t, f.IsSet())
	assert.Equal(t, "race", f.Reason())
}
