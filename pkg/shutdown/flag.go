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

// Package shutdown 提供进程级关停标志：所有后台循环在每轮迭代时检查，置位即为唯一需要的拆除动作
package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdown 阻塞调用因关停标志被置位而放弃
var ErrShutdown = errors.New("shutdown requested")

// Flag 进程级关停标志；零值不可用，使用 New 创建
type Flag struct {
	set    atomic.Bool
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	reason string
}

// New 创建未置位的关停标志
func New() *Flag {
	return &Flag{done: make(chan struct{})}
}

// Trigger 置位标志并记录首次原因；重复调用无副作用
func (f *Flag) Trigger(reason string) {
	f.once.Do(func() {
		f.mu.Lock()
		f.reason = reason
		f.mu.Unlock()
		f.set.Store(true)
		close(f.done)
	})
}

// IsSet 标志是否已置位
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Done 标志置位时关闭的 channel，可用于 select
func (f *Flag) Done() <-chan struct{} {
	return f.done
}

// Reason 首次 Trigger 时给出的原因
func (f *Flag) Reason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

// Sleep 睡眠 d，期间置位则立即返回 false
func (f *Flag) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !f.IsSet()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-f.done:
		return false
	case <-t.C:
		return !f.IsSet()
	}
}
