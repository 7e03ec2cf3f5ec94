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

package modelsync

import "sync"

// Update 一次模型参数更新：不透明参数块 + 来源路径
type Update struct {
	Params []byte
	Path   string
}

// Slot 深度为 1 的交接单元：写覆盖、读取清空，只保留最新值
type Slot[T any] struct {
	mu      sync.Mutex
	val     T
	full    bool
	version uint64
	dropped uint64
}

// NewSlot 创建空交接单元
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// NewSlots 创建 n 个交接单元
func NewSlots[T any](n int) []*Slot[T] {
	out := make([]*Slot[T], n)
	for i := range out {
		out[i] = NewSlot[T]()
	}
	return out
}

// Put 写入新值；返回是否覆盖了未被读取的旧值
func (s *Slot[T]) Put(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.full
	if replaced {
		s.dropped++
	}
	s.val = v
	s.full = true
	s.version++
	return replaced
}

// Take 取出并清空；没有待取值时返回 false
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if !s.full {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.full = false
	return v, true
}

// Peek 读取但不清空
func (s *Slot[T]) Peek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val, s.full
}

// Version 累计写入次数
func (s *Slot[T]) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dropped 被覆盖而从未读取的次数
func (s *Slot[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
