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

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rl-actor/pkg/errors"
)

// ErrMiss 未命中或已过期
var ErrMiss = errors.Wrap(errors.ErrNotFound, "cache miss")

const defaultMaxEntries = 8

// MemoryStore 进程内缓存；超过 maxEntries 时淘汰最早写入的条目
type MemoryStore struct {
	items      map[string]*cacheItem
	order      []string
	maxEntries int
	mu         sync.RWMutex
	now        func() time.Time
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryStore maxEntries<=0 时默认 8
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryStore{
		items:      make(map[string]*cacheItem),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if key == "" {
		return errors.Wrap(errors.ErrInvalidArg, "cache key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &cacheItem{value: append([]byte(nil), value...)}
	if expiration > 0 {
		item.expiration = s.now().Add(expiration)
	}
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = item
	for len(s.order) > s.maxEntries {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || item.expired(s.now()) {
		return nil, fmt.Errorf("%s: %w", key, ErrMiss)
	}
	return append([]byte(nil), item.value...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return nil
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	return ok && !item.expired(s.now()), nil
}

// Len 当前条目数（含已过期未清理的）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*cacheItem)
	s.order = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
