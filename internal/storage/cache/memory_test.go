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
	"testing"
	"time"

	"rl-actor/pkg/errors"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	if err := s.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "v1" {
		t.Errorf("Get: got %q", v)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after Delete: %v", err)
	}
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	s := NewMemoryStore(0)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get missing should be ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf, 0)
	buf[0] = 'x'
	v, _ := s.Get(ctx, "k")
	v[1] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("cached value mutated: %q", again)
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_ = s.Set(ctx, "a", []byte("3"), 0) // 覆盖不改变写入顺序
	_ = s.Set(ctx, "c", []byte("4"), 0)
	if s.Len() != 2 {
		t.Fatalf("Len: got %d", s.Len())
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Error("a should be evicted")
	}
	if ok, _ := s.Exists(ctx, "c"); !ok {
		t.Error("c should be present")
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	_ = s.Set(ctx, "k", []byte("v"), time.Minute)
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Fatal("fresh entry should exist")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("expired entry should not exist")
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get expired: %v", err)
	}
}

func TestMemoryStore_ClearAndEmptyKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	_ = s.Set(ctx, "k1", []byte("v1"), 0)
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Clear: %d", s.Len())
	}
	if err := s.Set(ctx, "", []byte("v"), 0); !errors.Is(err, errors.ErrInvalidArg) {
		t.Errorf("Set empty key: %v", err)
	}
}
