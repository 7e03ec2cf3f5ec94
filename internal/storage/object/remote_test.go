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

package object

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis store tests")
	}
	s, err := NewRedisStore(context.Background(), &redis.Options{Addr: addr}, "test:stepdata:", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestPgStore(t *testing.T) {
	dsn := os.Getenv("TEST_STEPDATA_DSN")
	if dsn == "" {
		t.Skip("TEST_STEPDATA_DSN not set, skipping Postgres store tests")
	}
	ctx := context.Background()
	s, err := NewPgStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPgStore: %v", err)
	}
	defer s.Close()
	// 清空表以便测试独立
	_, _ = s.pool.Exec(ctx, `DELETE FROM stepdata_objects`)
	exerciseStore(t, s)
}
