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

package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rl-actor/pkg/config"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
	"rl-actor/pkg/shutdown"
)

const defaultCapacity = 256

// Queue 有界生产者/消费者队列；满时按策略阻塞生产者或丢弃最旧元素
type Queue[T any] struct {
	name       string
	ch         chan T
	dropOldest bool
	flag       *shutdown.Flag
	logger     *log.Logger
	mu         sync.Mutex // drop_oldest 下串行化生产者的腾位操作
	dropped    atomic.Uint64
}

// NewQueue 创建队列；capacity<=0 时默认 256，backpressure 取 config.Backpressure*
func NewQueue[T any](name string, capacity int, backpressure string, flag *shutdown.Flag, logger *log.Logger) *Queue[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Queue[T]{
		name:       name,
		ch:         make(chan T, capacity),
		dropOldest: backpressure == config.BackpressureDropOldest,
		flag:       flag,
		logger:     logger,
	}
}

// Put 入队。block 策略下队列满时等待，ctx 取消或关停时返回错误；drop_oldest 策略不阻塞
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	if q.dropOldest {
		q.putDropOldest(v)
		return nil
	}
	select {
	case q.ch <- v:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return nil
	default:
	}
	select {
	case q.ch <- v:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.flag.Done():
		return shutdown.ErrShutdown
	}
}

func (q *Queue[T]) putDropOldest(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.ch <- v:
			metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
			return
		default:
		}
		select {
		case <-q.ch:
			n := q.dropped.Add(1)
			metrics.QueueDropped.WithLabelValues(q.name).Inc()
			q.logger.Warn("队列已满，丢弃最旧元素", "queue", q.name, "dropped_total", n)
		default:
		}
	}
}

// Get 出队，最多等待 timeout；超时或关停时返回 false
func (q *Queue[T]) Get(timeout time.Duration) (T, bool) {
	var zero T
	select {
	case v := <-q.ch:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return v, true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case v := <-q.ch:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return v, true
	case <-t.C:
		return zero, false
	case <-q.flag.Done():
		return zero, false
	}
}

// Len 当前长度
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap 容量
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Dropped drop_oldest 策略下累计丢弃数
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// consume 单消费者循环：每次最多等待 poll 取一个元素交给 fn，关停或 ctx 取消后退出
func (q *Queue[T]) consume(ctx context.Context, poll time.Duration, fn func(T)) {
	for !q.flag.IsSet() && ctx.Err() == nil {
		v, ok := q.Get(poll)
		if !ok {
			continue
		}
		fn(v)
	}
}
