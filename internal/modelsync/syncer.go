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

// Package modelsync 在 worker 全生命周期内按固定节奏拉取模型参数，写入每个 agent 的深度-1 交接单元；
// 只拉取不应用，应用时机由策略方自行决定。
package modelsync

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"rl-actor/internal/actor/job"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
	"rl-actor/pkg/shutdown"
)

const (
	defaultInterval = 30 * time.Second
	maxCheckTick    = time.Second
	minCheckTick    = 10 * time.Millisecond
)

// ErrNoModel learner 尚未发布任何模型；本轮跳过该 agent
var ErrNoModel = errors.New("no model published yet")

// Fetcher 按 learner 拉取最新模型
type Fetcher interface {
	FetchModel(ctx context.Context, learnerID string) (Update, error)
}

// JobSource 提供当前活动 job；无 job 时返回 false
type JobSource interface {
	ActiveJob() (job.Job, bool)
}

// Syncer 模型同步循环
type Syncer struct {
	fetcher  Fetcher
	jobs     JobSource
	slots    []*Slot[Update]
	interval time.Duration
	flag     *shutdown.Flag
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewSyncer 创建同步器；interval<=0 时默认 30s
func NewSyncer(fetcher Fetcher, jobs JobSource, slots []*Slot[Update], interval time.Duration, flag *shutdown.Flag, logger *log.Logger) *Syncer {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Syncer{
		fetcher:  fetcher,
		jobs:     jobs,
		slots:    slots,
		interval: interval,
		flag:     flag,
		logger:   logger,
	}
}

// Start 启动后台循环
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Wait 等待循环退出
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func (s *Syncer) checkTick() time.Duration {
	tick := s.interval / 10
	if tick > maxCheckTick {
		tick = maxCheckTick
	}
	if tick < minCheckTick {
		tick = minCheckTick
	}
	return tick
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.logger.Info("模型同步线程退出")

	tick := s.checkTick()
	last := time.Now()
	for !s.flag.IsSet() {
		if ctx.Err() != nil {
			return
		}
		j, ok := s.jobs.ActiveJob()
		if !ok || time.Since(last) < s.interval {
			s.flag.Sleep(tick)
			continue
		}
		if err := s.SyncOnce(ctx, j); err != nil {
			if errors.Is(err, shutdown.ErrShutdown) || ctx.Err() != nil {
				return
			}
			// 更新通道异常时不允许在旧模型上继续采样
			s.logger.Error("模型更新失败，worker 即将退出", "job_id", j.JobID, "error", err)
			s.flag.Trigger("model sync: " + err.Error())
			return
		}
		last = time.Now()
	}
}

// SyncOnce 对 job 中标记需要更新的每个 agent 拉取一次模型并写入交接单元
func (s *Syncer) SyncOnce(ctx context.Context, j job.Job) error {
	for i := range j.Agents {
		if !j.NeedsUpdate(i) {
			continue
		}
		if i >= len(s.slots) {
			s.logger.Warn("agent 序号超出交接单元数量，跳过", "agent", i, "slots", len(s.slots))
			continue
		}
		start := time.Now()
		u, err := s.fetcher.FetchModel(ctx, j.LearnerID(i))
		if errors.Is(err, ErrNoModel) {
			s.logger.Debug("learner 尚无模型，跳过", "agent", i, "learner", j.LearnerID(i))
			continue
		}
		if err != nil {
			return err
		}
		if s.slots[i].Put(u) {
			s.logger.Debug("覆盖未被应用的模型更新", "agent", i)
		}
		metrics.ModelUpdatesFetched.WithLabelValues(strconv.Itoa(i)).Inc()
		s.logger.Info("拉取模型更新", "agent", i, "path", u.Path, "cost", time.Since(start).String())
	}
	return nil
}
