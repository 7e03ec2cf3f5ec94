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
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rl-actor/internal/actor/trajectory"
	"rl-actor/internal/coordinator"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
	"rl-actor/pkg/shutdown"
)

// ResultSink 局结果上报
type ResultSink interface {
	SendResult(ctx context.Context, result coordinator.ResultInfo) bool
}

// ResultSender 结果发送线程；结果不压缩，直接随请求上报
type ResultSender struct {
	queue       *Queue[trajectory.EpisodeResult]
	sink        ResultSink
	workerID    string
	pollTimeout time.Duration
	flag        *shutdown.Flag
	logger      *log.Logger
	finished    atomic.Int64
	wg          sync.WaitGroup
}

// NewResultSender 创建结果发送器；pollTimeout<=0 时默认 1s
func NewResultSender(queue *Queue[trajectory.EpisodeResult], sink ResultSink, workerID string, pollTimeout time.Duration, flag *shutdown.Flag, logger *log.Logger) *ResultSender {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &ResultSender{
		queue:       queue,
		sink:        sink,
		workerID:    workerID,
		pollTimeout: pollTimeout,
		flag:        flag,
		logger:      logger,
	}
}

// Start 启动发送 goroutine
func (s *ResultSender) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.logger.Info("结果发送线程退出")
		s.queue.consume(ctx, s.pollTimeout, func(r trajectory.EpisodeResult) {
			if err := s.Send(ctx, r); err != nil {
				s.logger.Error("结果发送失败", "env_id", r.EnvID, "job_id", r.Job.JobID, "error", err)
			}
		})
	}()
}

// Wait 等待发送 goroutine 退出
func (s *ResultSender) Wait() {
	s.wg.Wait()
}

// Finished 成功发送的结果数
func (s *ResultSender) Finished() int64 {
	return s.finished.Load()
}

// Enrich 补充 job、worker 与玩家信息
func Enrich(workerID string, r trajectory.EpisodeResult) coordinator.ResultInfo {
	return coordinator.ResultInfo{
		JobID:        r.Job.JobID,
		ActorUID:     workerID,
		PlayerID:     r.Job.PlayerIDs,
		LaunchPlayer: r.Job.LaunchPlayer,
		EnvID:        r.EnvID,
		Result:       r.Result,
		Dists:        r.Dists,
		UnitsNum:     r.UnitsNum,
	}
}

var errResultRejected = errors.New("result rejected or unreachable")

// Send 上报单条结果
func (s *ResultSender) Send(ctx context.Context, r trajectory.EpisodeResult) error {
	start := time.Now()
	if !s.sink.SendResult(ctx, Enrich(s.workerID, r)) {
		metrics.SendFailTotal.WithLabelValues("result").Inc()
		return errResultRejected
	}
	cost := time.Since(start)
	metrics.ResultsSent.Inc()
	metrics.SendDuration.WithLabelValues("result").Observe(cost.Seconds())
	s.finished.Add(1)
	s.logger.Info("结果发送完成", "env_id", r.EnvID, "job_id", r.Job.JobID, "cost", cost.String())
	return nil
}
