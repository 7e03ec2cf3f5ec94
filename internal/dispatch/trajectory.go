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
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rl-actor/internal/actor/trajectory"
	"rl-actor/internal/codec"
	"rl-actor/internal/coordinator"
	"rl-actor/internal/storage/object"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
	"rl-actor/pkg/shutdown"
	"rl-actor/pkg/tracing"
)

const (
	defaultPollTimeout = time.Second
	defaultPriority    = 1.0
)

// MetadataSender 轨迹元数据上报
type MetadataSender interface {
	SendMetadata(ctx context.Context, meta coordinator.TrajectoryMetadata) bool
}

// TrajectorySender 轨迹发送线程：压缩数据写入存储，元数据单独上报 coordinator。
// 单条失败只记录日志，不重试。
type TrajectorySender struct {
	queue       *Queue[trajectory.Window]
	store       object.Store
	coord       MetadataSender
	workerID    string
	pollTimeout time.Duration
	flag        *shutdown.Flag
	logger      *log.Logger
	finished    atomic.Int64
	failed      atomic.Int64
	wg          sync.WaitGroup
}

// NewTrajectorySender 创建发送器；pollTimeout<=0 时默认 1s
func NewTrajectorySender(queue *Queue[trajectory.Window], store object.Store, coord MetadataSender, workerID string, pollTimeout time.Duration, flag *shutdown.Flag, logger *log.Logger) *TrajectorySender {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &TrajectorySender{
		queue:       queue,
		store:       store,
		coord:       coord,
		workerID:    workerID,
		pollTimeout: pollTimeout,
		flag:        flag,
		logger:      logger,
	}
}

// Start 启动发送 goroutine
func (s *TrajectorySender) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.logger.Info("轨迹发送线程退出", "finished", s.finished.Load(), "failed", s.failed.Load())
		}()
		s.queue.consume(ctx, s.pollTimeout, func(w trajectory.Window) {
			if err := s.Send(ctx, w); err != nil {
				s.failed.Add(1)
				s.logger.Error("轨迹发送失败", "env_id", w.EnvID, "agent_id", w.AgentID, "error", err)
			}
		})
	}()
}

// Wait 等待发送 goroutine 退出
func (s *TrajectorySender) Wait() {
	s.wg.Wait()
}

// Finished 成功发送的轨迹数
func (s *TrajectorySender) Finished() int64 {
	return s.finished.Load()
}

// TrajectoryID 生成轨迹标识 job_{job}_env_{env}_agent_{agent}_{uuid}
func TrajectoryID(jobID string, envID, agentID int) string {
	id, err := uuid.NewUUID()
	if err != nil {
		id = uuid.New()
	}
	return fmt.Sprintf("job_%s_env_%d_agent_%d_%s", jobID, envID, agentID, id.String())
}

// BuildMetadata 从窗口及其 job 生成元数据；data_push_length 取实际载荷长度，局首截断窗口可短于 push_length
func BuildMetadata(trajID, workerID string, w trajectory.Window, finish time.Time) coordinator.TrajectoryMetadata {
	j := w.Job
	return coordinator.TrajectoryMetadata{
		TrajID:         trajID,
		LearnerUID:     j.LearnerID(w.AgentID),
		LaunchPlayer:   j.LaunchPlayer,
		EnvID:          w.EnvID,
		AgentID:        w.AgentID,
		ActorUID:       workerID,
		Done:           w.Done(),
		Priority:       defaultPriority,
		TrajFinishTime: float64(finish.UnixNano()) / 1e9,
		JobID:          j.JobID,
		DataPushLength: w.Len(),
		Compressor:     j.Compressor,
		Job:            j,
	}
}

// Send 发送单条轨迹：编码压缩 → 写存储 → 上报元数据
func (s *TrajectorySender) Send(ctx context.Context, w trajectory.Window) (err error) {
	start := time.Now()
	trajID := TrajectoryID(w.Job.JobID, w.EnvID, w.AgentID)
	ctx, span := tracing.StartTrajectorySpan(ctx, trajID, w.EnvID)
	defer func() { tracing.EndSpan(span, err) }()

	cd, err := codec.Get(w.Job.Compressor)
	if err != nil {
		metrics.SendFailTotal.WithLabelValues("encode").Inc()
		return err
	}
	raw, err := json.Marshal(w)
	if err != nil {
		metrics.SendFailTotal.WithLabelValues("encode").Inc()
		return fmt.Errorf("encode trajectory: %w", err)
	}
	data, err := cd.Compress(raw)
	if err != nil {
		metrics.SendFailTotal.WithLabelValues("encode").Inc()
		return fmt.Errorf("compress trajectory: %w", err)
	}
	if err := s.store.Put(ctx, trajID, data); err != nil {
		metrics.SendFailTotal.WithLabelValues("payload").Inc()
		return fmt.Errorf("store trajectory %s: %w", trajID, err)
	}
	stored := time.Since(start)

	meta := BuildMetadata(trajID, s.workerID, w, time.Now())
	if !s.coord.SendMetadata(ctx, meta) {
		metrics.SendFailTotal.WithLabelValues("metadata").Inc()
		return fmt.Errorf("send metadata %s: rejected or unreachable", trajID)
	}
	cost := time.Since(start)
	metrics.TrajectoriesSent.WithLabelValues(s.workerID).Inc()
	metrics.SendDuration.WithLabelValues("trajectory").Observe(cost.Seconds())
	n := s.finished.Add(1)
	s.logger.Info("轨迹发送完成", "traj_id", trajID, "bytes", len(data), "store_cost", stored.String(), "cost", cost.String(), "finished", n)
	return nil
}
