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

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rl-actor/internal/actor"
	"rl-actor/internal/actor/job"
	"rl-actor/pkg/log"
	"rl-actor/pkg/shutdown"
)

// JobSource 申请 job；无 job 时阻塞重试，关停时返回 shutdown.ErrShutdown
type JobSource interface {
	AskForJob(ctx context.Context) (job.Job, error)
}

// JobExecutor 执行单个 job
type JobExecutor interface {
	RunJob(ctx context.Context, j job.Job) (actor.Stats, error)
}

// JobRunner 申请 job → 执行 → 再申请，直到关停；job 执行失败时等待 pollInterval 后继续
type JobRunner struct {
	source       JobSource
	exec         JobExecutor
	pollInterval time.Duration
	flag         *shutdown.Flag
	logger       *log.Logger
	jobs         atomic.Int64
	wg           sync.WaitGroup
}

// NewJobRunner 创建 job 循环；pollInterval<=0 时默认 2s
func NewJobRunner(source JobSource, exec JobExecutor, pollInterval time.Duration, flag *shutdown.Flag, logger *log.Logger) *JobRunner {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &JobRunner{source: source, exec: exec, pollInterval: pollInterval, flag: flag, logger: logger}
}

// Start 在后台运行 job 循环
func (r *JobRunner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
	}()
}

// Wait 等待 job 循环退出
func (r *JobRunner) Wait() {
	r.wg.Wait()
}

// Jobs 已完成的 job 数
func (r *JobRunner) Jobs() int64 {
	return r.jobs.Load()
}

// Run 前台运行 job 循环
func (r *JobRunner) Run(ctx context.Context) {
	defer func() { r.logger.Info("job 循环退出", "jobs", r.jobs.Load()) }()
	for !r.flag.IsSet() && ctx.Err() == nil {
		j, err := r.source.AskForJob(ctx)
		if err != nil {
			if errors.Is(err, shutdown.ErrShutdown) || ctx.Err() != nil {
				return
			}
			r.logger.Error("申请 job 失败", "error", err)
			r.flag.Sleep(r.pollInterval)
			continue
		}
		st, err := r.exec.RunJob(ctx, j)
		if err != nil {
			if errors.Is(err, shutdown.ErrShutdown) || ctx.Err() != nil {
				return
			}
			r.logger.Error("job 执行失败", "job_id", j.JobID, "steps", st.Steps, "error", err)
			r.flag.Sleep(r.pollInterval)
			continue
		}
		r.jobs.Add(1)
	}
}
