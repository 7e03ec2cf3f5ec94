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

package actor

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"rl-actor/internal/actor/job"
	"rl-actor/internal/actor/trajectory"
	"rl-actor/internal/dispatch"
	"rl-actor/internal/modelsync"
	"rl-actor/pkg/errors"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
	"rl-actor/pkg/shutdown"
)

const (
	defaultEnvNum = 1
	idleWait      = 5 * time.Millisecond
)

// Options actor 参数
type Options struct {
	WorkerID   string
	EnvNum     int
	Adder      job.AdderSettings // job 未携带 adder 参数时使用
	Compressor string
}

// Stats 单个 job 的统计
type Stats struct {
	Steps    int
	Episodes int
	Windows  int
	Cost     time.Duration
}

// Actor 采样主循环；RunJob 不可并发调用
type Actor struct {
	opts    Options
	hooks   Hooks
	traj    *dispatch.Queue[trajectory.Window]
	results *dispatch.Queue[trajectory.EpisodeResult]
	updates []*modelsync.Slot[modelsync.Update]
	flag    *shutdown.Flag
	logger  *log.Logger

	active atomic.Pointer[job.Job]
}

// New 创建 actor；缺少环境或策略工厂时返回 ErrNotImplemented
func New(opts Options, hooks Hooks, traj *dispatch.Queue[trajectory.Window], results *dispatch.Queue[trajectory.EpisodeResult], updates []*modelsync.Slot[modelsync.Update], flag *shutdown.Flag, logger *log.Logger) (*Actor, error) {
	if hooks.Env == nil {
		return nil, errors.Wrap(errors.ErrNotImplemented, "environment factory")
	}
	if hooks.Policy == nil {
		return nil, errors.Wrap(errors.ErrNotImplemented, "policy factory")
	}
	if hooks.Transition == nil {
		hooks.Transition = DefaultTransition
	}
	if opts.EnvNum <= 0 {
		opts.EnvNum = defaultEnvNum
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Actor{
		opts:    opts,
		hooks:   hooks,
		traj:    traj,
		results: results,
		updates: updates,
		flag:    flag,
		logger:  logger,
	}, nil
}

// ActiveJob 当前 job 的只读副本；实现 modelsync.JobSource
func (a *Actor) ActiveJob() (job.Job, bool) {
	p := a.active.Load()
	if p == nil {
		return job.Job{}, false
	}
	return *p, true
}

// RunJob 执行一个 job 直到全部环境跑完；关停时返回 shutdown.ErrShutdown
func (a *Actor) RunJob(ctx context.Context, j job.Job) (Stats, error) {
	start := time.Now()
	var st Stats
	j = j.WithDefaults(a.opts.Adder, a.opts.Compressor).Clone()
	published := j.Clone()
	a.active.Store(&published)
	defer a.active.Store(nil)

	logger := a.logger.With("job_id", j.JobID)
	env, err := a.hooks.Env(j, a.opts.EnvNum)
	if err != nil {
		return st, fmt.Errorf("create environments: %w", err)
	}
	defer func() {
		if err := env.Close(); err != nil {
			logger.Warn("关闭环境失败", "error", err)
		}
	}()
	policy, err := a.hooks.Policy(j, a.updates)
	if err != nil {
		return st, fmt.Errorf("create policy: %w", err)
	}
	if err := env.Launch(ctx); err != nil {
		return st, fmt.Errorf("launch environments: %w", err)
	}
	asm := trajectory.NewAssembler(j, a.opts.EnvNum, logger)
	logger.Info("job 开始", "env_num", a.opts.EnvNum, "push_length", asm.PushLength(), "use_gae", j.Adder.UseGAE)

	for !env.Done() {
		if a.flag.IsSet() {
			return st, shutdown.ErrShutdown
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
		obs := env.ReadyObs()
		if len(obs) == 0 {
			a.flag.Sleep(idleWait)
			continue
		}
		outs, err := policy.Forward(ctx, obs, j.ForwardKwargs)
		if err != nil {
			return st, fmt.Errorf("policy forward: %w", err)
		}
		actions := make(map[int]interface{}, len(outs))
		for envID, o := range obs {
			out, ok := outs[envID]
			if !ok {
				return st, fmt.Errorf("policy returned no output for env %d", envID)
			}
			slot := asm.Slot(envID)
			slot.LastObs = o
			slot.LastOutput = out
			actions[envID] = out.Action
		}
		steps, err := env.Step(ctx, actions)
		if err != nil {
			return st, fmt.Errorf("step environments: %w", err)
		}
		if err := a.consume(ctx, j, asm, steps, &st); err != nil {
			return st, err
		}
	}
	st.Cost = time.Since(start)
	logger.Info("job 完成", "steps", st.Steps, "episodes", st.Episodes, "windows", st.Windows, "cost", st.Cost.String())
	return st, nil
}

// consume 按 env_id 顺序把单步结果写入槽位，窗口与局结果入队
func (a *Actor) consume(ctx context.Context, j job.Job, asm *trajectory.Assembler, steps map[int]Timestep, st *Stats) error {
	ids := make([]int, 0, len(steps))
	for id := range steps {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, envID := range ids {
		ts := steps[envID]
		slot := asm.Slot(envID)
		out, _ := slot.LastOutput.(PolicyOutput)
		t := a.hooks.Transition(slot.LastObs, out, ts)
		st.Steps++
		metrics.EnvSteps.Inc()
		for _, w := range asm.Push(envID, t) {
			if err := a.traj.Put(ctx, w); err != nil {
				return err
			}
			st.Windows++
		}
		if ts.Done {
			st.Episodes++
			if err := a.results.Put(ctx, trajectory.ResultFromInfo(envID, ts.Info, j)); err != nil {
				return err
			}
		}
		slot.LastObs = ts.Obs
	}
	return nil
}
