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
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	"rl-actor/internal/actor"
	"rl-actor/internal/actor/job"
	"rl-actor/internal/actor/trajectory"
	apihttp "rl-actor/internal/api/http"
	"rl-actor/internal/app"
	"rl-actor/internal/coordinator"
	"rl-actor/internal/dispatch"
	"rl-actor/internal/env/cartpole"
	"rl-actor/internal/modelsync"
	"rl-actor/internal/policy/linear"
	"rl-actor/pkg/config"
)

const defaultAgentSlots = 2

// App actor worker 应用：注册 + 心跳、模型同步、两个发送线程、job 主循环与 /metrics
type App struct {
	boot         *app.Bootstrap
	workerID     string
	client       *coordinator.Client
	actor        *actor.Actor
	runner       *JobRunner
	syncer       *modelsync.Syncer
	trajSender   *dispatch.TrajectorySender
	resultSender *dispatch.ResultSender
	metrics      *server.Hertz
	cancel       context.CancelFunc
}

// DefaultHooks 演示用协作方：倒立摆环境组 + 线性策略
func DefaultHooks(boot *app.Bootstrap) actor.Hooks {
	a := boot.Config.Actor
	return actor.Hooks{
		Env:    cartpole.Factory(a.EpisodeNum, a.Seed),
		Policy: linear.Factory(a.PolicyApplyEvery, a.Seed, boot.Logger.Component("policy")),
	}
}

// NewApp 装配 actor worker；hooks 缺少环境或策略工厂时返回 ErrNotImplemented
func NewApp(boot *app.Bootstrap, hooks actor.Hooks) (*App, error) {
	cfg := boot.Config
	workerID := boot.WorkerID("actor")
	logger := boot.Logger.With("worker_id", workerID)

	agentSlots := cfg.Actor.AgentNum
	if agentSlots <= 0 {
		agentSlots = defaultAgentSlots
	}
	updates := modelsync.NewSlots[modelsync.Update](agentSlots)
	trajQueue := dispatch.NewQueue[trajectory.Window]("trajectory", cfg.Dispatch.QueueCapacity, cfg.Dispatch.Backpressure, boot.Flag, logger)
	resultQueue := dispatch.NewQueue[trajectory.EpisodeResult]("result", cfg.Dispatch.QueueCapacity, cfg.Dispatch.Backpressure, boot.Flag, logger)

	act, err := actor.New(actor.Options{
		WorkerID: workerID,
		EnvNum:   cfg.Actor.EnvNum,
		Adder: job.AdderSettings{
			PushLength: cfg.Adder.PushLength,
			UseGAE:     cfg.Adder.UseGAE,
			Gamma:      cfg.Adder.Gamma,
			Lambda:     cfg.Adder.Lambda,
		},
		Compressor: cfg.Actor.Compressor,
	}, hooks, trajQueue, resultQueue, updates, boot.Flag, logger.Component("actor"))
	if err != nil {
		return nil, fmt.Errorf("初始化 actor 失败: %w", err)
	}

	client := boot.CoordinatorClient(workerID)
	poll := config.Duration(cfg.Dispatch.PollTimeout, time.Second)
	a := &App{
		boot:         boot,
		workerID:     workerID,
		client:       client,
		actor:        act,
		syncer:       modelsync.NewSyncer(client, act, updates, config.Duration(cfg.ModelSync.Interval, 30*time.Second), boot.Flag, logger.Component("model_sync")),
		trajSender:   dispatch.NewTrajectorySender(trajQueue, boot.Store, client, workerID, poll, boot.Flag, logger.Component("traj_sender")),
		resultSender: dispatch.NewResultSender(resultQueue, client, workerID, poll, boot.Flag, logger.Component("result_sender")),
		runner:       NewJobRunner(client, act, config.Duration(cfg.Actor.JobPollInterval, 2*time.Second), boot.Flag, logger.Component("job_runner")),
	}
	if p := cfg.Monitoring.Prometheus; p.Enable && p.Port > 0 {
		a.metrics = apihttp.BuildMetrics(fmt.Sprintf(":%d", p.Port))
	}
	return a, nil
}

// Start 注册（阻塞直到成功或关停）后启动全部后台循环
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	logger := a.boot.Logger
	logger.Info("启动 actor worker", "worker_id", a.workerID, "coordinator", a.boot.Config.Coordinator.URL)

	if a.metrics != nil {
		go func() {
			if err := a.metrics.Run(); err != nil {
				logger.Error("metrics 服务退出", "error", err)
			}
		}()
	}
	if err := a.client.Register(ctx); err != nil {
		return fmt.Errorf("注册失败: %w", err)
	}
	a.client.StartHeartbeat(ctx)
	a.syncer.Start(ctx)
	a.trajSender.Start(ctx)
	a.resultSender.Start(ctx)
	a.runner.Start(ctx)
	logger.Info("actor worker 启动成功", "assigned_name", a.client.AssignedName())
	return nil
}

// Done 关停标志被设置后关闭（信号、模型同步失败等）
func (a *App) Done() <-chan struct{} {
	return a.boot.Flag.Done()
}

// Shutdown 设置关停标志并等待全部循环退出
func (a *App) Shutdown(ctx context.Context) error {
	a.boot.Flag.Trigger("shutdown requested")
	logger := a.boot.Logger
	logger.Info("关闭 actor worker", "reason", a.boot.Flag.Reason())
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.runner.Wait()
		a.syncer.Wait()
		a.trajSender.Wait()
		a.resultSender.Wait()
		a.client.Close()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("等待后台循环退出超时: %w", ctx.Err())
	}
	if a.metrics != nil {
		if e := a.metrics.Shutdown(ctx); e != nil {
			logger.Warn("关闭 metrics 服务失败", "error", e)
		}
	}
	logger.Info("actor worker 已关闭",
		"jobs", a.runner.Jobs(),
		"trajectories", a.trajSender.Finished(),
		"results", a.resultSender.Finished())
	a.boot.Close(ctx)
	return err
}
