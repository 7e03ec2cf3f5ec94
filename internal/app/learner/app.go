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

package learner

import (
	"context"
	"fmt"

	"rl-actor/internal/app"
	"rl-actor/internal/coordinator"
)

// App 演示 learner 进程：注册 + 心跳 + 训练循环
type App struct {
	boot     *app.Bootstrap
	workerID string
	client   *coordinator.Client
	trainer  *Trainer
	cancel   context.CancelFunc
}

// NewApp 装配 learner；worker_id 即 job 中的 learner_uid
func NewApp(boot *app.Bootstrap) (*App, error) {
	workerID := boot.WorkerID("learner")
	logger := boot.Logger.With("worker_id", workerID)
	client := boot.CoordinatorClient(workerID)
	lc := boot.Config.Learner
	return &App{
		boot:     boot,
		workerID: workerID,
		client:   client,
		trainer:  NewTrainer(client, lc.BatchSize, lc.SaveEvery, boot.Flag, logger.Component("trainer")),
	}, nil
}

// Trainer 训练循环
func (a *App) Trainer() *Trainer {
	return a.trainer
}

// Start 注册（阻塞直到成功或关停）后启动心跳与训练循环
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.boot.Logger.Info("启动 learner", "worker_id", a.workerID, "coordinator", a.boot.Config.Coordinator.URL)
	if err := a.client.Register(ctx); err != nil {
		return fmt.Errorf("注册失败: %w", err)
	}
	a.client.StartHeartbeat(ctx)
	a.trainer.Start(ctx)
	a.boot.Logger.Info("learner 启动成功", "assigned_name", a.client.AssignedName(), "model_path", a.client.ModelPath())
	return nil
}

// Done 关停标志被设置后关闭
func (a *App) Done() <-chan struct{} {
	return a.boot.Flag.Done()
}

// Shutdown 设置关停标志并等待训练循环与心跳退出
func (a *App) Shutdown(ctx context.Context) error {
	a.boot.Flag.Trigger("shutdown requested")
	if a.cancel != nil {
		a.cancel()
	}
	done := make(chan struct{})
	go func() {
		a.trainer.Wait()
		a.client.Close()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("等待训练循环退出超时: %w", ctx.Err())
	}
	a.boot.Logger.Info("learner 已关闭", "iterations", a.trainer.Iterations(), "models", a.trainer.Models())
	a.boot.Close(ctx)
	return err
}
