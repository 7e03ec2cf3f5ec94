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
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rl-actor/internal/coordinator"
	"rl-actor/internal/policy/linear"
	"rl-actor/pkg/log"
	"rl-actor/pkg/shutdown"
)

// DataSource learner 侧协议调用，由 coordinator.Client 实现
type DataSource interface {
	GetData(ctx context.Context, batchSize int) []coordinator.LazyTrajectory
	SendTrainInfo(ctx context.Context, info interface{}) (string, bool)
	SendModel(ctx context.Context, params []byte) (string, error)
	LoadCheckpoint(ctx context.Context, path string) ([]byte, error)
}

// TrainInfo 每个 batch 上报的统计
type TrainInfo struct {
	Iteration  int64    `json:"iteration"`
	Windows    int      `json:"windows"`
	Steps      int      `json:"steps"`
	Episodes   int      `json:"episodes"`
	MeanReward float64  `json:"mean_reward"`
	MeanReturn float64  `json:"mean_return"`
	LoadErrors int      `json:"load_errors"`
	Players    []string `json:"player_ids,omitempty"`
	CostMs     int64    `json:"cost_ms"`
}

// Trainer 演示 learner：拉数据 → 统计 → 上报 train_info，每 saveEvery 个 batch 发布一次模型。
// 不做梯度更新，价值头偏置按 batch 平均回报做滑动平均，足以让 actor 侧观察到模型变化。
type Trainer struct {
	src       DataSource
	batchSize int
	saveEvery int64
	momentum  float64
	flag      *shutdown.Flag
	logger    *log.Logger

	mu      sync.Mutex
	weights linear.Weights
	iter    atomic.Int64
	models  atomic.Int64
	resets  atomic.Int64
	wg      sync.WaitGroup
}

// NewTrainer batchSize<=0 默认 4，saveEvery<=0 默认 1
func NewTrainer(src DataSource, batchSize, saveEvery int, flag *shutdown.Flag, logger *log.Logger) *Trainer {
	if batchSize <= 0 {
		batchSize = 4
	}
	if saveEvery <= 0 {
		saveEvery = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Trainer{
		src:       src,
		batchSize: batchSize,
		saveEvery: int64(saveEvery),
		momentum:  0.9,
		flag:      flag,
		logger:    logger,
		weights:   linear.DefaultWeights(),
	}
}

// Start 启动训练循环
func (t *Trainer) Start(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.Run(ctx)
	}()
}

// Wait 等待循环退出
func (t *Trainer) Wait() {
	t.wg.Wait()
}

// Iterations 已处理的 batch 数
func (t *Trainer) Iterations() int64 {
	return t.iter.Load()
}

// Models 已发布的模型数
func (t *Trainer) Models() int64 {
	return t.models.Load()
}

// Resets 已执行的检查点回退次数
func (t *Trainer) Resets() int64 {
	return t.resets.Load()
}

// Weights 当前参数副本
func (t *Trainer) Weights() linear.Weights {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.weights
}

// Run 阻塞执行直到关停
func (t *Trainer) Run(ctx context.Context) {
	defer func() { t.logger.Info("训练循环退出", "iterations", t.iter.Load(), "models", t.models.Load()) }()
	for !t.flag.IsSet() && ctx.Err() == nil {
		if !t.Step(ctx) {
			return
		}
	}
}

// Step 处理一个 batch；GetData 因关停返回空时返回 false
func (t *Trainer) Step(ctx context.Context) bool {
	batch := t.src.GetData(ctx, t.batchSize)
	if batch == nil {
		return false
	}
	start := time.Now()
	info := t.summarize(ctx, batch)
	info.Iteration = t.iter.Add(1)
	info.CostMs = time.Since(start).Milliseconds()
	t.observe(info)

	reply, ok := t.src.SendTrainInfo(ctx, info)
	if !ok {
		return false
	}
	t.logger.Debug("train_info 已上报", "iteration", info.Iteration, "reply", reply)
	if reply != "" && reply != coordinator.NoCheckpoint {
		return t.reset(ctx, reply)
	}
	if info.Iteration%t.saveEvery != 0 {
		return true
	}
	params, err := t.Weights().Encode()
	if err != nil {
		t.logger.Error("编码模型失败", "error", err)
		return true
	}
	return t.publish(ctx, params, info.Iteration)
}

// reset 回退到 coordinator 指定的检查点并重新发布
func (t *Trainer) reset(ctx context.Context, path string) bool {
	params, err := t.src.LoadCheckpoint(ctx, path)
	if err != nil {
		t.logger.Error("读取重置检查点失败，沿用当前参数", "path", path, "error", err)
		return true
	}
	w, err := linear.DecodeWeights(params)
	if err != nil {
		t.logger.Error("重置检查点无效，沿用当前参数", "path", path, "error", err)
		return true
	}
	t.mu.Lock()
	t.weights = w
	t.mu.Unlock()
	t.resets.Add(1)
	t.logger.Info("已回退到检查点", "path", path)
	return t.publish(ctx, params, t.iter.Load())
}

func (t *Trainer) publish(ctx context.Context, params []byte, iteration int64) bool {
	path, err := t.src.SendModel(ctx, params)
	if err != nil {
		if errors.Is(err, shutdown.ErrShutdown) || ctx.Err() != nil {
			return false
		}
		t.logger.Error("发布模型失败", "path", path, "error", err)
		return true
	}
	t.models.Add(1)
	t.logger.Info("模型已发布", "path", path, "iteration", iteration)
	return true
}

func (t *Trainer) summarize(ctx context.Context, batch []coordinator.LazyTrajectory) TrainInfo {
	var info TrainInfo
	var rewards, rets float64
	nRets := 0
	players := map[string]bool{}
	for _, lt := range batch {
		w, err := lt.Load(ctx)
		if err != nil {
			info.LoadErrors++
			t.logger.Warn("读取轨迹失败", "traj_id", lt.Metadata.TrajID, "error", err)
			continue
		}
		info.Windows++
		for i, s := range w.Steps {
			info.Steps++
			rewards += s.Reward
			if s.Done {
				info.Episodes++
			}
			if i < len(w.Returns) {
				rets += w.Returns[i]
				nRets++
			}
		}
		for _, p := range w.Job.PlayerIDs {
			if !players[p] {
				players[p] = true
				info.Players = append(info.Players, p)
			}
		}
	}
	if info.Steps > 0 {
		info.MeanReward = rewards / float64(info.Steps)
	}
	if nRets > 0 {
		info.MeanReturn = rets / float64(nRets)
	}
	return info
}

// observe 价值头偏置向 batch 平均回报靠拢
func (t *Trainer) observe(info TrainInfo) {
	if info.Steps == 0 {
		return
	}
	target := info.MeanReturn
	if target == 0 {
		target = info.MeanReward
	}
	t.mu.Lock()
	t.weights.VB = t.momentum*t.weights.VB + (1-t.momentum)*target
	t.mu.Unlock()
}
