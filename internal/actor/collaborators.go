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

// Package actor 驱动单个 job 的采样主循环：取就绪观测、批量前向、推进环境、写入槽位缓存并把窗口与结果交给发送队列。
package actor

import (
	"context"

	"rl-actor/internal/actor/job"
	"rl-actor/internal/actor/trajectory"
	"rl-actor/internal/modelsync"
)

// Timestep 环境推进一步的结果
type Timestep struct {
	Obs    interface{}
	Reward float64
	Done   bool
	Info   map[string]interface{}
}

// PolicyOutput 策略对单个环境的输出
type PolicyOutput struct {
	Action  interface{}
	Value   float64
	LogProb float64
}

// EnvironmentSet 一组并行环境
type EnvironmentSet interface {
	// Launch 启动全部环境
	Launch(ctx context.Context) error
	// ReadyObs 返回当前等待动作的环境观测，env_id -> obs
	ReadyObs() map[int]interface{}
	// Step 对给定环境执行动作，返回各环境的单步结果
	Step(ctx context.Context, actions map[int]interface{}) (map[int]Timestep, error)
	// Done 全部环境是否已跑完各自的局数
	Done() bool
	Close() error
}

// PolicyClient 批量前向；模型更新何时应用由实现自行决定
type PolicyClient interface {
	Forward(ctx context.Context, obs map[int]interface{}, kwargs map[string]interface{}) (map[int]PolicyOutput, error)
}

// EnvFactory 按 job 创建环境组
type EnvFactory func(j job.Job, envNum int) (EnvironmentSet, error)

// PolicyFactory 按 job 创建策略；updates 为各 agent 的模型交接单元
type PolicyFactory func(j job.Job, updates []*modelsync.Slot[modelsync.Update]) (PolicyClient, error)

// TransitionFn 由上一观测、策略输出与单步结果组装 transition
type TransitionFn func(obs interface{}, out PolicyOutput, ts Timestep) trajectory.Transition

// Hooks 外部协作方
type Hooks struct {
	Env        EnvFactory
	Policy     PolicyFactory
	Transition TransitionFn // 为空时用 DefaultTransition
}

// DefaultTransition 直接拷贝观测、动作、价值与奖励
func DefaultTransition(obs interface{}, out PolicyOutput, ts Timestep) trajectory.Transition {
	return trajectory.Transition{
		Obs:     obs,
		Action:  out.Action,
		Value:   out.Value,
		LogProb: out.LogProb,
		Reward:  ts.Reward,
		Done:    ts.Done,
		Info:    ts.Info,
	}
}
