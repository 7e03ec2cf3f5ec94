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

package cartpole

import (
	"context"
	"fmt"
	"math/rand"

	"rl-actor/internal/actor"
	"rl-actor/internal/actor/job"
)

// VectorEnv n 个独立倒立摆，每个跑满 episodes 局后不再产生观测
type VectorEnv struct {
	envs     []*Env
	episodes int
	finished []int
	returns  []float64
	seed     int64
}

var _ actor.EnvironmentSet = (*VectorEnv)(nil)

// NewVectorEnv 创建向量环境；episodes<=0 时每个环境只跑 1 局
func NewVectorEnv(n, episodes int, seed int64) *VectorEnv {
	if episodes <= 0 {
		episodes = 1
	}
	return &VectorEnv{
		envs:     make([]*Env, n),
		episodes: episodes,
		finished: make([]int, n),
		returns:  make([]float64, n),
		seed:     seed,
	}
}

// Factory 返回 actor.EnvFactory
func Factory(episodes int, seed int64) actor.EnvFactory {
	return func(_ job.Job, envNum int) (actor.EnvironmentSet, error) {
		if envNum <= 0 {
			return nil, fmt.Errorf("cartpole: env_num must be positive, got %d", envNum)
		}
		return NewVectorEnv(envNum, episodes, seed), nil
	}
}

// Launch 初始化全部环境；同一 seed 得到相同的初始状态
func (v *VectorEnv) Launch(_ context.Context) error {
	for i := range v.envs {
		v.envs[i] = NewEnv(rand.New(rand.NewSource(v.seed + int64(i))))
	}
	return nil
}

// ReadyObs 未跑完的环境的当前观测
func (v *VectorEnv) ReadyObs() map[int]interface{} {
	out := make(map[int]interface{}, len(v.envs))
	for i, e := range v.envs {
		if e != nil && v.finished[i] < v.episodes {
			out[i] = e.State().Vector()
		}
	}
	return out
}

// Step 推进给定环境；局终时自动 Reset，info 携带本局回报与步数
func (v *VectorEnv) Step(_ context.Context, actions map[int]interface{}) (map[int]actor.Timestep, error) {
	out := make(map[int]actor.Timestep, len(actions))
	for id, a := range actions {
		if id < 0 || id >= len(v.envs) || v.envs[id] == nil {
			return nil, fmt.Errorf("cartpole: unknown env %d", id)
		}
		act, ok := a.(int)
		if !ok {
			return nil, fmt.Errorf("cartpole: env %d action %T is not int", id, a)
		}
		e := v.envs[id]
		s, r, done := e.Step(act)
		v.returns[id] += r
		ts := actor.Timestep{Obs: s.Vector(), Reward: r, Done: done}
		if done {
			ts.Info = map[string]interface{}{
				"result":    v.returns[id],
				"units_num": e.Steps(),
				"dists":     nil,
			}
			v.returns[id] = 0
			v.finished[id]++
			e.Reset()
		}
		out[id] = ts
	}
	return out, nil
}

// Done 全部环境是否跑完
func (v *VectorEnv) Done() bool {
	for _, f := range v.finished {
		if f < v.episodes {
			return false
		}
	}
	return true
}

// Close 无外部资源
func (v *VectorEnv) Close() error {
	return nil
}
