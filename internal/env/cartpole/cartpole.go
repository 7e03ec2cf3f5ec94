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

// Package cartpole 提供倒立摆物理环境及其向量化封装，用作演示 actor 的环境组。
package cartpole

import (
	"math"
	"math/rand"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	halfPoleLength = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * halfPoleLength
	forceMag       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
	// MaxSteps 单局最大步数
	MaxSteps = 500
)

// State 小车与摆杆状态
type State struct {
	X        float64 `json:"x"`
	XDot     float64 `json:"x_dot"`
	Theta    float64 `json:"theta"`
	ThetaDot float64 `json:"theta_dot"`
}

// Vector 观测向量
func (s State) Vector() []float64 {
	return []float64{s.X, s.XDot, s.Theta, s.ThetaDot}
}

// Env 单个倒立摆
type Env struct {
	state State
	steps int
	rng   *rand.Rand
}

// NewEnv 创建环境并完成一次 Reset
func NewEnv(rng *rand.Rand) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	e := &Env{rng: rng}
	e.Reset()
	return e
}

// Reset 在平衡点附近随机初始化
func (e *Env) Reset() State {
	e.state = State{
		X:        e.rng.Float64()*0.1 - 0.05,
		XDot:     e.rng.Float64()*0.1 - 0.05,
		Theta:    e.rng.Float64()*0.1 - 0.05,
		ThetaDot: e.rng.Float64()*0.1 - 0.05,
	}
	e.steps = 0
	return e.state
}

// State 当前状态
func (e *Env) State() State {
	return e.state
}

// Steps 当前局已走步数
func (e *Env) Steps() int {
	return e.steps
}

// Step 施加动作（0 向左，其余向右），返回新状态、奖励与是否结束
func (e *Env) Step(action int) (State, float64, bool) {
	force := forceMag
	if action == 0 {
		force = -forceMag
	}
	s := e.state
	cosTheta := math.Cos(s.Theta)
	sinTheta := math.Sin(s.Theta)

	temp := (force + poleMassLength*s.ThetaDot*s.ThetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) / (halfPoleLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	e.state = State{
		X:        s.X + tau*s.XDot,
		XDot:     s.XDot + tau*xAcc,
		Theta:    s.Theta + tau*s.ThetaDot,
		ThetaDot: s.ThetaDot + tau*thetaAcc,
	}
	e.steps++

	fell := e.state.X < -xThreshold || e.state.X > xThreshold ||
		e.state.Theta < -thetaThreshold || e.state.Theta > thetaThreshold
	done := fell || e.steps >= MaxSteps
	reward := 1.0
	if fell {
		reward = 0
	}
	return e.state, reward, done
}
