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

// Package linear 线性 softmax 策略 + 线性价值头，作为演示用的 PolicyClient。
// 参数以 JSON 编码的 Weights 经模型交接单元下发。
package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"rl-actor/internal/actor"
	"rl-actor/internal/actor/job"
	"rl-actor/internal/modelsync"
	"rl-actor/pkg/log"
)

// Weights 策略参数：W [actions][features]，B [actions]，价值头 VW [features]、VB
type Weights struct {
	W  [][]float64 `json:"w"`
	B  []float64   `json:"b"`
	VW []float64   `json:"vw"`
	VB float64     `json:"vb"`
}

// DefaultWeights 2 个动作、4 维观测的初始参数
func DefaultWeights() Weights {
	return Weights{
		W: [][]float64{
			{0.01, 0.01, 0.01, 0.01},
			{-0.01, -0.01, -0.01, -0.01},
		},
		B:  []float64{0, 0},
		VW: []float64{0, 0, 0, 0},
	}
}

// Validate 检查维度一致
func (w Weights) Validate() error {
	if len(w.W) == 0 || len(w.W) != len(w.B) {
		return fmt.Errorf("linear: %d action rows vs %d biases", len(w.W), len(w.B))
	}
	for i, row := range w.W {
		if len(row) != len(w.VW) {
			return fmt.Errorf("linear: row %d has %d features, value head has %d", i, len(row), len(w.VW))
		}
	}
	return nil
}

// Encode 编码为交接单元中的参数块
func (w Weights) Encode() ([]byte, error) {
	return json.Marshal(w)
}

// DecodeWeights 解码参数块并检查维度
func DecodeWeights(params []byte) (Weights, error) {
	var w Weights
	if err := json.Unmarshal(params, &w); err != nil {
		return Weights{}, fmt.Errorf("linear: decode weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Policy 实现 actor.PolicyClient；每 applyEvery 次前向检查一次交接单元
type Policy struct {
	mu         sync.Mutex
	weights    Weights
	update     *modelsync.Slot[modelsync.Update]
	applyEvery int
	forwards   int
	modelPath  string
	rng        *rand.Rand
	logger     *log.Logger
}

var _ actor.PolicyClient = (*Policy)(nil)

// New 创建策略；update 可为 nil（不接收更新），applyEvery<=0 时每次前向都检查
func New(weights Weights, update *modelsync.Slot[modelsync.Update], applyEvery int, seed int64, logger *log.Logger) (*Policy, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if applyEvery <= 0 {
		applyEvery = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Policy{
		weights:    weights,
		update:     update,
		applyEvery: applyEvery,
		rng:        rand.New(rand.NewSource(seed)),
		logger:     logger,
	}, nil
}

// Factory 返回 actor.PolicyFactory；各 job 共用同一个策略实例，使已应用的更新跨 job 保留。
// 使用第 0 个 agent 的交接单元。
func Factory(applyEvery int, seed int64, logger *log.Logger) actor.PolicyFactory {
	var (
		mu     sync.Mutex
		shared *Policy
	)
	return func(_ job.Job, updates []*modelsync.Slot[modelsync.Update]) (actor.PolicyClient, error) {
		mu.Lock()
		defer mu.Unlock()
		if shared != nil {
			return shared, nil
		}
		var slot *modelsync.Slot[modelsync.Update]
		if len(updates) > 0 {
			slot = updates[0]
		}
		p, err := New(DefaultWeights(), slot, applyEvery, seed, logger)
		if err != nil {
			return nil, err
		}
		shared = p
		return p, nil
	}
}

// ModelPath 当前参数的来源路径；未应用过更新时为空
func (p *Policy) ModelPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modelPath
}

// Forward 对每个观测采样动作，返回动作、对数概率与价值
func (p *Policy) Forward(_ context.Context, obs map[int]interface{}, _ map[string]interface{}) (map[int]actor.PolicyOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forwards++
	if p.update != nil && p.forwards%p.applyEvery == 0 {
		p.applyPending()
	}
	out := make(map[int]actor.PolicyOutput, len(obs))
	for id, o := range obs {
		x, ok := o.([]float64)
		if !ok {
			return nil, fmt.Errorf("linear: env %d observation %T is not []float64", id, o)
		}
		if len(x) != len(p.weights.VW) {
			return nil, fmt.Errorf("linear: env %d observation has %d features, want %d", id, len(x), len(p.weights.VW))
		}
		action, logProb, value := p.act(x)
		out[id] = actor.PolicyOutput{Action: action, LogProb: logProb, Value: value}
	}
	return out, nil
}

func (p *Policy) applyPending() {
	u, ok := p.update.Take()
	if !ok {
		return
	}
	w, err := DecodeWeights(u.Params)
	if err != nil {
		p.logger.Warn("模型参数无效，沿用旧参数", "path", u.Path, "error", err)
		return
	}
	p.weights = w
	p.modelPath = u.Path
	p.logger.Info("应用模型更新", "path", u.Path)
}

func (p *Policy) act(x []float64) (int, float64, float64) {
	logits := make([]float64, len(p.weights.W))
	for i, row := range p.weights.W {
		logits[i] = p.weights.B[i]
		for j, v := range x {
			logits[i] += row[j] * v
		}
	}
	probs := softmax(logits)
	choice := sample(probs, p.rng)
	value := p.weights.VB
	for j, v := range x {
		value += p.weights.VW[j] * v
	}
	return choice, math.Log(probs[choice] + 1e-8), value
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func sample(probs []float64, rng *rand.Rand) int {
	threshold := rng.Float64()
	var acc float64
	for i, p := range probs {
		acc += p
		if threshold <= acc {
			return i
		}
	}
	return len(probs) - 1
}
