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

package trajectory

import (
	"rl-actor/internal/actor/job"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
)

const defaultPushLength = 16

// Assembler 按环境槽位累积 transition 并切出窗口；每个 job 一个实例，只在主循环中使用
type Assembler struct {
	adder   job.AdderSettings
	job     job.Job
	agentID int
	slots   map[int]*EnvironmentSlot
	logger  *log.Logger
}

// NewAssembler 创建切分器；adder 取自 j.Adder，PushLength<=0 时默认 16
func NewAssembler(j job.Job, envNum int, logger *log.Logger) *Assembler {
	adder := j.Adder
	if adder.PushLength <= 0 {
		adder.PushLength = defaultPushLength
	}
	if logger == nil {
		logger = log.Nop()
	}
	a := &Assembler{
		adder:  adder,
		job:    j,
		slots:  make(map[int]*EnvironmentSlot, envNum),
		logger: logger,
	}
	for i := 0; i < envNum; i++ {
		a.slots[i] = newSlot(i)
	}
	return a
}

// PushLength 生效的窗口长度
func (a *Assembler) PushLength() int {
	return a.adder.PushLength
}

// Slot 返回环境槽位，不存在时创建
func (a *Assembler) Slot(envID int) *EnvironmentSlot {
	s, ok := a.slots[envID]
	if !ok {
		s = newSlot(envID)
		a.slots[envID] = s
	}
	return s
}

// Push 追加一步；返回本步触发的窗口（0~2 个，同一槽位内按时间顺序）
func (a *Assembler) Push(envID int, t Transition) []Window {
	s := a.Slot(envID)
	pl := a.adder.PushLength
	s.buffer = append(s.buffer, t)

	var out []Window
	if len(s.buffer) == pl+1 {
		// 最后一条留作下一窗口的首步，同时提供 bootstrap 价值
		last := s.buffer[pl]
		data := append([]Transition(nil), s.buffer[:pl]...)
		s.carry = cloneTransitions(data)
		out = append(out, a.finalize(envID, data, last.Value, 0, false))
		s.buffer = []Transition{last}
	}

	if t.Done {
		s.infos = append(s.infos, t.Info)
		missing := pl - len(s.buffer)
		var prefix []Transition
		if missing > 0 {
			n := missing
			if n > len(s.carry) {
				n = len(s.carry)
				a.logger.Debug("补齐缓存不足，局终窗口截断",
					"env_id", envID, "missing", missing, "carry", len(s.carry))
			}
			prefix = s.carry[len(s.carry)-n:]
		}
		data := make([]Transition, 0, len(prefix)+len(s.buffer))
		data = append(data, prefix...)
		data = append(data, s.buffer...)
		out = append(out, a.finalize(envID, data, 0, len(prefix), true))
		s.reset()
	}
	return out
}

func (a *Assembler) finalize(envID int, data []Transition, bootstrap float64, padded int, final bool) Window {
	w := Window{
		Steps:   data,
		EnvID:   envID,
		AgentID: a.agentID,
		Job:     a.job.Clone(),
		Padded:  padded,
		Final:   final,
	}
	if a.adder.UseGAE {
		w.Advantages, w.Returns = ComputeGAE(data, bootstrap, a.adder.Gamma, a.adder.Lambda)
	}
	path := "regular"
	if final {
		path = "final"
	}
	metrics.WindowsEmitted.WithLabelValues(path).Inc()
	return w
}
