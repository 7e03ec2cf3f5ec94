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

// Package trajectory 负责按环境槽位缓存 transition、切分定长窗口并计算优势
package trajectory

import (
	"rl-actor/internal/actor/job"
)

// Transition 单步记录；创建后只读，进入窗口前只属于一个槽位
type Transition struct {
	Obs     interface{}            `json:"obs"`
	Action  interface{}            `json:"action"`
	Value   float64                `json:"value"`
	LogProb float64                `json:"log_prob"`
	Reward  float64                `json:"reward"`
	Done    bool                   `json:"done"`
	Info    map[string]interface{} `json:"info,omitempty"`
}

// Clone 复制 transition 及其 Info；Obs 与 Action 视为只读，不做拷贝
func (t Transition) Clone() Transition {
	if t.Info != nil {
		info := make(map[string]interface{}, len(t.Info))
		for k, v := range t.Info {
			info[k] = v
		}
		t.Info = info
	}
	return t
}

func cloneTransitions(ts []Transition) []Transition {
	out := make([]Transition, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Window 一段时间连续、定长（或在局首截断）的 transition 及其优势
type Window struct {
	Steps      []Transition `json:"steps"`
	Advantages []float64    `json:"advantages,omitempty"` // 未启用 GAE 时为空
	Returns    []float64    `json:"returns,omitempty"`
	EnvID      int          `json:"env_id"`
	AgentID    int          `json:"agent_id"`
	Job        job.Job      `json:"-"`
	Padded     int          `json:"padded"` // 取自上一窗口尾部的条数
	Final      bool         `json:"final"`
}

// Len 窗口长度
func (w Window) Len() int {
	return len(w.Steps)
}

// Done 窗口最后一步是否为局终
func (w Window) Done() bool {
	return len(w.Steps) > 0 && w.Steps[len(w.Steps)-1].Done
}

// EpisodeResult 单局结束时的结果记录，与轨迹数据分开上报
type EpisodeResult struct {
	EnvID    int         `json:"env_id"`
	Result   interface{} `json:"result"`
	Dists    interface{} `json:"dists"`
	UnitsNum interface{} `json:"units_num"`
	Job      job.Job     `json:"-"`
}

// ResultFromInfo 从局终 info 中取出结果字段
func ResultFromInfo(envID int, info map[string]interface{}, j job.Job) EpisodeResult {
	return EpisodeResult{
		EnvID:    envID,
		Result:   info["result"],
		Dists:    info["dists"],
		UnitsNum: info["units_num"],
		Job:      j,
	}
}
