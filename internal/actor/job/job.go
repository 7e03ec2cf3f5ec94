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

package job

import "maps"

// AdderSettings 窗口切分与优势计算参数，随 job 下发
type AdderSettings struct {
	PushLength int     `json:"data_push_length"`
	UseGAE     bool    `json:"use_gae"`
	Gamma      float64 `json:"gamma"`
	Lambda     float64 `json:"gae_lambda"`
}

// Job 一次分配：job 期间只读，结束即丢弃
type Job struct {
	JobID         string                 `json:"job_id"`
	Agents        []string               `json:"agent"`
	LearnerIDs    []string               `json:"learner_uid"`
	PlayerIDs     []string               `json:"player_id"`
	LaunchPlayer  string                 `json:"launch_player"`
	ForwardKwargs map[string]interface{} `json:"forward_kwargs,omitempty"`
	UpdateAgents  []int                  `json:"update_agent"`
	Adder         AdderSettings          `json:"adder"`
	Compressor    string                 `json:"compressor"`
}

// Clone 复制切片与 map，forward_kwargs 的值本身按只读共享
func (j Job) Clone() Job {
	out := j
	out.Agents = append([]string(nil), j.Agents...)
	out.LearnerIDs = append([]string(nil), j.LearnerIDs...)
	out.PlayerIDs = append([]string(nil), j.PlayerIDs...)
	out.UpdateAgents = append([]int(nil), j.UpdateAgents...)
	if j.ForwardKwargs != nil {
		out.ForwardKwargs = maps.Clone(j.ForwardKwargs)
	}
	return out
}

// NeedsUpdate 第 i 个 agent 槽位是否需要拉取模型
func (j Job) NeedsUpdate(i int) bool {
	for _, u := range j.UpdateAgents {
		if u == i {
			return true
		}
	}
	return false
}

// LearnerID 第 i 个 agent 对应的 learner；越界返回空串
func (j Job) LearnerID(i int) string {
	if i < 0 || i >= len(j.LearnerIDs) {
		return ""
	}
	return j.LearnerIDs[i]
}

// WithDefaults 用本地配置补齐 job 未携带的 adder/codec 参数
func (j Job) WithDefaults(adder AdderSettings, compressor string) Job {
	if j.Adder.PushLength <= 0 {
		j.Adder = adder
	}
	if j.Compressor == "" {
		j.Compressor = compressor
	}
	return j
}
