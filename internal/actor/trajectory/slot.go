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

// EnvironmentSlot 单个环境的可变状态；只由主循环访问，不加锁
type EnvironmentSlot struct {
	EnvID      int
	LastObs    interface{}
	LastOutput interface{}

	buffer []Transition
	carry  []Transition // 上一窗口的副本，仅用于局终补齐
	infos  []map[string]interface{}
}

func newSlot(envID int) *EnvironmentSlot {
	return &EnvironmentSlot{EnvID: envID}
}

// Pending 当前缓存条数
func (s *EnvironmentSlot) Pending() int {
	return len(s.buffer)
}

// CarryLen 补齐缓存条数
func (s *EnvironmentSlot) CarryLen() int {
	return len(s.carry)
}

// EpisodeInfos 已结束各局的 info
func (s *EnvironmentSlot) EpisodeInfos() []map[string]interface{} {
	return s.infos
}

func (s *EnvironmentSlot) reset() {
	s.buffer = nil
	s.carry = nil
}
