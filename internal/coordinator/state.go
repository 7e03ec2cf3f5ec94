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

package coordinator

// State coordinator 客户端生命周期状态
//
//	Unregistered → Registered → Active → ShuttingDown
type State int32

const (
	// StateUnregistered 尚未注册成功
	StateUnregistered State = iota
	// StateRegistered 注册成功，已拿到分配的名称与模型路径
	StateRegistered
	// StateActive 心跳已启动
	StateActive
	// StateShuttingDown 正在关闭，所有循环应尽快退出
	StateShuttingDown
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "Unregistered"
	case StateRegistered:
		return "Registered"
	case StateActive:
		return "Active"
	case StateShuttingDown:
		return "ShuttingDown"
	default:
		return "Unknown"
	}
}
