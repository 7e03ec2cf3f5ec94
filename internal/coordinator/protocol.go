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

import (
	"encoding/json"
	"errors"

	"rl-actor/internal/actor/job"
)

// coordinator 接口路径
const (
	APIRegisterWorker   = "coordinator/register_worker"
	APIHeartbeats       = "coordinator/get_heartbeats"
	APIGetData          = "coordinator/get_data"
	APISendTrainInfo    = "coordinator/send_train_info"
	APIModelPathUpdate  = "coordinator/model_path_update"
	APIAskForJob        = "coordinator/ask_for_job"
	APIGetAgentUpdate   = "coordinator/get_agent_update"
	APISendTrajMetadata = "coordinator/send_traj_metadata"
	APISendResult       = "coordinator/send_result"
)

// 响应码：CodeOK 成功，其余均视为拒绝
const (
	CodeOK            = 0
	CodeBadRequest    = 1
	CodeUnknownWorker = 2
	CodeInternal      = 3
)

// NoCheckpoint send_train_info 无需重置时的回复
const NoCheckpoint = "none"

// Response coordinator 统一响应 {code, info}
type Response struct {
	Code int             `json:"code"`
	Info json.RawMessage `json:"info"`
}

// OK nil 安全的成功判断
func (r *Response) OK() bool {
	return r != nil && r.Code == CodeOK
}

// Decode 将 info 解码到 v；info 为 null 时 v 保持零值
func (r *Response) Decode(v interface{}) error {
	if r == nil {
		return errors.New("nil response")
	}
	if len(r.Info) == 0 {
		return nil
	}
	return json.Unmarshal(r.Info, v)
}

// RegisterRequest register_worker 请求
type RegisterRequest struct {
	WorkerID  string `json:"worker_id"`
	Address   string `json:"address"`
	Port      int    `json:"port"`
	WorldSize int    `json:"world_size"`
	Restore   bool   `json:"restore_flag"`
}

// RegisterInfo register_worker 成功时的 info
type RegisterInfo struct {
	AssignedName string `json:"assigned_name"`
	ModelPath    string `json:"model_path"`
}

// WorkerRequest 仅携带 worker_id 的请求（心跳、ask_for_job）
type WorkerRequest struct {
	WorkerID string `json:"worker_id"`
}

// GetDataRequest get_data 请求
type GetDataRequest struct {
	WorkerID  string `json:"worker_id"`
	BatchSize int    `json:"batch_size"`
}

// TrainInfoRequest send_train_info 请求
type TrainInfoRequest struct {
	TrainInfo interface{} `json:"train_info"`
	WorkerID  string      `json:"worker_id"`
}

// ModelPathRequest model_path_update 请求
type ModelPathRequest struct {
	WorkerID  string `json:"worker_id"`
	ModelPath string `json:"model_path"`
}

// AgentUpdateRequest get_agent_update 请求
type AgentUpdateRequest struct {
	WorkerID   string `json:"worker_id"`
	LearnerUID string `json:"learner_uid"`
}

// AgentUpdateInfo get_agent_update 成功时的 info
type AgentUpdateInfo struct {
	ModelPath string `json:"model_path"`
}

// TrajectoryMetadata 与压缩数据分开发送的轨迹元数据；coordinator 据此路由，不读数据本身
type TrajectoryMetadata struct {
	TrajID         string  `json:"traj_id"`
	LearnerUID     string  `json:"learner_uid"`
	LaunchPlayer   string  `json:"launch_player"`
	EnvID          int     `json:"env_id"`
	AgentID        int     `json:"agent_id"`
	ActorUID       string  `json:"actor_uid"`
	Done           bool    `json:"done"`
	Priority       float64 `json:"priority"`
	TrajFinishTime float64 `json:"traj_finish_time"`
	JobID          string  `json:"job_id"`
	DataPushLength int     `json:"data_push_length"`
	Compressor     string  `json:"compressor"`
	Job            job.Job `json:"job"`
}

// ResultInfo send_result 请求
type ResultInfo struct {
	JobID        string      `json:"job_id"`
	ActorUID     string      `json:"actor_uid"`
	PlayerID     []string    `json:"player_id"`
	LaunchPlayer string      `json:"launch_player"`
	EnvID        int         `json:"env_id"`
	Result       interface{} `json:"result"`
	Dists        interface{} `json:"dists"`
	UnitsNum     interface{} `json:"units_num"`
}
