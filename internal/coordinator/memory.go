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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rl-actor/internal/actor/job"
	"rl-actor/pkg/errors"
)

const (
	defaultMaxPending = 4096
	maxResultsKept    = 1024
)

// WorkerInfo 已注册的 worker
type WorkerInfo struct {
	WorkerID      string    `json:"worker_id"`
	Address       string    `json:"address"`
	Port          int       `json:"port"`
	WorldSize     int       `json:"world_size"`
	AssignedName  string    `json:"assigned_name"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// HubStats 内存 coordinator 的快照统计
type HubStats struct {
	Workers      int            `json:"workers"`
	Pending      map[string]int `json:"pending"`
	Results      int            `json:"results"`
	JobsAssigned int            `json:"jobs_assigned"`
	TrainInfos   int            `json:"train_infos"`
	Evicted      int            `json:"evicted"`
}

// Hub 开发用的内存 coordinator：登记 worker、按 learner 排队轨迹元数据、记录模型路径与结果。
// 单进程内使用，重启即丢失。
type Hub struct {
	mu         sync.Mutex
	template   job.Job
	maxPending int
	workers    map[string]*WorkerInfo
	pending    map[string][]TrajectoryMetadata // learner_uid -> FIFO
	modelPaths map[string]string               // learner_uid -> 最新模型
	trainInfos map[string]json.RawMessage
	resets     map[string]string // worker_id -> 待下发的重置检查点
	results    []ResultInfo
	jobs       int
	evicted    int
}

// NewHub 创建内存 coordinator；template 为 ask_for_job 下发的 job 模板，maxPending<=0 时默认 4096
func NewHub(template job.Job, maxPending int) *Hub {
	if maxPending <= 0 {
		maxPending = defaultMaxPending
	}
	return &Hub{
		template:   template.Clone(),
		maxPending: maxPending,
		workers:    make(map[string]*WorkerInfo),
		pending:    make(map[string][]TrajectoryMetadata),
		modelPaths: make(map[string]string),
		trainInfos: make(map[string]json.RawMessage),
		resets:     make(map[string]string),
	}
}

// Register 登记 worker；重复注册刷新地址并返回相同名称
func (h *Hub) Register(req RegisterRequest) (RegisterInfo, error) {
	if req.WorkerID == "" {
		return RegisterInfo{}, errors.Wrap(errors.ErrInvalidArg, "worker_id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	w, ok := h.workers[req.WorkerID]
	if !ok {
		w = &WorkerInfo{WorkerID: req.WorkerID, AssignedName: req.WorkerID, RegisteredAt: now}
		h.workers[req.WorkerID] = w
	}
	w.Address, w.Port, w.WorldSize = req.Address, req.Port, req.WorldSize
	w.LastHeartbeat = now
	return RegisterInfo{AssignedName: w.AssignedName, ModelPath: "model/" + w.AssignedName}, nil
}

// Heartbeat 刷新心跳时间
func (h *Hub) Heartbeat(workerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.worker(workerID)
	if err != nil {
		return err
	}
	w.LastHeartbeat = time.Now()
	return nil
}

func (h *Hub) worker(workerID string) (*WorkerInfo, error) {
	w, ok := h.workers[workerID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "worker %s", workerID)
	}
	return w, nil
}

// AskForJob 基于模板为 worker 生成新 job
func (h *Hub) AskForJob(workerID string) (job.Job, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.worker(workerID); err != nil {
		return job.Job{}, err
	}
	j := h.template.Clone()
	j.JobID = uuid.NewString()
	h.jobs++
	return j, nil
}

// PushMetadata 轨迹元数据入队；超过上限时丢弃最旧的一条
func (h *Hub) PushMetadata(meta TrajectoryMetadata) error {
	if meta.TrajID == "" {
		return errors.Wrap(errors.ErrInvalidArg, "traj_id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	q := append(h.pending[meta.LearnerUID], meta)
	if len(q) > h.maxPending {
		q = q[len(q)-h.maxPending:]
		h.evicted++
	}
	h.pending[meta.LearnerUID] = q
	return nil
}

// PopData 取出该 learner 排队的 batchSize 条元数据；不足 batchSize 时返回 nil
func (h *Hub) PopData(workerID string, batchSize int) ([]TrajectoryMetadata, error) {
	if batchSize <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidArg, "batch_size %d", batchSize)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.worker(workerID)
	if err != nil {
		return nil, err
	}
	q := h.pending[w.AssignedName]
	if len(q) < batchSize {
		return nil, nil
	}
	out := append([]TrajectoryMetadata(nil), q[:batchSize]...)
	h.pending[w.AssignedName] = q[batchSize:]
	return out, nil
}

// RecordTrainInfo 记录 learner 最近一次训练信息。
// 有待下发的重置检查点时返回其路径（只下发一次），否则返回 NoCheckpoint。
func (h *Hub) RecordTrainInfo(workerID string, info json.RawMessage) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.worker(workerID); err != nil {
		return "", err
	}
	h.trainInfos[workerID] = info
	if path, ok := h.resets[workerID]; ok {
		delete(h.resets, workerID)
		return path, nil
	}
	return NoCheckpoint, nil
}

// RequestReset 要求 learner 在下一次 send_train_info 时回退到 path
func (h *Hub) RequestReset(workerID, path string) error {
	if path == "" || path == NoCheckpoint {
		return errors.Wrap(errors.ErrInvalidArg, "checkpoint path is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.worker(workerID); err != nil {
		return err
	}
	h.resets[workerID] = path
	return nil
}

// UpdateModelPath 记录 learner 的最新模型路径
func (h *Hub) UpdateModelPath(workerID, path string) error {
	if path == "" {
		return errors.Wrap(errors.ErrInvalidArg, "model_path is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.worker(workerID)
	if err != nil {
		return err
	}
	h.modelPaths[w.AssignedName] = path
	return nil
}

// AgentUpdate 查询 learner 的最新模型路径；尚未发布时 model_path 为空
func (h *Hub) AgentUpdate(learnerUID string) AgentUpdateInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return AgentUpdateInfo{ModelPath: h.modelPaths[learnerUID]}
}

// PushResult 记录一局结果，只保留最近的若干条
func (h *Hub) PushResult(r ResultInfo) error {
	if r.JobID == "" {
		return errors.Wrap(errors.ErrInvalidArg, "job_id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
	if len(h.results) > maxResultsKept {
		h.results = h.results[len(h.results)-maxResultsKept:]
	}
	return nil
}

// Results 最近的结果副本
func (h *Hub) Results() []ResultInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ResultInfo(nil), h.results...)
}

// Workers 已注册 worker 的副本，按 worker_id 排序
func (h *Hub) Workers() []WorkerInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]WorkerInfo, 0, len(h.workers))
	for _, w := range h.workers {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out
}

// Stats 统计快照
func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	pending := make(map[string]int, len(h.pending))
	for k, q := range h.pending {
		pending[k] = len(q)
	}
	return HubStats{
		Workers:      len(h.workers),
		Pending:      pending,
		Results:      len(h.results),
		JobsAssigned: h.jobs,
		TrainInfos:   len(h.trainInfos),
		Evicted:      h.evicted,
	}
}

// String 便于日志输出
func (s HubStats) String() string {
	return fmt.Sprintf("workers=%d results=%d jobs=%d pending=%v", s.Workers, s.Results, s.JobsAssigned, s.Pending)
}
