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
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rl-actor/internal/actor/trajectory"
	"rl-actor/internal/codec"
)

// LazyTrajectory get_data 返回的一条轨迹；数据在 Load 时才从存储读取
type LazyTrajectory struct {
	Metadata TrajectoryMetadata
	load     func(ctx context.Context) (trajectory.Window, error)
}

// NewLazyTrajectory 用自定义加载函数构造，便于 learner 侧替换数据来源
func NewLazyTrajectory(m TrajectoryMetadata, load func(ctx context.Context) (trajectory.Window, error)) LazyTrajectory {
	return LazyTrajectory{Metadata: m, load: load}
}

// Load 读取、删除并解压轨迹数据
func (t LazyTrajectory) Load(ctx context.Context) (trajectory.Window, error) {
	return t.load(ctx)
}

// GetData 拉取一批轨迹元数据；列表为空或请求失败时按 1s、2s、3s… 线性退避重试，仅在关停时返回 nil
func (c *Client) GetData(ctx context.Context, batchSize int) []LazyTrajectory {
	req := GetDataRequest{WorkerID: c.opts.WorkerID, BatchSize: batchSize}
	for attempt := 1; c.running(ctx); attempt++ {
		resp := c.send(ctx, APIGetData, req)
		if resp.OK() {
			var metas []TrajectoryMetadata
			if err := resp.Decode(&metas); err != nil {
				c.logger.Error("解析 get_data 响应失败", "error", err)
			} else if len(metas) > 0 {
				out := make([]LazyTrajectory, 0, len(metas))
				for _, m := range metas {
					out = append(out, c.lazy(m))
				}
				return out
			}
		}
		if !c.pause(ctx, time.Duration(attempt)*c.opts.DataBackoffStep) {
			break
		}
	}
	return nil
}

func (c *Client) lazy(m TrajectoryMetadata) LazyTrajectory {
	return NewLazyTrajectory(m, func(ctx context.Context) (trajectory.Window, error) {
		var w trajectory.Window
		raw, err := c.store.Get(ctx, m.TrajID)
		if err != nil {
			return w, fmt.Errorf("load trajectory %s: %w", m.TrajID, err)
		}
		if err := c.store.Delete(ctx, m.TrajID); err != nil {
			c.logger.Warn("删除已读取的轨迹数据失败", "traj_id", m.TrajID, "error", err)
		}
		cd, err := codec.Get(m.Compressor)
		if err != nil {
			return w, err
		}
		data, err := cd.Decompress(raw)
		if err != nil {
			return w, fmt.Errorf("decompress trajectory %s: %w", m.TrajID, err)
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return w, fmt.Errorf("decode trajectory %s: %w", m.TrajID, err)
		}
		w.Job = m.Job
		return w, nil
	})
}

// SendTrainInfo 上报训练信息，固定间隔重试直到成功。
// 返回 coordinator 要求重置到的检查点路径，无需重置时为 NoCheckpoint。
func (c *Client) SendTrainInfo(ctx context.Context, info interface{}) (string, bool) {
	req := TrainInfoRequest{TrainInfo: info, WorkerID: c.opts.WorkerID}
	for c.running(ctx) {
		resp := c.send(ctx, APISendTrainInfo, req)
		if resp.OK() {
			var path string
			if err := resp.Decode(&path); err != nil {
				c.logger.Warn("train_info 回复不是检查点路径，按无需重置处理", "info", string(resp.Info), "error", err)
				return NoCheckpoint, true
			}
			if path == "" {
				path = NoCheckpoint
			}
			return path, true
		}
		if !c.pause(ctx, c.opts.RetryInterval) {
			break
		}
	}
	return "", false
}

// LoadCheckpoint 按路径读取检查点参数
func (c *Client) LoadCheckpoint(ctx context.Context, path string) ([]byte, error) {
	return c.readModel(ctx, path)
}

// UpdateModelPath 上报新的模型路径，固定间隔重试直到成功
func (c *Client) UpdateModelPath(ctx context.Context, path string) bool {
	req := ModelPathRequest{WorkerID: c.opts.WorkerID, ModelPath: path}
	for c.running(ctx) {
		if c.send(ctx, APIModelPathUpdate, req).OK() {
			return true
		}
		if !c.pause(ctx, c.opts.RetryInterval) {
			break
		}
	}
	return false
}

// SendModel 保存检查点并上报路径；只保留最近 5 个检查点
func (c *Client) SendModel(ctx context.Context, params []byte) (string, error) {
	c.mu.Lock()
	iter := c.ckptIter
	c.ckptIter++
	prefix := c.modelPath
	c.mu.Unlock()
	if prefix == "" {
		prefix = "model/" + c.opts.WorkerID
	}
	path := fmt.Sprintf("%s/iteration_%d.ckpt", prefix, iter)
	if err := c.store.Put(ctx, path, params); err != nil {
		return "", fmt.Errorf("save checkpoint: %w", err)
	}
	if !c.UpdateModelPath(ctx, path) {
		return path, fmt.Errorf("update model path %s: %w", path, c.stopErr(ctx))
	}
	if old := iter - checkpointsKept; old >= 0 {
		stale := fmt.Sprintf("%s/iteration_%d.ckpt", prefix, old)
		if err := c.store.Delete(ctx, stale); err != nil {
			c.logger.Warn("删除旧检查点失败", "path", stale, "error", err)
		}
	}
	return path, nil
}
