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
	"fmt"

	"rl-actor/internal/actor/job"
	"rl-actor/internal/modelsync"
)

// AskForJob 向 coordinator 申请 job，固定间隔重试直到拿到非空 job 或关停
func (c *Client) AskForJob(ctx context.Context) (job.Job, error) {
	req := WorkerRequest{WorkerID: c.opts.WorkerID}
	for c.running(ctx) {
		resp := c.send(ctx, APIAskForJob, req)
		if resp.OK() {
			var j job.Job
			if err := resp.Decode(&j); err != nil {
				c.logger.Error("解析 job 失败", "error", err)
			} else if j.JobID != "" {
				return j, nil
			}
		}
		if !c.pause(ctx, c.opts.RetryInterval) {
			break
		}
	}
	return job.Job{}, c.stopErr(ctx)
}

// FetchModel 查询 learner 的最新模型路径并从存储读取参数。
// 远端失败按固定间隔重试；存储读取失败原样返回，learner 尚未发布模型时返回 modelsync.ErrNoModel。
func (c *Client) FetchModel(ctx context.Context, learnerID string) (modelsync.Update, error) {
	req := AgentUpdateRequest{WorkerID: c.opts.WorkerID, LearnerUID: learnerID}
	for c.running(ctx) {
		resp := c.send(ctx, APIGetAgentUpdate, req)
		if resp.OK() {
			var info AgentUpdateInfo
			if err := resp.Decode(&info); err != nil {
				c.logger.Error("解析 agent 更新失败", "learner", learnerID, "error", err)
			} else {
				if info.ModelPath == "" {
					return modelsync.Update{}, modelsync.ErrNoModel
				}
				params, err := c.readModel(ctx, info.ModelPath)
				if err != nil {
					return modelsync.Update{}, err
				}
				return modelsync.Update{Params: params, Path: info.ModelPath}, nil
			}
		}
		if !c.pause(ctx, c.opts.RetryInterval) {
			break
		}
	}
	return modelsync.Update{}, c.stopErr(ctx)
}

// readModel 检查点路径带迭代号、写入后不变，可按路径缓存
func (c *Client) readModel(ctx context.Context, path string) ([]byte, error) {
	mc := c.opts.ModelCache
	if mc != nil {
		if params, err := mc.Get(ctx, path); err == nil {
			return params, nil
		}
	}
	params, err := c.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	if mc != nil {
		if err := mc.Set(ctx, path, params, c.opts.ModelCacheTTL); err != nil {
			c.logger.Warn("缓存检查点失败", "path", path, "error", err)
		}
	}
	return params, nil
}

// SendMetadata 上报一条轨迹元数据；不重试
func (c *Client) SendMetadata(ctx context.Context, meta TrajectoryMetadata) bool {
	return c.send(ctx, APISendTrajMetadata, meta).OK()
}

// SendResult 上报一局结果；不重试
func (c *Client) SendResult(ctx context.Context, result ResultInfo) bool {
	return c.send(ctx, APISendResult, result).OK()
}
