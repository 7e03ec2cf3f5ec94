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
	"time"

	"rl-actor/pkg/shutdown"
)

// Register 向 coordinator 注册，失败后按固定退避无限重试，直到成功或关停。
// 已注册时直接返回 nil。
func (c *Client) Register(ctx context.Context) error {
	if c.State() != StateUnregistered {
		if c.State() == StateShuttingDown {
			return shutdown.ErrShutdown
		}
		return nil
	}
	req := RegisterRequest{
		WorkerID:  c.opts.WorkerID,
		Address:   c.opts.Address,
		Port:      c.opts.Port,
		WorldSize: c.opts.WorldSize,
		Restore:   c.opts.Restore,
	}
	for c.running(ctx) {
		resp := c.send(ctx, APIRegisterWorker, req)
		if resp.OK() {
			var info RegisterInfo
			if err := resp.Decode(&info); err != nil {
				c.logger.Error("解析注册响应失败", "error", err)
			} else {
				c.mu.Lock()
				c.assignedName = info.AssignedName
				c.modelPath = info.ModelPath
				c.mu.Unlock()
				if !c.state.CompareAndSwap(int32(StateUnregistered), int32(StateRegistered)) {
					if c.State() == StateShuttingDown {
						return shutdown.ErrShutdown
					}
					return nil
				}
				c.logger.Info("注册成功", "assigned_name", info.AssignedName, "model_path", info.ModelPath)
				return nil
			}
		}
		c.logger.Warn("注册失败，稍后重试", "backoff", c.opts.RegisterBackoff.String())
		if !c.pause(ctx, c.opts.RegisterBackoff) {
			break
		}
	}
	return c.stopErr(ctx)
}

// StartHeartbeat 进入 Active 并启动心跳 goroutine；须在 Register 成功后调用
func (c *Client) StartHeartbeat(ctx context.Context) bool {
	if !c.state.CompareAndSwap(int32(StateRegistered), int32(StateActive)) {
		c.logger.Warn("心跳未启动", "state", c.State().String())
		return false
	}
	c.wg.Add(1)
	go c.heartbeatLoop(ctx)
	return true
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()
	req := WorkerRequest{WorkerID: c.opts.WorkerID}
	ticker := time.NewTicker(heartbeatTick(c.opts.HeartbeatInterval))
	defer ticker.Stop()
	last := time.Time{}
	for {
		if !c.running(ctx) {
			c.logger.Info("心跳退出")
			return
		}
		if time.Since(last) >= c.opts.HeartbeatInterval {
			c.send(ctx, APIHeartbeats, req)
			last = time.Now()
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
		case <-c.flag.Done():
		}
	}
}

func heartbeatTick(interval time.Duration) time.Duration {
	if interval < heartbeatCheckTick {
		return interval
	}
	return heartbeatCheckTick
}

// Close 进入 ShuttingDown 并等待心跳退出；可重复调用
func (c *Client) Close() {
	prev := State(c.state.Swap(int32(StateShuttingDown)))
	if prev != StateShuttingDown {
		c.logger.Info("coordinator 客户端关闭", "prev_state", prev.String())
	}
	c.wg.Wait()
}
