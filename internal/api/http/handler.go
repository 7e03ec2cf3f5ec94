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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"rl-actor/internal/coordinator"
	"rl-actor/pkg/errors"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
)

// Handler 开发 coordinator 的 HTTP 处理器；业务错误统一以 200 + {code, info} 返回
type Handler struct {
	hub    *coordinator.Hub
	logger *log.Logger
}

// NewHandler 创建处理器
func NewHandler(hub *coordinator.Hub, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{hub: hub, logger: logger}
}

func codeOf(err error) int {
	switch {
	case err == nil:
		return coordinator.CodeOK
	case errors.Is(err, errors.ErrInvalidArg):
		return coordinator.CodeBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return coordinator.CodeUnknownWorker
	default:
		return coordinator.CodeInternal
	}
}

func (h *Handler) reply(ctx *app.RequestContext, info interface{}, err error) {
	if err != nil {
		h.logger.Warn("coordinator 请求被拒绝", "path", string(ctx.Path()), "error", err)
		ctx.JSON(consts.StatusOK, map[string]interface{}{"code": codeOf(err), "info": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{"code": coordinator.CodeOK, "info": info})
}

func (h *Handler) bind(ctx *app.RequestContext, v interface{}) bool {
	if err := ctx.BindJSON(v); err != nil {
		h.reply(ctx, nil, errors.Wrapf(errors.ErrInvalidArg, "decode body: %v", err))
		return false
	}
	return true
}

// RegisterWorker POST /coordinator/register_worker
func (h *Handler) RegisterWorker(c context.Context, ctx *app.RequestContext) {
	var req coordinator.RegisterRequest
	if !h.bind(ctx, &req) {
		return
	}
	info, err := h.hub.Register(req)
	if err == nil {
		h.logger.Info("worker 注册", "worker_id", req.WorkerID, "address", req.Address, "port", req.Port)
	}
	h.reply(ctx, info, err)
}

// Heartbeat POST /coordinator/get_heartbeats
func (h *Handler) Heartbeat(c context.Context, ctx *app.RequestContext) {
	var req coordinator.WorkerRequest
	if !h.bind(ctx, &req) {
		return
	}
	h.reply(ctx, nil, h.hub.Heartbeat(req.WorkerID))
}

// GetData POST /coordinator/get_data；不足 batch_size 时 info 为 null
func (h *Handler) GetData(c context.Context, ctx *app.RequestContext) {
	var req coordinator.GetDataRequest
	if !h.bind(ctx, &req) {
		return
	}
	metas, err := h.hub.PopData(req.WorkerID, req.BatchSize)
	h.reply(ctx, metas, err)
}

// SendTrainInfo POST /coordinator/send_train_info
func (h *Handler) SendTrainInfo(c context.Context, ctx *app.RequestContext) {
	var req struct {
		TrainInfo json.RawMessage `json:"train_info"`
		WorkerID  string          `json:"worker_id"`
	}
	if !h.bind(ctx, &req) {
		return
	}
	path, err := h.hub.RecordTrainInfo(req.WorkerID, req.TrainInfo)
	if err == nil && path != coordinator.NoCheckpoint {
		h.logger.Info("下发检查点重置", "worker_id", req.WorkerID, "model_path", path)
	}
	h.reply(ctx, path, err)
}

// ModelPathUpdate POST /coordinator/model_path_update
func (h *Handler) ModelPathUpdate(c context.Context, ctx *app.RequestContext) {
	var req coordinator.ModelPathRequest
	if !h.bind(ctx, &req) {
		return
	}
	err := h.hub.UpdateModelPath(req.WorkerID, req.ModelPath)
	if err == nil {
		h.logger.Info("模型路径更新", "worker_id", req.WorkerID, "model_path", req.ModelPath)
	}
	h.reply(ctx, nil, err)
}

// AskForJob POST /coordinator/ask_for_job
func (h *Handler) AskForJob(c context.Context, ctx *app.RequestContext) {
	var req coordinator.WorkerRequest
	if !h.bind(ctx, &req) {
		return
	}
	j, err := h.hub.AskForJob(req.WorkerID)
	if err == nil {
		h.logger.Info("下发 job", "worker_id", req.WorkerID, "job_id", j.JobID)
	}
	h.reply(ctx, j, err)
}

// AgentUpdate POST /coordinator/get_agent_update
func (h *Handler) AgentUpdate(c context.Context, ctx *app.RequestContext) {
	var req coordinator.AgentUpdateRequest
	if !h.bind(ctx, &req) {
		return
	}
	h.reply(ctx, h.hub.AgentUpdate(req.LearnerUID), nil)
}

// SendTrajMetadata POST /coordinator/send_traj_metadata
func (h *Handler) SendTrajMetadata(c context.Context, ctx *app.RequestContext) {
	var req coordinator.TrajectoryMetadata
	if !h.bind(ctx, &req) {
		return
	}
	h.reply(ctx, nil, h.hub.PushMetadata(req))
}

// SendResult POST /coordinator/send_result
func (h *Handler) SendResult(c context.Context, ctx *app.RequestContext) {
	var req coordinator.ResultInfo
	if !h.bind(ctx, &req) {
		return
	}
	h.reply(ctx, nil, h.hub.PushResult(req))
}

// HealthCheck GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "coordinator",
	})
}

// Stats GET /api/stats
func (h *Handler) Stats(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.hub.Stats())
}

// Workers GET /api/workers
func (h *Handler) Workers(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{"workers": h.hub.Workers()})
}

// ResetCheckpoint POST /api/workers/reset，learner 下一次上报 train_info 时回退到 model_path
func (h *Handler) ResetCheckpoint(c context.Context, ctx *app.RequestContext) {
	var req coordinator.ModelPathRequest
	if !h.bind(ctx, &req) {
		return
	}
	err := h.hub.RequestReset(req.WorkerID, req.ModelPath)
	if err == nil {
		h.logger.Info("登记检查点重置", "worker_id", req.WorkerID, "model_path", req.ModelPath)
	}
	h.reply(ctx, nil, err)
}

// Metrics GET /metrics，Prometheus 文本格式
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	MetricsHandler(c, ctx)
}

// MetricsHandler 不依赖 Hub 的 /metrics 处理函数，actor 侧复用
func MetricsHandler(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.String(consts.StatusInternalServerError, err.Error())
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
