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
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"rl-actor/internal/api/http/middleware"
	"rl-actor/internal/coordinator"
	"rl-actor/pkg/log"
)

// Router 开发 coordinator 路由
type Router struct {
	handler *Handler
	logger  *log.Logger
}

// NewRouter 创建路由
func NewRouter(handler *Handler, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Nop()
	}
	return &Router{handler: handler, logger: logger}
}

// Build 创建 Hertz 实例并注册全部路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	h.Use(middleware.AccessLog(r.logger))

	h.GET("/api/health", r.handler.HealthCheck)
	h.GET("/api/stats", r.handler.Stats)
	h.GET("/api/workers", r.handler.Workers)
	h.POST("/api/workers/reset", r.handler.ResetCheckpoint)
	h.GET("/metrics", r.handler.Metrics)

	h.POST("/"+coordinator.APIRegisterWorker, r.handler.RegisterWorker)
	h.POST("/"+coordinator.APIHeartbeats, r.handler.Heartbeat)
	h.POST("/"+coordinator.APIGetData, r.handler.GetData)
	h.POST("/"+coordinator.APISendTrainInfo, r.handler.SendTrainInfo)
	h.POST("/"+coordinator.APIModelPathUpdate, r.handler.ModelPathUpdate)
	h.POST("/"+coordinator.APIAskForJob, r.handler.AskForJob)
	h.POST("/"+coordinator.APIGetAgentUpdate, r.handler.AgentUpdate)
	h.POST("/"+coordinator.APISendTrajMetadata, r.handler.SendTrajMetadata)
	h.POST("/"+coordinator.APISendResult, r.handler.SendResult)
	return h
}

// BuildMetrics 仅暴露 /metrics 与健康检查，actor 进程使用
func BuildMetrics(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	h.GET("/metrics", MetricsHandler)
	return h
}
