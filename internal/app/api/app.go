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

package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"rl-actor/internal/actor/job"
	apihttp "rl-actor/internal/api/http"
	"rl-actor/internal/coordinator"
	"rl-actor/pkg/config"
	"rl-actor/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App 开发用 coordinator：内存 Hub + Hertz 路由
type App struct {
	config       *config.Config
	logger       *log.Logger
	hub          *coordinator.Hub
	router       *apihttp.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// JobTemplate 由 server.job 与 adder 配置组装 ask_for_job 下发的模板
func JobTemplate(cfg *config.Config) job.Job {
	j := cfg.Server.Job
	return job.Job{
		Agents:        j.Agents,
		LearnerIDs:    j.LearnerIDs,
		PlayerIDs:     j.PlayerIDs,
		LaunchPlayer:  j.LaunchPlayer,
		ForwardKwargs: j.ForwardKwargs,
		UpdateAgents:  j.UpdateAgents,
		Adder: job.AdderSettings{
			PushLength: cfg.Adder.PushLength,
			UseGAE:     cfg.Adder.UseGAE,
			Gamma:      cfg.Adder.Gamma,
			Lambda:     cfg.Adder.Lambda,
		},
		Compressor: j.Compressor,
	}.Clone()
}

// NewApp 创建 coordinator 应用
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	template := JobTemplate(cfg)
	if len(template.Agents) == 0 {
		return nil, fmt.Errorf("server.job.agents 不能为空")
	}
	hub := coordinator.NewHub(template, cfg.Server.MaxPending)
	handler := apihttp.NewHandler(hub, logger.Component("handler"))
	return &App{
		config: cfg,
		logger: logger,
		hub:    hub,
		router: apihttp.NewRouter(handler, logger.Component("http")),
	}, nil
}

// Hub 内存状态，测试与调试用
func (a *App) Hub() *coordinator.Hub {
	return a.hub
}

// Addr 监听地址
func (a *App) Addr() string {
	return fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
}

func (a *App) hertzLogger() (*hertzslog.Logger, error) {
	var output io.Writer = os.Stdout
	if a.config.Log.File != "" {
		f, err := os.OpenFile(a.config.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(a.config.Log.Level))
	return hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	), nil
}

// Run 启动 HTTP 服务，阻塞直到服务退出
func (a *App) Run() error {
	addr := a.Addr()
	a.logger.Info("coordinator 服务启动", "addr", addr, "agents", a.config.Server.Job.Agents)

	// 使用 Hertz slog 扩展，与日志配置对齐
	hl, err := a.hertzLogger()
	if err != nil {
		return err
	}
	hlog.SetLogger(hl)

	// 可选：启用链路追踪（OpenTelemetry）
	t := a.config.Monitoring.Tracing
	endpoint := t.ExportEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if t.Enable && endpoint != "" {
		serviceName := t.ServiceName
		if serviceName == "" {
			serviceName = "rl-coordinator"
		}
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(endpoint),
		}
		if t.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, cfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracerOpt)
		a.hertz.Use(hertztracing.ServerMiddleware(cfg))
		a.logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", endpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	a.logger.Info("coordinator 已关闭", "stats", a.hub.Stats().String())
	return nil
}
