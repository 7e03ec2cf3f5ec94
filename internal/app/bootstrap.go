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

package app

import (
	"context"
	"fmt"
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"rl-actor/internal/coordinator"
	"rl-actor/internal/storage/cache"
	"rl-actor/internal/storage/object"
	"rl-actor/pkg/config"
	"rl-actor/pkg/log"
	"rl-actor/pkg/shutdown"
	"rl-actor/pkg/tracing"
)

// Bootstrap 统一初始化：供 actor、learner 与 coordinator 复用，避免在 cmd 内写装配逻辑
type Bootstrap struct {
	Config *config.Config
	Logger *log.Logger
	Flag   *shutdown.Flag
	Store  object.Store
	tracer *sdktrace.TracerProvider
}

// NewBootstrap 根据配置创建日志、关停标志、数据面存储与（可选）tracer
func NewBootstrap(ctx context.Context, cfg *config.Config, serviceName string) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	store, err := object.NewStore(ctx, cfg.Stepdata)
	if err != nil {
		return nil, fmt.Errorf("初始化数据存储失败: %w", err)
	}
	b := &Bootstrap{
		Config: cfg,
		Logger: logger,
		Flag:   shutdown.New(),
		Store:  store,
	}
	if t := cfg.Monitoring.Tracing; t.Enable {
		name := t.ServiceName
		if name == "" {
			name = serviceName
		}
		endpoint := t.ExportEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint != "" {
			tp, err := tracing.InitTracer(tracing.OTelConfig{ServiceName: name, ExportEndpoint: endpoint, Insecure: t.Insecure})
			if err != nil {
				logger.Warn("初始化链路追踪失败，继续运行", "error", err)
			} else {
				b.tracer = tp
				logger.Info("链路追踪已启用", "service_name", name, "endpoint", endpoint)
			}
		}
	}
	logger.Info("bootstrap 完成", "service", serviceName, "stepdata", cfg.Stepdata.Type)
	return b, nil
}

// WorkerID 配置的 worker_id；为空时取 WORKER_ID 环境变量或主机名
func (b *Bootstrap) WorkerID(role string) string {
	if id := b.Config.Actor.WorkerID; id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%d", role, host, os.Getpid())
}

// CoordinatorClient 按配置创建 coordinator 客户端
func (b *Bootstrap) CoordinatorClient(workerID string) *coordinator.Client {
	c := b.Config.Coordinator
	a := b.Config.Actor
	ms := b.Config.ModelSync
	var modelCache cache.Store
	if ms.CacheEntries >= 0 {
		modelCache = cache.NewMemoryStore(ms.CacheEntries)
	}
	return coordinator.NewClient(coordinator.Options{
		BaseURL:           c.URL,
		WorkerID:          workerID,
		Address:           a.Address,
		Port:              a.Port,
		WorldSize:         a.WorldSize,
		Restore:           a.Restore,
		Timeout:           config.Duration(c.Timeout, 10*time.Second),
		RegisterBackoff:   config.Duration(c.RegisterBackoff, 10*time.Second),
		HeartbeatInterval: config.Duration(c.HeartbeatInterval, 5*time.Second),
		RetryInterval:     config.Duration(c.RetryInterval, time.Second),
		DataBackoffStep:   config.Duration(c.DataBackoffStep, time.Second),
		RequestQPS:        c.RequestQPS,
		Burst:             c.Burst,
		ModelCache:        modelCache,
		ModelCacheTTL:     config.Duration(ms.CacheTTL, 0),
	}, b.Store, b.Flag, b.Logger.Component("coordinator"))
}

// Close 关闭存储与 tracer
func (b *Bootstrap) Close(ctx context.Context) {
	if b.tracer != nil {
		if err := b.tracer.Shutdown(ctx); err != nil {
			b.Logger.Warn("关闭 tracer 失败", "error", err)
		}
	}
	if err := b.Store.Close(); err != nil {
		b.Logger.Error("关闭数据存储失败", "error", err)
	}
}
