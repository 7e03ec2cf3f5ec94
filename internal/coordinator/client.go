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

// Package coordinator 实现与远端 coordinator 的轮询式协议：注册、心跳、拉数据、模型/检查点上报。
// 所有网络调用在内部吞掉异常并返回失败哨兵，由各调用自己的重试策略处理，客户端本身从不因网络问题报错。
package coordinator

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"rl-actor/internal/storage/cache"
	"rl-actor/internal/storage/object"
	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
	"rl-actor/pkg/shutdown"
	"rl-actor/pkg/tracing"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultRegisterBackoff   = 10 * time.Second
	defaultHeartbeatInterval = 5 * time.Second
	defaultRetryInterval     = time.Second
	defaultDataBackoffStep   = time.Second
	heartbeatCheckTick       = time.Second
	checkpointsKept          = 5
)

// Options 客户端配置；零值字段使用默认
type Options struct {
	BaseURL   string
	WorkerID  string
	Address   string
	Port      int
	WorldSize int
	Restore   bool

	Timeout           time.Duration
	RegisterBackoff   time.Duration // 注册失败后固定等待
	HeartbeatInterval time.Duration
	RetryInterval     time.Duration // send_train_info / model_path_update / ask_for_job 固定重试间隔
	DataBackoffStep   time.Duration // get_data 线性退避步长：1x, 2x, 3x …

	RequestQPS float64 // <=0 不限流
	Burst      int

	ModelCache    cache.Store   // 按路径缓存检查点，nil 不缓存
	ModelCacheTTL time.Duration // <=0 不过期
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RegisterBackoff <= 0 {
		o.RegisterBackoff = defaultRegisterBackoff
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.DataBackoffStep <= 0 {
		o.DataBackoffStep = defaultDataBackoffStep
	}
	if o.WorldSize <= 0 {
		o.WorldSize = 1
	}
}

// Client coordinator 客户端；并发安全
type Client struct {
	http    *resty.Client
	opts    Options
	store   object.Store
	limiter *rate.Limiter
	flag    *shutdown.Flag
	logger  *log.Logger

	state        atomic.Int32
	mu           sync.RWMutex
	assignedName string
	modelPath    string
	ckptIter     int

	wg sync.WaitGroup
}

// NewClient 创建客户端；store 为数据面存储（读轨迹数据、读写模型文件）
func NewClient(opts Options, store object.Store, flag *shutdown.Flag, logger *log.Logger) *Client {
	opts.applyDefaults()
	if logger == nil {
		logger = log.Nop()
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json"),
		opts:   opts,
		store:  store,
		flag:   flag,
		logger: logger,
	}
	if opts.RequestQPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestQPS), burst)
	}
	return c
}

// State 当前状态
func (c *Client) State() State {
	return State(c.state.Load())
}

// WorkerID 客户端标识
func (c *Client) WorkerID() string {
	return c.opts.WorkerID
}

// AssignedName 注册时分配的名称
func (c *Client) AssignedName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.assignedName
}

// ModelPath 注册时返回的模型存储路径
func (c *Client) ModelPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelPath
}

// running 各重试循环的继续条件
func (c *Client) running(ctx context.Context) bool {
	return !c.flag.IsSet() && ctx.Err() == nil && c.State() != StateShuttingDown
}

// stopErr 循环结束的原因：ctx 取消优先返回 ctx 错误，否则为 ErrShutdown
func (c *Client) stopErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil && !c.flag.IsSet() {
		return err
	}
	return shutdown.ErrShutdown
}

// pause 睡眠 d；关停、ctx 取消时提前返回 false
func (c *Client) pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return c.running(ctx)
	case <-ctx.Done():
		return false
	case <-c.flag.Done():
		return false
	}
}

// send 发送一次请求并返回响应；transport 错误或非 2xx 返回 nil，code != 0 原样返回由调用方判断。
// 任何情况下都不返回 error。
func (c *Client) send(ctx context.Context, api string, body interface{}) *Response {
	start := time.Now()
	name := c.AssignedName()
	if name == "" {
		name = "none"
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Error("coordinator 请求限流等待失败", "api", api, "error", err)
			return nil
		}
	}
	ctx, span := tracing.StartCoordinatorSpan(ctx, api, c.opts.WorkerID)

	var out Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post(api)
	cost := time.Since(start)
	metrics.CoordinatorRequestDuration.WithLabelValues(api).Observe(cost.Seconds())
	if err == nil && resp.StatusCode() != http.StatusOK {
		err = &statusError{code: resp.StatusCode(), body: resp.String()}
	}
	if err != nil {
		metrics.CoordinatorFailTotal.WithLabelValues(api, "transport").Inc()
		c.logger.Error("coordinator 请求异常", "api", api, "name", name, "cost", cost.String(), "error", err)
		tracing.EndSpan(span, err)
		return nil
	}
	if out.Code != CodeOK {
		metrics.CoordinatorFailTotal.WithLabelValues(api, "rejected").Inc()
		c.logger.Error("coordinator 请求被拒绝", "api", api, "name", name, "code", out.Code, "cost", cost.String())
		tracing.EndSpan(span, nil)
		return &out
	}
	c.logger.Info("coordinator 请求成功", "api", api, "name", name, "cost", cost.String())
	tracing.EndSpan(span, nil)
	return &out
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return "unexpected status " + http.StatusText(e.code) + ": " + e.body
}
