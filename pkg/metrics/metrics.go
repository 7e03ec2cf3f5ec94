package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 Actor/Coordinator 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		WindowsEmitted, TrajectoriesSent, SendFailTotal, SendDuration,
		QueueDropped, QueueDepth, ResultsSent,
		ModelUpdatesFetched, CoordinatorRequestDuration, CoordinatorFailTotal,
		EnvSteps, CoordinatorServed, CoordinatorServeDuration,
	)
}

// WindowsEmitted 产出的轨迹窗口数（按路径）
var WindowsEmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "actor_windows_emitted_total",
		Help: "产出的轨迹窗口数",
	},
	[]string{"path"}, // regular | final
)

// TrajectoriesSent 发送完成的轨迹数
var TrajectoriesSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "actor_trajectories_sent_total",
		Help: "发送完成的轨迹数",
	},
	[]string{"worker_id"},
)

// SendFailTotal 数据面/元数据/结果发送失败次数
var SendFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "actor_send_fail_total",
		Help: "发送失败次数",
	},
	[]string{"kind"}, // encode | payload | metadata | result
)

// SendDuration 单条发送耗时（秒）
var SendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "actor_send_duration_seconds",
		Help:    "单条发送耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// QueueDropped drop_oldest 策略下被丢弃的队列元素数
var QueueDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "actor_queue_dropped_total",
		Help: "队列满时被丢弃的最旧元素数",
	},
	[]string{"queue"},
)

// QueueDepth 当前队列长度
var QueueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "actor_queue_depth",
		Help: "当前队列长度",
	},
	[]string{"queue"},
)

// ResultsSent 发送完成的对局结果数
var ResultsSent = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "actor_results_sent_total",
		Help: "发送完成的对局结果数",
	},
)

// ModelUpdatesFetched 拉取到的模型更新数（按 agent 槽位）
var ModelUpdatesFetched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "actor_model_updates_fetched_total",
		Help: "拉取到的模型更新数",
	},
	[]string{"agent"},
)

// CoordinatorRequestDuration coordinator 请求耗时（秒）
var CoordinatorRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "actor_coordinator_request_duration_seconds",
		Help:    "coordinator 请求耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"api"},
)

// CoordinatorFailTotal coordinator 请求失败数（transport 或 code != 0）
var CoordinatorFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "actor_coordinator_fail_total",
		Help: "coordinator 请求失败数",
	},
	[]string{"api", "reason"}, // transport | rejected
)

// EnvSteps 主循环推进的环境步数
var EnvSteps = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "actor_env_steps_total",
		Help: "主循环推进的环境步数",
	},
)

// CoordinatorServed 开发 coordinator 处理的请求数（按接口与响应码）
var CoordinatorServed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coordinator_requests_total",
		Help: "coordinator 处理的请求数",
	},
	[]string{"api", "status"},
)

// CoordinatorServeDuration 开发 coordinator 请求处理耗时（秒）
var CoordinatorServeDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "coordinator_request_duration_seconds",
		Help:    "coordinator 请求处理耗时",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"api"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
