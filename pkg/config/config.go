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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体（actor 与开发用 coordinator 共用）
type Config struct {
	Actor       ActorConfig       `mapstructure:"actor"`
	Learner     LearnerConfig     `mapstructure:"learner"`
	Adder       AdderConfig       `mapstructure:"adder"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch"`
	ModelSync   ModelSyncConfig   `mapstructure:"model_sync"`
	Stepdata    StepdataConfig    `mapstructure:"stepdata"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ActorConfig actor worker 自身配置
type ActorConfig struct {
	WorkerID         string `mapstructure:"worker_id"` // 空则按主机名生成
	Address          string `mapstructure:"address"`
	Port             int    `mapstructure:"port"`
	WorldSize        int    `mapstructure:"world_size"`
	Restore          bool   `mapstructure:"restore"`
	EnvNum           int    `mapstructure:"env_num"`            // 每个 job 并行环境数，<=0 默认 4
	EpisodeNum       int    `mapstructure:"episode_num"`        // 每个环境完成多少局后 job 结束，<=0 默认 1
	AgentNum         int    `mapstructure:"agent_num"`          // 模型交接单元数，需覆盖 job 中的 agent 数，<=0 默认 2
	Compressor       string `mapstructure:"compressor"`         // none | zlib | gzip
	Seed             int64  `mapstructure:"seed"`
	JobPollInterval  string `mapstructure:"job_poll_interval"`  // 无 job 时重试间隔，如 "2s"
	PolicyApplyEvery int    `mapstructure:"policy_apply_every"` // 策略每多少次前向检查一次模型更新，<=0 每次
}

// LearnerConfig 演示 learner 配置；与 actor 共用 actor.worker_id 等身份字段
type LearnerConfig struct {
	BatchSize int `mapstructure:"batch_size"` // 每次 get_data 的条数，<=0 默认 4
	SaveEvery int `mapstructure:"save_every"` // 每多少个 batch 发布一次模型，<=0 默认 1
}

// AdderConfig 窗口切分与优势计算配置；job 未携带时作为默认值
type AdderConfig struct {
	PushLength int     `mapstructure:"push_length"`
	UseGAE     bool    `mapstructure:"use_gae"`
	Gamma      float64 `mapstructure:"gamma"`
	Lambda     float64 `mapstructure:"lambda"`
}

// CoordinatorConfig coordinator 客户端配置
type CoordinatorConfig struct {
	URL               string  `mapstructure:"url"`
	Timeout           string  `mapstructure:"timeout"`            // 单次请求超时，如 "10s"
	RegisterBackoff   string  `mapstructure:"register_backoff"`   // 注册失败后固定等待，默认 10s
	HeartbeatInterval string  `mapstructure:"heartbeat_interval"` // 心跳间隔，默认 5s
	RetryInterval     string  `mapstructure:"retry_interval"`     // 固定重试间隔，默认 1s
	DataBackoffStep   string  `mapstructure:"data_backoff_step"`  // get_data 线性退避步长，默认 1s
	RequestQPS        float64 `mapstructure:"request_qps"`        // <=0 不限流
	Burst             int     `mapstructure:"burst"`
}

// DispatchConfig 发送队列配置
type DispatchConfig struct {
	QueueCapacity int    `mapstructure:"queue_capacity"` // <=0 默认 256
	Backpressure  string `mapstructure:"backpressure"`   // block | drop_oldest，默认 block
	PollTimeout   string `mapstructure:"poll_timeout"`   // 空队列等待上限，默认 1s
}

// ModelSyncConfig 模型同步配置
type ModelSyncConfig struct {
	Interval     string `mapstructure:"interval"`      // 拉取间隔，默认 30s
	CacheEntries int    `mapstructure:"cache_entries"` // 检查点缓存条数，<0 关闭，0 默认 8
	CacheTTL     string `mapstructure:"cache_ttl"`     // 检查点缓存过期时间，空则不过期
}

// StepdataConfig 轨迹数据与模型文件的数据面存储
type StepdataConfig struct {
	Type      string `mapstructure:"type"` // memory | file | redis | postgres
	Dir       string `mapstructure:"dir"`  // type=file
	Addr      string `mapstructure:"addr"` // type=redis
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       string `mapstructure:"ttl"` // redis 键过期时间，空则不过期
	DSN       string `mapstructure:"dsn"` // type=postgres
}

// ServerConfig 开发用 coordinator 服务配置
type ServerConfig struct {
	Host       string    `mapstructure:"host"`
	Port       int       `mapstructure:"port"`
	MaxPending int       `mapstructure:"max_pending"` // 每个 learner 排队的元数据上限，<=0 默认 4096
	Job        JobConfig `mapstructure:"job"`
}

// JobConfig coordinator 下发 job 的模板
type JobConfig struct {
	Agents        []string               `mapstructure:"agents"`
	LearnerIDs    []string               `mapstructure:"learner_ids"`
	PlayerIDs     []string               `mapstructure:"player_ids"`
	LaunchPlayer  string                 `mapstructure:"launch_player"`
	UpdateAgents  []int                  `mapstructure:"update_agents"`
	ForwardKwargs map[string]interface{} `mapstructure:"forward_kwargs"`
	Compressor    string                 `mapstructure:"compressor"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// LoadConfig 加载配置文件；环境变量按 "." → "_" 覆盖同名键
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("actor.env_num", 4)
	v.SetDefault("actor.episode_num", 1)
	v.SetDefault("actor.agent_num", 2)
	v.SetDefault("actor.world_size", 1)
	v.SetDefault("actor.compressor", "zlib")
	v.SetDefault("adder.push_length", 16)
	v.SetDefault("adder.gamma", 0.99)
	v.SetDefault("adder.lambda", 0.95)
	v.SetDefault("coordinator.url", "http://127.0.0.1:8090")
	v.SetDefault("dispatch.backpressure", BackpressureBlock)
	v.SetDefault("stepdata.type", "memory")
	v.SetDefault("server.port", 8090)
	v.SetDefault("learner.batch_size", 4)
	v.SetDefault("learner.save_every", 1)
}

// 队列背压策略
const (
	BackpressureBlock      = "block"
	BackpressureDropOldest = "drop_oldest"
)

// Validate 校验取值范围
func (c *Config) Validate() error {
	if c.Adder.PushLength < 0 {
		return fmt.Errorf("adder.push_length 不能为负: %d", c.Adder.PushLength)
	}
	if c.Adder.Gamma < 0 || c.Adder.Gamma > 1 {
		return fmt.Errorf("adder.gamma 超出 [0,1]: %v", c.Adder.Gamma)
	}
	if c.Adder.Lambda < 0 || c.Adder.Lambda > 1 {
		return fmt.Errorf("adder.lambda 超出 [0,1]: %v", c.Adder.Lambda)
	}
	switch c.Dispatch.Backpressure {
	case "", BackpressureBlock, BackpressureDropOldest:
	default:
		return fmt.Errorf("不支持的 dispatch.backpressure: %s", c.Dispatch.Backpressure)
	}
	return nil
}

// Duration 解析时长字符串，无效、空或非正时返回 defaultVal
func Duration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// LoadActorConfig 加载 Actor 配置（configs/actor.yaml）
func LoadActorConfig() (*Config, error) {
	return LoadConfig("configs/actor.yaml")
}

// LoadLearnerConfig 加载演示 learner 配置（configs/learner.yaml）
func LoadLearnerConfig() (*Config, error) {
	return LoadConfig("configs/learner.yaml")
}

// LoadCoordinatorConfig 加载开发用 coordinator 配置（configs/coordinator.yaml）
func LoadCoordinatorConfig() (*Config, error) {
	return LoadConfig("configs/coordinator.yaml")
}
