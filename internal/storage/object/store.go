package object

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rl-actor/pkg/config"
)

// NewStore 根据配置创建数据面存储：memory | file | redis | postgres
func NewStore(ctx context.Context, cfg config.StepdataConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Dir)
	case "redis":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("stepdata.type=redis 时 addr 必填")
		}
		return NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}, cfg.KeyPrefix, config.Duration(cfg.TTL, 0))
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("stepdata.type=postgres 时 dsn 必填")
		}
		return NewPgStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的对象存储类型: %s", cfg.Type)
	}
}
