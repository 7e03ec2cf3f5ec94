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

package object

import (
	"context"
	"fmt"

	"rl-actor/pkg/errors"
)

// Store 数据面对象存储：轨迹数据与模型文件按 key 存取，内容视为不透明字节
type Store interface {
	// Put 写入对象，已存在则覆盖
	Put(ctx context.Context, key string, data []byte) error
	// Get 读取对象；不存在时返回包装了 errors.ErrNotFound 的错误
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete 删除对象；不存在时不报错
	Delete(ctx context.Context, key string) error
	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Close 关闭存储连接
	Close() error
}

func notFound(key string) error {
	return fmt.Errorf("object %s: %w", key, errors.ErrNotFound)
}
