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

package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"rl-actor/pkg/log"
	"rl-actor/pkg/metrics"
)

// AccessLog 记录每个请求的接口、状态与耗时
func AccessLog(logger *log.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		api := apiName(string(c.Path()))
		cost := time.Since(start)
		status := c.Response.StatusCode()
		metrics.CoordinatorServed.WithLabelValues(api, strconv.Itoa(status)).Inc()
		metrics.CoordinatorServeDuration.WithLabelValues(api).Observe(cost.Seconds())
		logger.Debug("http 请求", "method", string(c.Method()), "api", api, "status", status, "cost", cost.String())
	}
}

// apiName 将路径归一为接口名，避免未知路径撑大指标基数
func apiName(path string) string {
	p := strings.Trim(path, "/")
	switch {
	case strings.HasPrefix(p, "coordinator/"):
		return strings.TrimPrefix(p, "coordinator/")
	case p == "metrics", strings.HasPrefix(p, "api/"):
		return p
	default:
		return "other"
	}
}
