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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"rl-actor/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("rl-actor rlctl 0.1.0")
	case "health":
		runHealth()
	case "config":
		path := "configs/actor.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		runConfig(path)
	case "stats":
		runStats()
	case "workers":
		runWorkers()
	case "job":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: rlctl job <worker_id>\n")
			os.Exit(1)
		}
		runJob(args[0])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: rlctl <command> [args]")
	fmt.Println("  version           - 显示版本")
	fmt.Println("  health            - coordinator 健康检查")
	fmt.Println("  config [path]     - 显示配置概要（默认 configs/actor.yaml）")
	fmt.Println("  stats             - coordinator 统计（排队轨迹、结果、已分配 job）")
	fmt.Println("  workers           - 列出已注册 worker 及最近心跳")
	fmt.Println("  job <worker_id>   - 以该 worker 身份申请一个 job 并打印")
	fmt.Println("环境变量 RLCTL_COORDINATOR_URL 指定 coordinator 地址")
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v interface{}) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("编码输出失败: %v", err)
	}
	fmt.Println(string(raw))
}

func runHealth() {
	out, err := getHealth()
	if err != nil {
		fail("health: %v", err)
	}
	fmt.Println(out["status"])
}

func runConfig(path string) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fail("加载配置失败: %v", err)
	}
	fmt.Printf("coordinator.url=%s\n", cfg.Coordinator.URL)
	fmt.Printf("actor.env_num=%d\n", cfg.Actor.EnvNum)
	fmt.Printf("adder.push_length=%d use_gae=%v\n", cfg.Adder.PushLength, cfg.Adder.UseGAE)
	fmt.Printf("dispatch.backpressure=%s\n", cfg.Dispatch.Backpressure)
	fmt.Printf("stepdata.type=%s\n", cfg.Stepdata.Type)
}

func runStats() {
	s, err := getStats()
	if err != nil {
		fail("stats: %v", err)
	}
	fmt.Printf("workers=%d jobs=%d results=%d train_infos=%d evicted=%d\n",
		s.Workers, s.JobsAssigned, s.Results, s.TrainInfos, s.Evicted)
	learners := make([]string, 0, len(s.Pending))
	for k := range s.Pending {
		learners = append(learners, k)
	}
	sort.Strings(learners)
	for _, l := range learners {
		fmt.Printf("  pending[%s]=%d\n", l, s.Pending[l])
	}
}

func runWorkers() {
	ws, err := listWorkers()
	if err != nil {
		fail("workers: %v", err)
	}
	if len(ws) == 0 {
		fmt.Println("(no workers)")
		return
	}
	for _, w := range ws {
		fmt.Printf("%s\tname=%s\taddr=%s:%d\tlast_heartbeat=%s\n",
			w.WorkerID, w.AssignedName, w.Address, w.Port, time.Since(w.LastHeartbeat).Round(time.Second))
	}
}

func runJob(workerID string) {
	resp, err := askForJob(workerID)
	if err != nil {
		fail("job: %v", err)
	}
	if !resp.OK() {
		fail("job: code=%d info=%s", resp.Code, string(resp.Info))
	}
	var v interface{}
	if err := resp.Decode(&v); err != nil {
		fail("job: %v", err)
	}
	printJSON(v)
}
