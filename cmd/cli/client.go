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
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"rl-actor/internal/coordinator"
)

func coordinatorURL() string {
	if u := os.Getenv("RLCTL_COORDINATOR_URL"); u != "" {
		return u
	}
	return "http://localhost:8090"
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(coordinatorURL()).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
}

// request 部分 coordinator 不带 Content-Type，统一按 JSON 解码
func request() *resty.Request {
	return newClient().R().ForceContentType("application/json")
}

func getHealth() (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := request().
		SetResult(&out).
		Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

func getStats() (coordinator.HubStats, error) {
	var out coordinator.HubStats
	resp, err := request().
		SetResult(&out).
		Get("/api/stats")
	if err != nil {
		return out, err
	}
	if resp.StatusCode() != http.StatusOK {
		return out, fmt.Errorf("GET /api/stats: %s", resp.String())
	}
	return out, nil
}

func listWorkers() ([]coordinator.WorkerInfo, error) {
	var out struct {
		Workers []coordinator.WorkerInfo `json:"workers"`
	}
	resp, err := request().
		SetResult(&out).
		Get("/api/workers")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/workers: %s", resp.String())
	}
	return out.Workers, nil
}

// askForJob 以给定 worker_id 申请一个 job，便于检查下发模板
func askForJob(workerID string) (coordinator.Response, error) {
	var out coordinator.Response
	resp, err := request().
		SetBody(coordinator.WorkerRequest{WorkerID: workerID}).
		SetResult(&out).
		Post("/" + coordinator.APIAskForJob)
	if err != nil {
		return out, err
	}
	if resp.StatusCode() != http.StatusOK {
		return out, fmt.Errorf("POST %s: %s", coordinator.APIAskForJob, resp.String())
	}
	return out, nil
}
