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

package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rl-actor/internal/actor/job"
	"rl-actor/internal/app"
	"rl-actor/internal/app/learner"
	"rl-actor/internal/coordinator"
	"rl-actor/internal/storage/object"
	"rl-actor/pkg/config"
	"rl-actor/pkg/errors"
	"rl-actor/pkg/log"
	"rl-actor/pkg/shutdown"
)

// hubServer 用 net/http 暴露内存 Hub，协议与 hertz 路由一致
func hubServer(t *testing.T, hub *coordinator.Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, info interface{}, err error) {
		code := coordinator.CodeOK
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrInvalidArg):
			code = coordinator.CodeBadRequest
		case errors.Is(err, errors.ErrNotFound):
			code = coordinator.CodeUnknownWorker
		default:
			code = coordinator.CodeInternal
		}
		if err != nil {
			info = err.Error()
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "info": info})
	}
	handle := func(api string, fn func(body json.RawMessage) (interface{}, error)) {
		mux.HandleFunc("/"+api, func(w http.ResponseWriter, r *http.Request) {
			var body json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				reply(w, nil, errors.Wrap(errors.ErrInvalidArg, err.Error()))
				return
			}
			info, err := fn(body)
			reply(w, info, err)
		})
	}
	handle(coordinator.APIRegisterWorker, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.RegisterRequest
		_ = json.Unmarshal(b, &req)
		return hub.Register(req)
	})
	handle(coordinator.APIHeartbeats, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.WorkerRequest
		_ = json.Unmarshal(b, &req)
		return nil, hub.Heartbeat(req.WorkerID)
	})
	handle(coordinator.APIAskForJob, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.WorkerRequest
		_ = json.Unmarshal(b, &req)
		return hub.AskForJob(req.WorkerID)
	})
	handle(coordinator.APIGetAgentUpdate, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.AgentUpdateRequest
		_ = json.Unmarshal(b, &req)
		return hub.AgentUpdate(req.LearnerUID), nil
	})
	handle(coordinator.APISendTrajMetadata, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.TrajectoryMetadata
		_ = json.Unmarshal(b, &req)
		return nil, hub.PushMetadata(req)
	})
	handle(coordinator.APISendResult, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.ResultInfo
		_ = json.Unmarshal(b, &req)
		return nil, hub.PushResult(req)
	})
	handle(coordinator.APIGetData, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.GetDataRequest
		_ = json.Unmarshal(b, &req)
		return hub.PopData(req.WorkerID, req.BatchSize)
	})
	handle(coordinator.APISendTrainInfo, func(b json.RawMessage) (interface{}, error) {
		var req struct {
			TrainInfo json.RawMessage `json:"train_info"`
			WorkerID  string          `json:"worker_id"`
		}
		_ = json.Unmarshal(b, &req)
		return hub.RecordTrainInfo(req.WorkerID, req.TrainInfo)
	})
	handle(coordinator.APIModelPathUpdate, func(b json.RawMessage) (interface{}, error) {
		var req coordinator.ModelPathRequest
		_ = json.Unmarshal(b, &req)
		return nil, hub.UpdateModelPath(req.WorkerID, req.ModelPath)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url, workerID string) *config.Config {
	return &config.Config{
		Actor: config.ActorConfig{
			WorkerID:        workerID,
			EnvNum:          2,
			EpisodeNum:      1,
			AgentNum:        1,
			Compressor:      "zlib",
			Seed:            7,
			JobPollInterval: "20ms",
		},
		Learner: config.LearnerConfig{BatchSize: 2, SaveEvery: 1},
		Adder:   config.AdderConfig{PushLength: 4, UseGAE: true, Gamma: 0.99, Lambda: 0.95},
		Coordinator: config.CoordinatorConfig{
			URL:               url,
			Timeout:           "2s",
			RegisterBackoff:   "20ms",
			HeartbeatInterval: "50ms",
			RetryInterval:     "20ms",
			DataBackoffStep:   "10ms",
		},
		Dispatch:  config.DispatchConfig{QueueCapacity: 64, PollTimeout: "20ms"},
		ModelSync: config.ModelSyncConfig{Interval: "50ms"},
	}
}

func testBootstrap(cfg *config.Config, store object.Store) *app.Bootstrap {
	return &app.Bootstrap{Config: cfg, Logger: log.Nop(), Flag: shutdown.New(), Store: store}
}

func TestApp_EndToEnd(t *testing.T) {
	hub := coordinator.NewHub(job.Job{
		Agents:       []string{"main"},
		LearnerIDs:   []string{"learner-0"},
		PlayerIDs:    []string{"main_player"},
		LaunchPlayer: "main_player",
		UpdateAgents: []int{0},
	}, 0)
	srv := hubServer(t, hub)
	store := object.NewMemoryStore()

	actorBoot := testBootstrap(testConfig(srv.URL, "actor-0"), store)
	actorApp, err := NewApp(actorBoot, DefaultHooks(actorBoot))
	require.NoError(t, err)
	learnerBoot := testBootstrap(testConfig(srv.URL, "learner-0"), store)
	learnerApp, err := learner.NewApp(learnerBoot)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, learnerApp.Start(ctx))
	require.NoError(t, actorApp.Start(ctx))

	assert.Eventually(t, func() bool {
		return hub.Stats().Results >= 2 && learnerApp.Trainer().Models() >= 1
	}, 10*time.Second, 20*time.Millisecond)

	// 已发布的检查点位于 learner 的模型目录下
	upd := hub.AgentUpdate("learner-0")
	assert.Contains(t, upd.ModelPath, "model/learner-0/iteration_")
	ok, err := store.Exists(ctx, upd.ModelPath)
	require.NoError(t, err)
	assert.True(t, ok)

	results := hub.Results()
	require.NotEmpty(t, results)
	assert.Equal(t, "actor-0", results[0].ActorUID)
	assert.Equal(t, "main_player", results[0].LaunchPlayer)

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, actorApp.Shutdown(sctx))
	require.NoError(t, learnerApp.Shutdown(sctx))
	assert.Greater(t, actorApp.runner.Jobs(), int64(0))
}

func TestApp_ShutdownDuringRegister(t *testing.T) {
	// coordinator 不可达：注册一直重试，关停后返回 ErrShutdown
	boot := testBootstrap(testConfig("http://127.0.0.1:1", "actor-0"), object.NewMemoryStore())
	a, err := NewApp(boot, DefaultHooks(boot))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Start(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	boot.Flag.Trigger("test")

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, shutdown.ErrShutdown)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNewApp_MissingHooks(t *testing.T) {
	boot := testBootstrap(testConfig("http://127.0.0.1:1", "actor-0"), object.NewMemoryStore())
	hooks := DefaultHooks(boot)
	hooks.Policy = nil
	_, err := NewApp(boot, hooks)
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
}
