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

package dispatch

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rl-actor/internal/actor/job"
	"rl-actor/internal/actor/trajectory"
	"rl-actor/internal/codec"
	"rl-actor/internal/coordinator"
	"rl-actor/internal/storage/object"
	"rl-actor/pkg/config"
	"rl-actor/pkg/shutdown"
)

type recordingCoordinator struct {
	mu      sync.Mutex
	metas   []coordinator.TrajectoryMetadata
	results []coordinator.ResultInfo
	reject  bool
}

func (r *recordingCoordinator) SendMetadata(_ context.Context, m coordinator.TrajectoryMetadata) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.metas = append(r.metas, m)
	return true
}

func (r *recordingCoordinator) SendResult(_ context.Context, res coordinator.ResultInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.results = append(r.results, res)
	return true
}

func (r *recordingCoordinator) metaCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.metas)
}

func senderJob() job.Job {
	return job.Job{
		JobID:        "j7",
		Agents:       []string{"main", "opp"},
		LearnerIDs:   []string{"learner-0", "learner-1"},
		PlayerIDs:    []string{"p0", "p1"},
		LaunchPlayer: "p0",
		Adder:        job.AdderSettings{PushLength: 2, UseGAE: true, Gamma: 0.99, Lambda: 0.95},
		Compressor:   codec.Zlib,
	}
}

func testWindow() trajectory.Window {
	return trajectory.Window{
		Steps:      []trajectory.Transition{{Reward: 1, Value: 0.5}, {Reward: 0, Value: 0.2, Done: true}},
		Advantages: []float64{0.1, -0.2},
		Returns:    []float64{0.6, 0},
		EnvID:      4,
		AgentID:    1,
		Job:        senderJob(),
		Final:      true,
	}
}

var trajIDPattern = regexp.MustCompile(`^job_j7_env_4_agent_1_[0-9a-f-]{36}$`)

func TestTrajectorySender_SendStoresPayloadAndMetadata(t *testing.T) {
	store := object.NewMemoryStore()
	rc := &recordingCoordinator{}
	q := NewQueue[trajectory.Window]("traj", 4, config.BackpressureBlock, shutdown.New(), nil)
	s := NewTrajectorySender(q, store, rc, "actor-3", 0, shutdown.New(), nil)

	require.NoError(t, s.Send(context.Background(), testWindow()))
	require.Len(t, rc.metas, 1)
	m := rc.metas[0]
	assert.Regexp(t, trajIDPattern, m.TrajID)
	assert.Equal(t, "learner-1", m.LearnerUID)
	assert.Equal(t, "p0", m.LaunchPlayer)
	assert.Equal(t, "actor-3", m.ActorUID)
	assert.True(t, m.Done)
	assert.Equal(t, 2, m.DataPushLength)
	assert.Equal(t, codec.Zlib, m.Compressor)
	assert.Equal(t, "j7", m.JobID)
	assert.Greater(t, m.TrajFinishTime, 0.0)

	data, err := store.Get(context.Background(), m.TrajID)
	require.NoError(t, err)
	raw, err := codec.Get(codec.Zlib)
	require.NoError(t, err)
	plain, err := raw.Decompress(data)
	require.NoError(t, err)
	var w trajectory.Window
	require.NoError(t, json.Unmarshal(plain, &w))
	assert.Equal(t, []float64{0.1, -0.2}, w.Advantages)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, int64(1), s.Finished())
}

func TestBuildMetadata_TruncatedWindowReportsPayloadLength(t *testing.T) {
	j := senderJob()
	j.Adder.PushLength = 4
	asm := trajectory.NewAssembler(j, 1, nil)
	var windows []trajectory.Window
	for i := 0; i < 2; i++ {
		windows = append(windows, asm.Push(0, trajectory.Transition{Reward: 1, Done: i == 1})...)
	}
	require.Len(t, windows, 1)
	w := windows[0]
	require.Equal(t, 2, w.Len())

	m := BuildMetadata("t1", "actor-0", w, time.Now())
	assert.Equal(t, 2, m.DataPushLength)
	assert.True(t, m.Done)
}

func TestTrajectorySender_IDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := TrajectoryID("j7", 4, 1)
		require.Regexp(t, trajIDPattern, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestTrajectorySender_RejectedMetadataIsNotRetried(t *testing.T) {
	rc := &recordingCoordinator{reject: true}
	s := NewTrajectorySender(nil, object.NewMemoryStore(), rc, "actor-3", 0, shutdown.New(), nil)
	err := s.Send(context.Background(), testWindow())
	assert.Error(t, err)
	assert.Equal(t, int64(0), s.Finished())
}

func TestTrajectorySender_UnknownCodec(t *testing.T) {
	w := testWindow()
	w.Job.Compressor = "lz77"
	s := NewTrajectorySender(nil, object.NewMemoryStore(), &recordingCoordinator{}, "actor-3", 0, shutdown.New(), nil)
	assert.Error(t, s.Send(context.Background(), w))
}

func TestTrajectorySender_DrainsQueueAndExitsOnShutdown(t *testing.T) {
	flag := shutdown.New()
	rc := &recordingCoordinator{}
	q := NewQueue[trajectory.Window]("traj", 8, config.BackpressureBlock, flag, nil)
	s := NewTrajectorySender(q, object.NewMemoryStore(), rc, "actor-3", 20*time.Millisecond, flag, nil)
	s.Start(context.Background())

	for i := 0; i < 5; i++ {
		w := testWindow()
		w.EnvID = i
		require.NoError(t, q.Put(context.Background(), w))
	}
	require.Eventually(t, func() bool { return rc.metaCount() == 5 }, 2*time.Second, 5*time.Millisecond)

	flag.Trigger("stop")
	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender did not exit within poll timeout")
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	for i, m := range rc.metas {
		assert.Equal(t, i, m.EnvID, "per-queue order is preserved")
	}
}

func TestResultSender_Enrich(t *testing.T) {
	r := trajectory.ResultFromInfo(2, map[string]interface{}{"result": "win", "units_num": 3}, senderJob())
	info := Enrich("actor-3", r)
	assert.Equal(t, "j7", info.JobID)
	assert.Equal(t, "actor-3", info.ActorUID)
	assert.Equal(t, []string{"p0", "p1"}, info.PlayerID)
	assert.Equal(t, "p0", info.LaunchPlayer)
	assert.Equal(t, "win", info.Result)
	assert.Equal(t, 3, info.UnitsNum)
	assert.Nil(t, info.Dists)
}

func TestResultSender_Loop(t *testing.T) {
	flag := shutdown.New()
	rc := &recordingCoordinator{}
	q := NewQueue[trajectory.EpisodeResult]("result", 4, config.BackpressureBlock, flag, nil)
	s := NewResultSender(q, rc, "actor-3", 10*time.Millisecond, flag, nil)
	s.Start(context.Background())

	require.NoError(t, q.Put(context.Background(), trajectory.EpisodeResult{EnvID: 1, Result: 1.0, Job: senderJob()}))
	require.Eventually(t, func() bool { return s.Finished() == 1 }, time.Second, 5*time.Millisecond)
	flag.Trigger("stop")
	s.Wait()

	require.Len(t, rc.results, 1)
	assert.Equal(t, 1, rc.results[0].EnvID)
}

func TestResultSender_FailureIsReported(t *testing.T) {
	s := NewResultSender(nil, &recordingCoordinator{reject: true}, "actor-3", 0, shutdown.New(), nil)
	assert.ErrorIs(t, s.Send(context.Background(), trajectory.EpisodeResult{Job: senderJob()}), errResultRejected)
}
