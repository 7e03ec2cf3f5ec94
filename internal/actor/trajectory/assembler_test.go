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

package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rl-actor/internal/actor/job"
)

func newTestAssembler(pushLength int, useGAE bool) *Assembler {
	j := job.Job{
		JobID: "j1",
		Adder: job.AdderSettings{PushLength: pushLength, UseGAE: useGAE, Gamma: 0.9, Lambda: 0.8},
	}
	return NewAssembler(j, 2, nil)
}

// runEpisode 推入 steps 步（最后一步 done），返回依次产出的窗口
func runEpisode(a *Assembler, envID, steps int, startReward float64) []Window {
	var out []Window
	for i := 0; i < steps; i++ {
		out = append(out, a.Push(envID, Transition{
			Reward: startReward + float64(i),
			Value:  0.5,
			Done:   i == steps-1,
			Info:   map[string]interface{}{"result": "win"},
		})...)
	}
	return out
}

func rewards(w Window) []float64 {
	out := make([]float64, len(w.Steps))
	for i, s := range w.Steps {
		out[i] = s.Reward
	}
	return out
}

func TestAssembler_EpisodeEqualToPushLength(t *testing.T) {
	a := newTestAssembler(4, false)
	ws := runEpisode(a, 0, 4, 1)

	require.Len(t, ws, 1)
	w := ws[0]
	assert.True(t, w.Final)
	assert.Equal(t, 0, w.Padded)
	assert.Equal(t, []float64{1, 2, 3, 4}, rewards(w))
	assert.Nil(t, w.Advantages)
}

func TestAssembler_TenStepEpisode(t *testing.T) {
	a := newTestAssembler(4, false)
	ws := runEpisode(a, 0, 10, 1)

	require.Len(t, ws, 3)
	assert.False(t, ws[0].Final)
	assert.Equal(t, []float64{1, 2, 3, 4}, rewards(ws[0]))
	assert.False(t, ws[1].Final)
	assert.Equal(t, []float64{5, 6, 7, 8}, rewards(ws[1]))
	assert.True(t, ws[2].Final)
	assert.Equal(t, 2, ws[2].Padded)
	assert.Equal(t, []float64{7, 8, 9, 10}, rewards(ws[2]))
	assert.True(t, ws[2].Done())
}

func TestAssembler_UniformLengthAcrossEpisodeLengths(t *testing.T) {
	for steps := 5; steps <= 23; steps++ {
		a := newTestAssembler(4, true)
		ws := runEpisode(a, 1, steps, 0)
		require.NotEmpty(t, ws)
		for i, w := range ws {
			assert.Equalf(t, 4, w.Len(), "steps=%d window=%d", steps, i)
			assert.Lenf(t, w.Advantages, 4, "steps=%d window=%d", steps, i)
		}
		assert.True(t, ws[len(ws)-1].Final)
		assert.Equal(t, 0, a.Slot(1).Pending())
		assert.Equal(t, 0, a.Slot(1).CarryLen())
	}
}

func TestAssembler_DoneOnEmissionStep(t *testing.T) {
	// 第 5 步既触发常规窗口又是局终：局终窗口 = 上一窗口后 3 条 + 第 5 步
	a := newTestAssembler(4, false)
	ws := runEpisode(a, 0, 5, 1)

	require.Len(t, ws, 2)
	assert.Equal(t, []float64{1, 2, 3, 4}, rewards(ws[0]))
	assert.Equal(t, []float64{2, 3, 4, 5}, rewards(ws[1]))
	assert.Equal(t, 3, ws[1].Padded)
}

func TestAssembler_ShortFirstEpisodeIsTruncated(t *testing.T) {
	a := newTestAssembler(4, false)
	ws := runEpisode(a, 0, 2, 1)

	require.Len(t, ws, 1)
	assert.Equal(t, 2, ws[0].Len())
	assert.Equal(t, 0, ws[0].Padded)
}

func TestAssembler_SlotsAreIndependent(t *testing.T) {
	a := newTestAssembler(4, false)
	for i := 0; i < 3; i++ {
		assert.Empty(t, a.Push(0, Transition{Reward: 1}))
		assert.Empty(t, a.Push(1, Transition{Reward: 2}))
	}
	assert.Equal(t, 3, a.Slot(0).Pending())
	assert.Equal(t, 3, a.Slot(1).Pending())

	ws := a.Push(1, Transition{Reward: 2, Done: true, Info: map[string]interface{}{"result": 1}})
	require.Len(t, ws, 1)
	assert.Equal(t, 1, ws[0].EnvID)
	assert.Equal(t, 3, a.Slot(0).Pending())
	assert.Len(t, a.Slot(1).EpisodeInfos(), 1)
}

func TestAssembler_RegularWindowBootstrapsFromLookahead(t *testing.T) {
	a := newTestAssembler(2, true)
	a.Push(0, Transition{Reward: 0, Value: 0})
	a.Push(0, Transition{Reward: 0, Value: 0})
	ws := a.Push(0, Transition{Reward: 0, Value: 10})

	require.Len(t, ws, 1)
	// delta_1 = 0 + 0.9*10 - 0 = 9; A_1 = 9; A_0 = 0 + 0.9*0.8*9
	assert.InDelta(t, 9.0, ws[0].Advantages[1], 1e-9)
	assert.InDelta(t, 0.9*0.8*9, ws[0].Advantages[0], 1e-9)
}

func TestAssembler_CarryOverIsACopy(t *testing.T) {
	a := newTestAssembler(3, false)
	a.Push(0, Transition{Reward: 1})
	a.Push(0, Transition{Reward: 2})
	a.Push(0, Transition{Reward: 3})
	ws := a.Push(0, Transition{Reward: 4})
	require.Len(t, ws, 1)

	// 修改已发出的窗口不影响补齐缓存
	ws[0].Steps[2].Reward = 99
	final := a.Push(0, Transition{Reward: 5, Done: true})
	require.Len(t, final, 1)
	assert.Equal(t, []float64{3, 4, 5}, rewards(final[0]))
	assert.Equal(t, 1, final[0].Padded)
}

func TestAssembler_CarryOverCopiesInfo(t *testing.T) {
	a := newTestAssembler(3, false)
	for i := 1; i <= 3; i++ {
		a.Push(0, Transition{Reward: float64(i), Info: map[string]interface{}{"step": i}})
	}
	ws := a.Push(0, Transition{Reward: 4})
	require.Len(t, ws, 1)

	ws[0].Steps[2].Info["step"] = "changed"
	final := a.Push(0, Transition{Reward: 5, Done: true})
	require.Len(t, final, 1)
	assert.Equal(t, 3, final[0].Steps[0].Info["step"])
}

func TestAssembler_WindowCarriesJobCopy(t *testing.T) {
	a := newTestAssembler(2, false)
	ws := runEpisode(a, 0, 2, 0)
	require.Len(t, ws, 1)
	assert.Equal(t, "j1", ws[0].Job.JobID)
}
