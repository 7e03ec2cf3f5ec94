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

package cartpole

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rl-actor/internal/actor/job"
)

func TestEnv_FallsWithConstantPush(t *testing.T) {
	e := NewEnv(rand.New(rand.NewSource(1)))
	var done bool
	var reward float64
	steps := 0
	for !done {
		_, reward, done = e.Step(1)
		steps++
	}
	assert.Less(t, steps, MaxSteps)
	assert.Equal(t, 0.0, reward)
	assert.Equal(t, steps, e.Steps())
}

func TestEnv_ResetIsNearBalance(t *testing.T) {
	e := NewEnv(rand.New(rand.NewSource(2)))
	for _, x := range e.Reset().Vector() {
		assert.InDelta(t, 0, x, 0.05)
	}
	assert.Zero(t, e.Steps())
}

func TestVectorEnv_EpisodeBudget(t *testing.T) {
	f := Factory(2, 7)
	set, err := f(job.Job{}, 3)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, set.Launch(ctx))

	episodes := 0
	for !set.Done() {
		obs := set.ReadyObs()
		require.NotEmpty(t, obs)
		actions := make(map[int]interface{}, len(obs))
		for id, o := range obs {
			require.Len(t, o.([]float64), 4)
			actions[id] = 0
		}
		steps, err := set.Step(ctx, actions)
		require.NoError(t, err)
		for _, ts := range steps {
			if ts.Done {
				episodes++
				assert.Contains(t, ts.Info, "result")
			}
		}
	}
	assert.Equal(t, 6, episodes)
	assert.Empty(t, set.ReadyObs())
	assert.NoError(t, set.Close())
}

func TestVectorEnv_RejectsBadActions(t *testing.T) {
	v := NewVectorEnv(1, 1, 0)
	require.NoError(t, v.Launch(context.Background()))
	_, err := v.Step(context.Background(), map[int]interface{}{0: "left"})
	assert.Error(t, err)
	_, err = v.Step(context.Background(), map[int]interface{}{5: 0})
	assert.Error(t, err)

	_, err = Factory(1, 0)(job.Job{}, 0)
	assert.Error(t, err)
}
