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
)

func TestComputeGAE_ZeroRewardsZeroBootstrap(t *testing.T) {
	steps := make([]Transition, 6)
	adv, ret := ComputeGAE(steps, 0, 0.99, 0.95)
	for i := range steps {
		assert.Zero(t, adv[i])
		assert.Zero(t, ret[i])
	}
}

func TestComputeGAE_MonteCarloWhenLambdaOne(t *testing.T) {
	// gamma=1, lambda=1: A_t = sum(r_t..) + bootstrap - V_t
	steps := []Transition{
		{Reward: 1, Value: 0.5},
		{Reward: 2, Value: 0.5},
		{Reward: 3, Value: 0.5},
	}
	adv, ret := ComputeGAE(steps, 4, 1, 1)
	assert.InDeltaSlice(t, []float64{9.5, 8.5, 6.5}, adv, 1e-9)
	assert.InDeltaSlice(t, []float64{10, 9, 7}, ret, 1e-9)
}

func TestComputeGAE_DoneCutsBootstrap(t *testing.T) {
	steps := []Transition{
		{Reward: 1, Value: 0},
		{Reward: 1, Value: 0, Done: true},
	}
	adv, _ := ComputeGAE(steps, 100, 0.5, 1)
	assert.InDelta(t, 1.0, adv[1], 1e-9)
	assert.InDelta(t, 1.0+0.5*1.0, adv[0], 1e-9)
}

func TestComputeGAE_DoesNotMutateInput(t *testing.T) {
	steps := []Transition{{Reward: 1, Value: 2}}
	_, _ = ComputeGAE(steps, 0, 0.9, 0.9)
	assert.Equal(t, 1.0, steps[0].Reward)
	assert.Equal(t, 2.0, steps[0].Value)
}

func TestComputeGAE_Empty(t *testing.T) {
	adv, ret := ComputeGAE(nil, 1, 0.9, 0.9)
	assert.Empty(t, adv)
	assert.Empty(t, ret)
}
