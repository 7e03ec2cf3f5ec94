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

package linear

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rl-actor/internal/actor/job"
	"rl-actor/internal/modelsync"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	p := softmax([]float64{1000, 1001, 999})
	var sum float64
	for _, v := range p {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, p[1], p[0])
}

func TestForward_OutputsPerEnv(t *testing.T) {
	w := DefaultWeights()
	w.VW = []float64{1, 0, 0, 0}
	w.VB = 0.5
	p, err := New(w, nil, 0, 1, nil)
	require.NoError(t, err)

	out, err := p.Forward(context.Background(), map[int]interface{}{
		0: []float64{1, 0, 0, 0},
		3: []float64{2, 0, 0, 0},
	}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 1.5, out[0].Value, 1e-9)
	assert.InDelta(t, 2.5, out[3].Value, 1e-9)
	for _, o := range out {
		a := o.Action.(int)
		assert.Contains(t, []int{0, 1}, a)
		assert.Less(t, o.LogProb, 0.0)
		assert.Greater(t, o.LogProb, math.Log(1e-8))
	}

	_, err = p.Forward(context.Background(), map[int]interface{}{0: []float64{1}}, nil)
	assert.Error(t, err)
	_, err = p.Forward(context.Background(), map[int]interface{}{0: "obs"}, nil)
	assert.Error(t, err)
}

func TestForward_AppliesLatestUpdateOnSchedule(t *testing.T) {
	slot := modelsync.NewSlot[modelsync.Update]()
	p, err := New(DefaultWeights(), slot, 3, 1, nil)
	require.NoError(t, err)

	next := DefaultWeights()
	next.VB = 7
	params, err := next.Encode()
	require.NoError(t, err)
	slot.Put(modelsync.Update{Path: "stale", Params: []byte("{}")})
	slot.Put(modelsync.Update{Path: "model/l0/iteration_1.ckpt", Params: params})

	obs := map[int]interface{}{0: []float64{0, 0, 0, 0}}
	for i := 0; i < 2; i++ {
		out, err := p.Forward(context.Background(), obs, nil)
		require.NoError(t, err)
		assert.Zero(t, out[0].Value, "update not yet applied")
	}
	out, err := p.Forward(context.Background(), obs, nil)
	require.NoError(t, err)
	assert.Equal(t, 7.0, out[0].Value)
	assert.Equal(t, "model/l0/iteration_1.ckpt", p.ModelPath())
	_, pending := slot.Take()
	assert.False(t, pending)
}

func TestForward_BadUpdateKeepsWeights(t *testing.T) {
	slot := modelsync.NewSlot[modelsync.Update]()
	p, err := New(DefaultWeights(), slot, 1, 1, nil)
	require.NoError(t, err)
	slot.Put(modelsync.Update{Path: "broken", Params: []byte("not json")})
	_, err = p.Forward(context.Background(), map[int]interface{}{0: []float64{0, 0, 0, 0}}, nil)
	require.NoError(t, err)
	assert.Empty(t, p.ModelPath())

	slot.Put(modelsync.Update{Path: "wrong-shape", Params: []byte(`{"w":[[1]],"b":[0],"vw":[1,2]}`)})
	_, err = p.Forward(context.Background(), map[int]interface{}{0: []float64{0, 0, 0, 0}}, nil)
	require.NoError(t, err)
	assert.Empty(t, p.ModelPath())
}

func TestNew_RejectsBadShape(t *testing.T) {
	_, err := New(Weights{}, nil, 1, 0, nil)
	assert.Error(t, err)
}

func TestFactory_SharesPolicyAcrossJobs(t *testing.T) {
	slots := modelsync.NewSlots[modelsync.Update](2)
	f := Factory(1, 0, nil)
	a, err := f(job.Job{JobID: "a"}, slots)
	require.NoError(t, err)
	b, err := f(job.Job{JobID: "b"}, slots)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
