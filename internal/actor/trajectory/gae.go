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

// ComputeGAE 在窗口上做反向 GAE 递推；bootstrap 为窗口之后一步的价值估计（局终为 0）。
// 返回每步优势与回报，不修改 steps。
func ComputeGAE(steps []Transition, bootstrap, gamma, lambda float64) (advantages, returns []float64) {
	n := len(steps)
	advantages = make([]float64, n)
	returns = make([]float64, n)
	next := bootstrap
	gae := 0.0
	for t := n - 1; t >= 0; t-- {
		nonTerminal := 1.0
		if steps[t].Done {
			nonTerminal = 0
		}
		delta := steps[t].Reward + gamma*next*nonTerminal - steps[t].Value
		gae = delta + gamma*lambda*nonTerminal*gae
		advantages[t] = gae
		returns[t] = gae + steps[t].Value
		next = steps[t].Value
	}
	return advantages, returns
}
