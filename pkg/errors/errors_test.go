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

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrap_NilStaysNil(t *testing.T) {
	if Wrap(nil, "read model") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "traj %s", "t1") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestWrap_KeepsSentinel(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
		msg  string
	}{
		{"not found", Wrap(ErrNotFound, "model/l0/iteration_3.ckpt"), ErrNotFound, "model/l0/iteration_3.ckpt: not found"},
		{"invalid", Wrapf(ErrInvalidArg, "batch_size=%d", -1), ErrInvalidArg, "batch_size=-1: invalid argument"},
		{"hooks", Wrap(ErrNotImplemented, "policy factory"), ErrNotImplemented, "policy factory: not implemented"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !Is(tc.err, tc.want) {
				t.Errorf("%v should be Is %v", tc.err, tc.want)
			}
			if tc.err.Error() != tc.msg {
				t.Errorf("message: got %q want %q", tc.err.Error(), tc.msg)
			}
		})
	}
}

func TestIs_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("初始化 actor 失败: %w", Wrap(ErrNotImplemented, "environment factory"))
	if !Is(err, ErrNotImplemented) {
		t.Error("sentinel should survive fmt.Errorf wrapping")
	}
	if Is(err, ErrNotFound) {
		t.Error("ErrNotImplemented should not match ErrNotFound")
	}
	if !strings.HasPrefix(err.Error(), "初始化 actor 失败") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrNotImplemented) {
		t.Error("Is should agree with errors.Is")
	}
}
