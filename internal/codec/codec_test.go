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

package codec

import (
	"bytes"
	"testing"
)

func TestCodecs(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"reward":1.5,"done":false}`), 64)
	for _, name := range []string{"", None, Zlib, Gzip} {
		c, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		packed, err := c.Compress(payload)
		if err != nil {
			t.Fatalf("%s Compress: %v", c.Name(), err)
		}
		if c.Name() != None && len(packed) >= len(payload) {
			t.Errorf("%s: expected compression, got %d >= %d", c.Name(), len(packed), len(payload))
		}
		out, err := c.Decompress(packed)
		if err != nil {
			t.Fatalf("%s Decompress: %v", c.Name(), err)
		}
		if !bytes.Equal(out, payload) {
			t.Errorf("%s: payload mismatch", c.Name())
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, err := Get("lz4"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	c, _ := Get(Zlib)
	if _, err := c.Decompress([]byte("not zlib")); err == nil {
		t.Fatal("expected error for corrupt input")
	}
}
