/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSamplesLengthAndEnvelope(t *testing.T) {
	s := Samples()
	if len(s) != 6615 {
		t.Fatalf("len = %d, want 6615", len(s))
	}
	peak := func(from, to int) float64 {
		m := 0.0
		for _, v := range s[from:to] {
			m = math.Max(m, math.Abs(v))
		}
		return m
	}
	head, tail := peak(0, 500), peak(len(s)-500, len(s))
	if head > 0.3+1e-9 || head < 0.2 {
		t.Fatalf("head peak = %v", head)
	}
	if tail > 0.02 {
		t.Fatalf("tail peak = %v, want decayed near 0.01", tail)
	}
}

func TestSamplesFrequencySweep(t *testing.T) {
	s := Samples()
	crossings := func(from, to int) int {
		n := 0
		for i := from + 1; i < to; i++ {
			if (s[i-1] < 0) != (s[i] < 0) {
				n++
			}
		}
		return n
	}
	// 20ms windows: ~200Hz gives ~8 crossings early, 100Hz gives ~4 late.
	w := SampleRate / 50
	early, late := crossings(0, w), crossings(len(s)-w, len(s))
	if early <= late {
		t.Fatalf("expected descending pitch, early=%d late=%d", early, late)
	}
}

func TestPCMClampsAndEncodes(t *testing.T) {
	b := PCM([]float64{0, 1, -1, 2})
	if len(b) != 8 {
		t.Fatalf("len = %d", len(b))
	}
	if v := int16(binary.LittleEndian.Uint16(b[2:])); v != math.MaxInt16 {
		t.Fatalf("max sample = %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(b[4:])); v != -math.MaxInt16 {
		t.Fatalf("min sample = %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(b[6:])); v != math.MaxInt16 {
		t.Fatalf("clamped sample = %d", v)
	}
}

func TestDisabledToneIsSilent(t *testing.T) {
	if NewTone(false) != Silent {
		t.Fatalf("disabled tone should be Silent")
	}
	Silent.Play()
}
