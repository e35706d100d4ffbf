/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package audio plays the short page-turn cue.
package audio

import (
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	applog "gopdfreader/internal/log"
)

// Cue is a fire-and-forget sound. Play never blocks and never fails.
type Cue interface {
	Play()
}

// Silent is the cue used when sound is off or no audio device is available.
var Silent Cue = silent{}

type silent struct{}

func (silent) Play() {}

// Tone parameters of the page-turn sound.
const (
	SampleRate = 44100
	ToneLength = 150 * time.Millisecond

	startHz   = 200.0
	endHz     = 100.0
	sweep     = 100 * time.Millisecond
	startGain = 0.3
	endGain   = 0.01
)

// Samples synthesizes the cue: a sine sweeping exponentially from 200 to
// 100 Hz over 100ms while the gain decays exponentially from 0.3 to 0.01
// over the full 150ms.
func Samples() []float64 {
	n := SampleRate * int(ToneLength/time.Millisecond) / 1000
	out := make([]float64, n)
	sweepSec := sweep.Seconds()
	total := ToneLength.Seconds()
	phase := 0.0
	for i := range out {
		t := float64(i) / SampleRate
		f := endHz
		if t < sweepSec {
			f = startHz * math.Pow(endHz/startHz, t/sweepSec)
		}
		g := startGain * math.Pow(endGain/startGain, t/total)
		out[i] = g * math.Sin(phase)
		phase += 2 * math.Pi * f / SampleRate
	}
	return out
}

// PCM encodes samples as mono signed 16-bit little endian.
func PCM(samples []float64) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(b[2*i:], uint16(int16(s*math.MaxInt16)))
	}
	return b
}

// NewTone returns the page-turn cue, or Silent if enabled is false or the
// audio device cannot be opened.
func NewTone(enabled bool) Cue {
	if !enabled {
		return Silent
	}
	c, err := newDeviceCue(PCM(Samples()))
	if err != nil {
		applog.WithComponent("audio").Debug("audio unavailable", slog.Any("err", err))
		return Silent
	}
	return c
}
