//go:build cgo && !noaudio

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package audio

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	applog "gopdfreader/internal/log"
)

// oto allows one context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func otoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = c
	})
	return otoCtx, otoErr
}

type deviceCue struct {
	ctx *oto.Context
	pcm []byte
}

func newDeviceCue(pcm []byte) (Cue, error) {
	c, err := otoContext()
	if err != nil {
		return nil, err
	}
	return &deviceCue{ctx: c, pcm: pcm}, nil
}

func (d *deviceCue) Play() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				applog.WithComponent("audio").Debug("cue panicked", slog.Any("panic", r))
			}
		}()
		p := d.ctx.NewPlayer(bytes.NewReader(d.pcm))
		p.Play()
		for p.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := p.Close(); err != nil {
			applog.WithComponent("audio").Debug("close player", slog.Any("err", err))
		}
	}()
}
