// Package oto plays sounds on the default audio device using oto.
package oto

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/mleml"
)

type (
	// OtoContext is a mleml.AudioContext playing sounds of one sampling
	// rate. Only one context can exist in a process.
	OtoContext struct {
		ctx  *oto.Context
		rate uint32
	}

	// OtoPlayback is a sound being played.
	OtoPlayback struct {
		mu     sync.Mutex
		player *oto.Player
		closed bool
	}
)

const pollInterval = 10 * time.Millisecond

// NewContext opens the audio device for stereo float32 sound at the given
// sampling rate.
func NewContext(rate uint32) (*OtoContext, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(rate),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: ctx, rate: rate}, nil
}

// Play starts playing s. The sampling rate of s must match the one of the
// context.
func (c *OtoContext) Play(s mleml.Sound) (mleml.CloserWaiter, error) {
	if s.Rate() != c.rate {
		return nil, fmt.Errorf("cannot play sound of rate %d on a context of rate %d", s.Rate(), c.rate)
	}
	p := c.ctx.NewPlayer(bytes.NewReader(FramesToFloat32LE(s.Frames(), nil)))
	p.Play()
	return &OtoPlayback{player: p}, nil
}

// Close suspends the device. oto contexts cannot be disposed of.
func (c *OtoContext) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Wait blocks until the sound has been played or the playback was closed.
func (p *OtoPlayback) Wait() {
	for {
		p.mu.Lock()
		done := p.closed || !p.player.IsPlaying()
		p.mu.Unlock()
		if done {
			return
		}
		time.Sleep(pollInterval)
	}
}

// Close stops the playback.
func (p *OtoPlayback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
