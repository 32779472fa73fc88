// Package mleml is a runtime for composing small, pure, configurable
// resources into a note-to-sound synthesis pipeline. Notes flow through note
// mods, get resolved into physical units, are rendered by an instrument,
// flow through sound mods and finally get mixed by a platform together with
// the sound of the other channels.
//
// No resource keeps hidden mutable state: every call receives its
// configuration and its opaque state explicitly and returns the new state,
// which the caller persists. This makes rendering reproducible and lets the
// same resource instance be shared by any number of pipelines.
package mleml

import (
	"errors"
	"fmt"
)

const (
	// CCCC is the frequency of C-1 in Hz. All other note frequencies are
	// derived from it; this value makes A above middle C equal to 440 Hz.
	CCCC float32 = 8.175799
	// MaxTick is the largest number of ticks in a whole note.
	MaxTick = 256
	// MaxVolume is the default volume setting denoting full volume.
	MaxVolume = 100
	// MaxTempo is the largest tempo, in ticks per beat.
	MaxTempo float32 = 256
	// MaxChannels is the largest number of sound producing channels a
	// platform may mix.
	MaxChannels = 256
)

// PlatformValues are the platform wide constants that channels need to turn
// abstract notes into physical ones, and that mixers need to know how many
// channels to expect.
type PlatformValues struct {
	// ReferencePitch is the frequency of C-1, in Hz. See CCCC.
	ReferencePitch float32 `yaml:"referencepitch"`
	// TickLength is the length of one tick, in seconds.
	TickLength float32 `yaml:"ticklength"`
	// WholeNote is the length of a whole note, in ticks.
	WholeNote uint32 `yaml:"wholenote"`
	// Tempo is the number of ticks per beat.
	Tempo float32 `yaml:"tempo"`
	// MaxVolume is the number denoting full volume on this platform.
	MaxVolume uint32 `yaml:"maxvolume"`
	// Channels is the exact number of channels the platform mixes.
	Channels uint32 `yaml:"channels"`
}

// PlatformSchema is the schema of the config form of PlatformValues.
var PlatformSchema = MustResConfig(0.0, 0.0, 0.0, 0.0, 0.0, 0.0)

// DefaultPlatformValues returns values for a platform with the given number
// of channels, with 96 ticks per whole note at 120 beats per minute.
func DefaultPlatformValues(channels uint32) PlatformValues {
	return PlatformValues{
		ReferencePitch: CCCC,
		TickLength:     2.0 / 96, // a whole note lasts two seconds at 120 BPM
		WholeNote:      96,
		Tempo:          24,
		MaxVolume:      MaxVolume,
		Channels:       channels,
	}
}

// Validate checks that the values are within the limits of the framework.
func (v PlatformValues) Validate() error {
	if v.ReferencePitch <= 0 {
		return errors.New("reference pitch should be > 0")
	}
	if v.TickLength <= 0 {
		return errors.New("tick length should be > 0")
	}
	if v.WholeNote < 1 || v.WholeNote > MaxTick {
		return fmt.Errorf("whole note should be 1..%d ticks, got %d", MaxTick, v.WholeNote)
	}
	if v.Tempo <= 0 || v.Tempo > MaxTempo {
		return fmt.Errorf("tempo should be in (0, %v], got %v", MaxTempo, v.Tempo)
	}
	if v.MaxVolume < 1 {
		return errors.New("max volume should be > 0")
	}
	if v.Channels < 1 || v.Channels > MaxChannels {
		return fmt.Errorf("channel count should be 1..%d, got %d", MaxChannels, v.Channels)
	}
	return nil
}

// Config returns the values as a flat configuration array, in the order
// reference pitch, tick length, whole note, tempo, max volume, channels.
func (v PlatformValues) Config() ResConfig {
	return ResConfig{
		float64(v.ReferencePitch),
		float64(v.TickLength),
		float64(v.WholeNote),
		float64(v.Tempo),
		float64(v.MaxVolume),
		float64(v.Channels),
	}
}

// PlatformValuesFrom is the inverse of PlatformValues.Config.
func PlatformValuesFrom(conf ResConfig) (PlatformValues, error) {
	if err := conf.CheckSchema(PlatformSchema); err != nil {
		return PlatformValues{}, fmt.Errorf("invalid platform values: %w", err)
	}
	f := func(i int) float64 { v, _ := conf.Float(i); return v }
	v := PlatformValues{
		ReferencePitch: float32(f(0)),
		TickLength:     float32(f(1)),
		WholeNote:      uint32(f(2)),
		Tempo:          float32(f(3)),
		MaxVolume:      uint32(f(4)),
		Channels:       uint32(f(5)),
	}
	return v, v.Validate()
}
