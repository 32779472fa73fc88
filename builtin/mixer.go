package builtin

import (
	"encoding/binary"
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/mleml"
)

const (
	OverlapID   = "BUILTIN_OVERLAP_MIXER"
	TickMixerID = "BUILTIN_TICK_MIXER"
)

// mixerSchema is the master volume, in the units of PlatformValues.MaxVolume.
var mixerSchema = mleml.MustResConfig(0.0)

// Overlap returns a mixer that consumes the common overlap of all the
// channels that have sound, i.e. the length of the shortest one, and returns
// the rest of the longer ones as leftovers. Channels with no sound do not
// limit the overlap. The state counts the frames mixed so far.
//
// The leftovers are slices of the input frames.
func Overlap(vals mleml.PlatformValues, rate uint32) *mleml.SimplePlatform {
	return mleml.NewSimplePlatform(mleml.Info{
		ID:          OverlapID,
		Name:        "Overlap mixer",
		Description: "Mixes the common overlap of all channels",
		Schema:      mixerSchema,
	}, vals, func(channels []mleml.ChannelSound, _ uint32, conf mleml.ResConfig, state mleml.ResState) (mleml.MixResult, error) {
		n := math.MaxInt
		for _, c := range channels {
			if len(c.Frames) > 0 {
				n = min(n, len(c.Frames))
			}
		}
		if n == math.MaxInt {
			n = 0
		}
		res, err := mix(channels, n, conf, vals, rate)
		if err != nil {
			return mleml.MixResult{}, err
		}
		res.State = binary.LittleEndian.AppendUint32(nil, MixedFrames(state)+uint32(n))
		return res, nil
	}, func(s mleml.ResState) bool { return len(s) == 0 || len(s) == 4 })
}

// MixedFrames returns the number of frames an Overlap mixer has mixed, as
// recorded in its state.
func MixedFrames(state mleml.ResState) uint32 {
	if len(state) != 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(state)
}

// TickMixer returns a mixer that always consumes exactly one tick of sound
// from every channel. Shorter channels are padded with silence and the rest
// of longer ones is returned as leftovers, so one call always produces one
// tick of output. It keeps no state.
func TickMixer(vals mleml.PlatformValues, rate uint32) *mleml.SimplePlatform {
	n := int(math.Round(float64(vals.TickLength) * float64(rate)))
	return mleml.NewSimplePlatform(mleml.Info{
		ID:          TickMixerID,
		Name:        "Tick mixer",
		Description: "Mixes one tick of all channels per call",
		Schema:      mixerSchema,
	}, vals, func(channels []mleml.ChannelSound, _ uint32, conf mleml.ResConfig, _ mleml.ResState) (mleml.MixResult, error) {
		return mix(channels, n, conf, vals, rate)
	}, stateless)
}

// mix sums the first n frames of every channel, scaled by the master volume.
func mix(channels []mleml.ChannelSound, n int, conf mleml.ResConfig, vals mleml.PlatformValues, rate uint32) (mleml.MixResult, error) {
	volume, _ := conf.Float(0)
	if volume < 0 || volume > float64(vals.MaxVolume) {
		return mleml.MixResult{}, mleml.Errorf("volume should be 0..%d, got %v", vals.MaxVolume, volume)
	}
	frames := make([]mleml.Frame, n)
	out := mleml.Samples(frames)
	leftovers := make([][]mleml.Frame, len(channels))
	for i, c := range channels {
		m := min(n, len(c.Frames))
		if m > 0 {
			vek32.Add_Inplace(out[:2*m], mleml.Samples(c.Frames[:m]))
		}
		if len(c.Frames) > n {
			leftovers[i] = c.Frames[n:]
		}
	}
	if n > 0 {
		vek32.MulNumber_Inplace(out, float32(volume)/float32(vals.MaxVolume))
	}
	return mleml.MixResult{Sound: mleml.NewSound(frames, rate), Leftovers: leftovers}, nil
}
