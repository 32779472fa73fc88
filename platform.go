package mleml

import "fmt"

type (
	// ChannelSound is the input of a mixer for one channel. New is true when
	// the frames are the start of a freshly played note, and false when they
	// are the leftover of an earlier mix call that should continue exactly
	// where the previous call stopped.
	ChannelSound struct {
		New    bool
		Frames []Frame
	}

	// MixResult is the output of a mixer. Leftovers has one entry per input
	// channel, in the same order as the input; nil means that the channel
	// was consumed completely.
	MixResult struct {
		Sound     Sound
		State     ResState
		Leftovers [][]Frame
	}

	// Platform is a resource that knows the platform wide constants and
	// mixes the sound of all channels. Channels may have sounds of different
	// lengths; a mix call may consume only part of them and return the rest
	// as leftovers, which the caller passes back in a later call.
	Platform interface {
		Resource
		Values() PlatformValues
		// Mix mixes the channels. playTime is the number of ticks elapsed
		// since the start of playback. The number of channels must equal
		// Values().Channels.
		Mix(channels []ChannelSound, playTime uint32, conf ResConfig, state ResState) (MixResult, error)
	}

	// MixFunc is the mixing function of a SimplePlatform. The channel count,
	// config and state are checked before it is called.
	MixFunc func(channels []ChannelSound, playTime uint32, conf ResConfig, state ResState) (MixResult, error)

	// SimplePlatform is a Platform built out of plain functions.
	SimplePlatform struct {
		template
		values PlatformValues
		mix    MixFunc
	}
)

// NewSimplePlatform returns a platform that checks the channel count, the
// config and the state before calling mix, and the leftover count after.
func NewSimplePlatform(info Info, values PlatformValues, mix MixFunc, checkState func(ResState) bool) *SimplePlatform {
	return &SimplePlatform{
		template: template{info: info.withID(), checkState: checkState},
		values:   values,
		mix:      mix,
	}
}

func (p *SimplePlatform) Values() PlatformValues { return p.values }

func (p *SimplePlatform) Mix(channels []ChannelSound, playTime uint32, conf ResConfig, state ResState) (MixResult, error) {
	if err := CheckChannelCount(p, channels); err != nil {
		return MixResult{}, err
	}
	if err := p.CheckConfig(conf); err != nil {
		return MixResult{}, err
	}
	if !p.CheckState(state) {
		return MixResult{}, Errorf("invalid state for %v", Name(p))
	}
	res, err := p.mix(channels, playTime, conf, state)
	if err != nil {
		return MixResult{}, err
	}
	if len(res.Leftovers) != len(channels) {
		return MixResult{}, Errorf("%v returned %d leftovers for %d channels", Name(p), len(res.Leftovers), len(channels))
	}
	return res, nil
}

// CheckChannelCount returns an error wrapping ErrChannelCount if the number
// of channels differs from the one the platform expects.
func CheckChannelCount(p Platform, channels []ChannelSound) error {
	if want := int(p.Values().Channels); len(channels) != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrChannelCount, want, len(channels))
	}
	return nil
}
