package builtin

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/mleml"
)

const (
	OscillatorID = "BUILTIN_OSCILLATOR"

	// MaxRate is the largest sampling rate the instruments render at.
	MaxRate = 384000
)

// Waveforms lists the waveforms accepted by the oscillator.
var Waveforms = []string{"sine", "square", "saw", "triangle"}

// Oscillator returns an instrument rendering a note with a single
// oscillator. The config is the waveform (see Waveforms), gain and sampling
// rate in Hz. The note sounds at full amplitude for its length and then
// fades out linearly over its decay. Rests produce silence of the note
// length.
func Oscillator() *mleml.SimpleMod {
	return mleml.NewSimpleMod(mleml.Info{
		ID:          OscillatorID,
		Name:        "Oscillator",
		Description: "Single oscillator instrument with a linear release",
		Schema:      mleml.MustResConfig("sine", 0.0, 0.0),
	}, mleml.ReadyNoteType, mleml.SoundType, oscillate, stateless)
}

func oscillate(input mleml.ModData, conf mleml.ResConfig, _ mleml.ResState) (mleml.ModData, mleml.ResState, error) {
	note := input.(mleml.ReadyNote)
	waveform, _ := conf.Text(0)
	gain, _ := conf.Float(1)
	rate, err := rateFrom(conf, 2)
	if err != nil {
		return nil, nil, err
	}
	wave, ok := waveFuncs[waveform]
	if !ok {
		return nil, nil, mleml.Errorf("unknown waveform %q", waveform)
	}
	if note.Rest {
		return mleml.Silence(frameCount(note.Len, rate), rate), nil, nil
	}
	sustain := frameCount(note.Len, rate)
	mono := make([]float32, sustain+frameCount(note.Decay, rate))
	step := float64(note.Pitch) / float64(rate)
	for i := range mono {
		_, phase := math.Modf(float64(i) * step)
		mono[i] = wave(phase)
	}
	vek32.Mul_Inplace(mono, envelope(len(mono), sustain))
	vek32.MulNumber_Inplace(mono, float32(gain)*velocityGain(note.Velocity))
	return stereo(mono, rate), nil, nil
}

var waveFuncs = map[string]func(phase float64) float32{
	"sine": func(p float64) float32 { return float32(math.Sin(2 * math.Pi * p)) },
	"square": func(p float64) float32 {
		if p < 0.5 {
			return 1
		}
		return -1
	},
	"saw":      func(p float64) float32 { return float32(2*p - 1) },
	"triangle": func(p float64) float32 { return float32(1 - 4*math.Abs(p-0.5)) },
}

// NewSampler returns an instrument playing snd, resampled so that a note of
// the root frequency plays it at its original speed. The config is the root
// frequency in Hz and the gain. The output has the sampling rate of snd and
// ends when either the note has decayed or the sample has ended.
func NewSampler(name string, snd mleml.Sound) *mleml.SimpleMod {
	return mleml.NewSimpleMod(mleml.Info{
		Name:        name,
		Description: "Sample player with a linear release",
		Schema:      mleml.MustResConfig(0.0, 0.0),
	}, mleml.ReadyNoteType, mleml.SoundType, func(input mleml.ModData, conf mleml.ResConfig, _ mleml.ResState) (mleml.ModData, mleml.ResState, error) {
		return sample(snd, input.(mleml.ReadyNote), conf)
	}, stateless)
}

func sample(snd mleml.Sound, note mleml.ReadyNote, conf mleml.ResConfig) (mleml.ModData, mleml.ResState, error) {
	root, _ := conf.Float(0)
	gain, _ := conf.Float(1)
	if root <= 0 {
		return nil, nil, mleml.Errorf("root frequency should be > 0, got %v", root)
	}
	rate := snd.Rate()
	if note.Rest || snd.Len() == 0 {
		return mleml.Silence(frameCount(note.Len, rate), rate), nil, nil
	}
	if note.Pitch <= 0 {
		return nil, nil, mleml.Errorf("pitch should be > 0, got %v", note.Pitch)
	}
	sustain := frameCount(note.Len, rate)
	n := sustain + frameCount(note.Decay, rate)
	ratio := float64(note.Pitch) / root
	if avail := int(float64(snd.Len()-1)/ratio) + 1; avail < n {
		n = avail
	}
	src := snd.Frames()
	left, right := make([]float32, n), make([]float32, n)
	for i := range left {
		pos := float64(i) * ratio
		j := int(pos)
		frac := float32(pos - float64(j))
		a := src[j]
		b := a
		if j+1 < len(src) {
			b = src[j+1]
		}
		left[i] = a[0] + (b[0]-a[0])*frac
		right[i] = a[1] + (b[1]-a[1])*frac
	}
	env := envelope(n, sustain)
	g := float32(gain) * velocityGain(note.Velocity)
	for _, c := range [][]float32{left, right} {
		vek32.Mul_Inplace(c, env)
		vek32.MulNumber_Inplace(c, g)
	}
	frames := make([]mleml.Frame, n)
	for i := range frames {
		frames[i] = mleml.Frame{left[i], right[i]}
	}
	return mleml.NewSound(frames, rate), nil, nil
}

// envelope returns n gains that stay at 1 for sustain frames and then fall
// linearly to 0 at frame n.
func envelope(n, sustain int) []float32 {
	env := vek32.Repeat(1, n)
	if release := n - sustain; release > 0 {
		for i := sustain; i < n; i++ {
			env[i] = float32(n-i) / float32(release+1)
		}
	}
	return env
}

func velocityGain(v uint8) float32 {
	return float32(v) / math.MaxUint8
}

func frameCount(seconds float32, rate uint32) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(float64(seconds) * float64(rate)))
}

func rateFrom(conf mleml.ResConfig, i int) (uint32, error) {
	r, _ := conf.Float(i)
	if r < 1 || r > MaxRate {
		return 0, mleml.Errorf("sampling rate should be 1..%d, got %v", MaxRate, r)
	}
	return uint32(r), nil
}

func stereo(mono []float32, rate uint32) mleml.Sound {
	frames := make([]mleml.Frame, len(mono))
	for i, v := range mono {
		frames[i] = mleml.Frame{v, v}
	}
	return mleml.NewSound(frames, rate)
}
