package builtin

import (
	"github.com/viterin/vek/vek32"
	"github.com/vsariola/mleml"
)

const GainID = "BUILTIN_GAIN"

// Gain returns a sound mod multiplying every sample by the gain in its
// config.
func Gain() *mleml.SimpleMod {
	return mleml.NewSimpleMod(mleml.Info{
		ID:          GainID,
		Name:        "Gain",
		Description: "Multiplies the sound by a constant",
		Schema:      mleml.MustResConfig(0.0),
	}, mleml.SoundType, mleml.SoundType, gain, stateless)
}

func gain(input mleml.ModData, conf mleml.ResConfig, _ mleml.ResState) (mleml.ModData, mleml.ResState, error) {
	snd := input.(mleml.Sound)
	g, _ := conf.Float(0)
	frames := make([]mleml.Frame, snd.Len())
	copy(frames, snd.Frames())
	vek32.MulNumber_Inplace(mleml.Samples(frames), float32(g))
	return mleml.NewSound(frames, snd.Rate()), nil, nil
}
