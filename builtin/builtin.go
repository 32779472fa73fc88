// Package builtin contains resources implemented in Go: the note conversion
// and transposition mods, the oscillator and sampler instruments, a gain
// sound mod and two mixers.
package builtin

import (
	"github.com/vsariola/mleml"
)

// Mods returns the builtin mods that need no external data.
func Mods() []mleml.Mod {
	return []mleml.Mod{ConvertNote(), Transpose(), Oscillator(), Gain()}
}

// Platforms returns the builtin mixers for the given platform values,
// producing sound at the given sampling rate.
func Platforms(vals mleml.PlatformValues, rate uint32) []mleml.Platform {
	return []mleml.Platform{Overlap(vals, rate), TickMixer(vals, rate)}
}

func stateless(s mleml.ResState) bool {
	return len(s) == 0
}
