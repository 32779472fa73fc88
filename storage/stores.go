package storage

import (
	"encoding/binary"
	"unsafe"

	"github.com/vsariola/mleml"
)

type (
	StateStore = Set[mleml.ResState]
	SoundStore = Set[mleml.Sound]
)

// NewStateStore returns a set of resource states keyed by their bytes.
func NewStateStore() *StateStore {
	return New(func(s mleml.ResState) string { return string(s) })
}

// NewSoundStore returns a set of sounds keyed by their rate and the bits of
// their samples.
func NewSoundStore() *SoundStore {
	return New(soundKey)
}

func soundKey(s mleml.Sound) string {
	samples := mleml.Samples(s.Frames())
	key := make([]byte, 4, 4+4*len(samples))
	binary.LittleEndian.PutUint32(key, s.Rate())
	if len(samples) > 0 {
		key = append(key, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), 4*len(samples))...)
	}
	return string(key)
}
