package oto

import (
	"encoding/binary"
	"math"

	"github.com/vsariola/mleml"
)

// FramesToFloat32LE appends the frames to buf as interleaved little-endian
// float32 samples, the format the oto context is opened with.
func FramesToFloat32LE(frames []mleml.Frame, buf []byte) []byte {
	for _, v := range mleml.Samples(frames) {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
