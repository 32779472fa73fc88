package mleml

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wav encodes the sound as a stereo .wav file, either as float32 or, if pcm16
// is true, as 16-bit signed integers.
func (s Sound) Wav(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(2*s.Len(), int(s.rate), pcm16, buf)
	err := rawToBuffer(Samples(s.frames), pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes the sound as interleaved little-endian samples with no header.
func (s Sound) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := rawToBuffer(Samples(s.frames), pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

// WriteWav writes the sound as an integer PCM .wav file with the given bit
// depth (8, 16, 24 or 32) using the go-audio encoder.
func WriteWav(w io.WriteSeeker, s Sound, bitDepth int) error {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	enc := wav.NewEncoder(w, int(s.rate), bitDepth, 2, 1)
	samples := Samples(s.frames)
	scale := float64(int64(1)<<(bitDepth-1) - 1)
	ibuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: int(s.rate)},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range samples {
		ibuf.Data[i] = int(math.Round(float64(clamp32(v)) * scale))
	}
	if err := enc.Write(ibuf); err != nil {
		return fmt.Errorf("could not encode wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish wav file: %w", err)
	}
	return nil
}

func rawToBuffer(samples []float32, pcm16 bool, buf *bytes.Buffer) error {
	var data any = samples
	if pcm16 {
		ints := make([]int16, len(samples))
		for i, v := range samples {
			ints[i] = int16(clamp32(v) * math.MaxInt16)
		}
		data = ints
	}
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavFormat is the body of the "fmt " chunk of a .wav file.
type wavFormat struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// wavHeader writes the header of a stereo .wav file of float32 or int16
// samples into buf. numSamples is twice the number of frames. Float files
// get the extended format chunk and a fact chunk, as the format requires for
// non-PCM data.
func wavHeader(numSamples int, sampleRate int, pcm16 bool, buf *bytes.Buffer) {
	const channels = 2
	f := wavFormat{Format: 3, Channels: channels, SampleRate: uint32(sampleRate), BitsPerSample: 32} // IEEE float
	if pcm16 {
		f.Format, f.BitsPerSample = 1, 16
	}
	bytesPerSample := uint32(f.BitsPerSample / 8)
	f.BlockAlign = uint16(channels * bytesPerSample)
	f.ByteRate = f.SampleRate * uint32(f.BlockAlign)
	dataSize := bytesPerSample * uint32(numSamples)
	fmtSize, extra := uint32(16), uint32(0)
	if !pcm16 {
		fmtSize, extra = 18, 12 // extension size field + fact chunk
	}
	le := binary.LittleEndian
	buf.WriteString("RIFF")
	binary.Write(buf, le, 4+8+fmtSize+extra+8+dataSize)
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, le, fmtSize)
	binary.Write(buf, le, f)
	if !pcm16 {
		binary.Write(buf, le, uint16(0))
		buf.WriteString("fact")
		binary.Write(buf, le, [2]uint32{4, uint32(numSamples / channels)})
	}
	buf.WriteString("data")
	binary.Write(buf, le, dataSize)
}

func clamp32(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
