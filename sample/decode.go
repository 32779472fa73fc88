// Package sample decodes audio files into sounds, to be played by the
// sampler instrument. WAV, AIFF, MP3 and Ogg Vorbis files are supported.
package sample

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/vsariola/mleml"
)

// Open decodes the file at path, choosing the decoder by the extension.
func Open(path string) (mleml.Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return mleml.Sound{}, fmt.Errorf("could not open sample: %w", err)
	}
	defer f.Close()
	var snd mleml.Sound
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		snd, err = DecodeWav(f)
	case ".aif", ".aiff":
		snd, err = DecodeAiff(f)
	case ".mp3":
		snd, err = DecodeMP3(f)
	case ".ogg", ".oga":
		snd, err = DecodeVorbis(f)
	default:
		return mleml.Sound{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return mleml.Sound{}, fmt.Errorf("could not decode %v: %w", filepath.Base(path), err)
	}
	return snd, nil
}

// pcmReader is what the go-audio WAV and AIFF decoders have in common.
type pcmReader interface {
	Format() *audio.Format
	PCMBuffer(buf *audio.IntBuffer) (int, error)
}

// DecodeWav decodes an integer PCM WAV file.
func DecodeWav(r io.ReadSeeker) (mleml.Sound, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return mleml.Sound{}, ErrNotWavFile
	}
	dec.ReadInfo()
	return readPCM(dec, int(dec.BitDepth))
}

// DecodeAiff decodes an integer PCM AIFF file.
func DecodeAiff(r io.ReadSeeker) (mleml.Sound, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return mleml.Sound{}, ErrNotAiffFile
	}
	dec.ReadInfo()
	return readPCM(dec, int(dec.BitDepth))
}

func readPCM(dec pcmReader, bitDepth int) (mleml.Sound, error) {
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return mleml.Sound{}, fmt.Errorf("%w: %d", ErrUnsupportedBits, bitDepth)
	}
	format := dec.Format()
	if format == nil || format.NumChannels < 1 {
		return mleml.Sound{}, ErrNoAudio
	}
	scale := 1 / float32(int64(1)<<(bitDepth-1))
	buf := &audio.IntBuffer{Format: format, Data: make([]int, 4096*format.NumChannels)}
	var samples []float32
	for {
		n, err := dec.PCMBuffer(buf)
		for _, v := range buf.Data[:n] {
			samples = append(samples, float32(v)*scale)
		}
		if err != nil {
			return mleml.Sound{}, fmt.Errorf("could not read PCM data: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return toSound(samples, format.NumChannels, format.SampleRate), nil
}

// DecodeMP3 decodes an MP3 stream. The decoder always produces 16-bit
// stereo.
func DecodeMP3(r io.Reader) (mleml.Sound, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return mleml.Sound{}, err
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return mleml.Sound{}, fmt.Errorf("could not read MP3 data: %w", err)
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}
	return toSound(samples, 2, dec.SampleRate()), nil
}

// DecodeVorbis decodes an Ogg Vorbis stream.
func DecodeVorbis(r io.Reader) (mleml.Sound, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return mleml.Sound{}, err
	}
	if format.Channels < 1 {
		return mleml.Sound{}, ErrNoAudio
	}
	return toSound(samples, format.Channels, format.SampleRate), nil
}

// toSound turns interleaved samples into stereo frames: mono is played on
// both sides and channels past the second are dropped.
func toSound(samples []float32, channels, rate int) mleml.Sound {
	frames := make([]mleml.Frame, len(samples)/channels)
	for i := range frames {
		s := samples[i*channels:]
		if channels == 1 {
			frames[i] = mleml.Frame{s[0], s[0]}
		} else {
			frames[i] = mleml.Frame{s[0], s[1]}
		}
	}
	return mleml.NewSound(frames, uint32(rate))
}
