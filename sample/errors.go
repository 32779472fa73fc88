package sample

import "errors"

var (
	ErrNotWavFile      = errors.New("not a WAV file")
	ErrNotAiffFile     = errors.New("not an AIFF file")
	ErrUnsupportedBits = errors.New("unsupported bit depth")
	ErrUnknownFormat   = errors.New("unknown audio file format")
	ErrNoAudio         = errors.New("file has no audio channels")
)
