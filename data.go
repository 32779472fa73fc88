package mleml

import (
	"fmt"
	"math"
	"unsafe"
)

type (
	// DataType identifies a ModData variant. Mods declare the variant they
	// accept and the one they produce, and pipelines compare these to check
	// that adjacent mods fit together.
	DataType int

	// ModData is the closed set of values that flow through mods: Text, Note,
	// ReadyNote and Sound.
	ModData interface {
		Type() DataType
		modData()
	}

	// Text is a plain string passed between mods.
	Text string

	// Note is an abstract note, defined in platform-neutral ticks and
	// semitones. A channel turns it into a ReadyNote before it is rendered.
	Note struct {
		// Len is the note length in ticks. 0 means that the channel's default
		// length is used.
		Len uint8 `yaml:",omitempty"`
		// Pitch is the pitch in semitones relative to C of the channel's
		// octave. Ignored for rests.
		Pitch int8 `yaml:",omitempty"`
		// Rest is true when the note produces no pitch.
		Rest bool `yaml:",omitempty"`
		// Cents is the fine tuning; one cent is 1/100th of a semitone.
		Cents int8 `yaml:",omitempty"`
		// Natural tells that the pitch should not be affected by the key
		// signature.
		Natural bool `yaml:",omitempty"`
		// Velocity of the note. DefaultVelocity is the neutral value.
		Velocity uint8
	}

	// ReadyNote is a note defined in physical units.
	ReadyNote struct {
		// Len is the length of the note in seconds.
		Len float32
		// Decay is the length of the sound generated after the note is
		// released, in seconds.
		Decay float32
		// Pitch is the frequency in Hz. Ignored for rests.
		Pitch float32
		Rest  bool
		// Velocity is passed unchanged from the Note.
		Velocity uint8
	}

	// Frame is a stereo sample frame, left channel first.
	Frame [2]float32

	// Sound is an immutable buffer of stereo frames with a sampling rate.
	// Never modify the slice returned by Frames; make a copy instead.
	Sound struct {
		frames []Frame
		rate   uint32
	}
)

const (
	StringType DataType = iota
	NoteType
	ReadyNoteType
	SoundType
)

// DefaultVelocity is the velocity of a note played neither loud nor soft.
const DefaultVelocity = 128

var dataTypeNames = [...]string{"String", "Note", "ReadyNote", "Sound"}

func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for i, n := range dataTypeNames {
		if n == s {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DataType) UnmarshalText(text []byte) error {
	v, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (Text) Type() DataType      { return StringType }
func (Note) Type() DataType      { return NoteType }
func (ReadyNote) Type() DataType { return ReadyNoteType }
func (Sound) Type() DataType     { return SoundType }

func (Text) modData()      {}
func (Note) modData()      {}
func (ReadyNote) modData() {}
func (Sound) modData()     {}

// NewNote returns a note with the given pitch and length and the default
// velocity.
func NewNote(pitch int8, length uint8) Note {
	return Note{Pitch: pitch, Len: length, Velocity: DefaultVelocity}
}

// NewRest returns a rest with the given length.
func NewRest(length uint8) Note {
	return Note{Rest: true, Len: length, Velocity: DefaultVelocity}
}

// NewSound wraps frames into a Sound. The Sound takes ownership of the
// frames; the caller must not modify them afterwards.
func NewSound(frames []Frame, rate uint32) Sound {
	return Sound{frames: frames, rate: rate}
}

// Silence returns a sound of n zero frames.
func Silence(n int, rate uint32) Sound {
	return Sound{frames: make([]Frame, n), rate: rate}
}

func (s Sound) Frames() []Frame { return s.frames }
func (s Sound) Rate() uint32     { return s.rate }
func (s Sound) Len() int         { return len(s.frames) }

// Duration returns the length of the sound in seconds.
func (s Sound) Duration() float64 {
	if s.rate == 0 {
		return 0
	}
	return float64(len(s.frames)) / float64(s.rate)
}

// Resample returns the sound at another sampling rate, using linear
// interpolation between neighbouring frames. The duration is kept, rounded
// to whole frames.
func (s Sound) Resample(rate uint32) Sound {
	if rate == s.rate || s.rate == 0 || len(s.frames) == 0 {
		return Sound{frames: s.frames, rate: rate}
	}
	n := int(math.Round(float64(len(s.frames)) * float64(rate) / float64(s.rate)))
	step := float64(s.rate) / float64(rate)
	last := len(s.frames) - 1
	frames := make([]Frame, n)
	for i := range frames {
		pos := float64(i) * step
		j := min(int(pos), last)
		a, b := s.frames[j], s.frames[min(j+1, last)]
		frac := float32(pos - float64(j))
		frames[i] = Frame{a[0] + (b[0]-a[0])*frac, a[1] + (b[1]-a[1])*frac}
	}
	return Sound{frames: frames, rate: rate}
}

// Equal reports whether the sounds have the same rate and bit-identical
// frames.
func (s Sound) Equal(other Sound) bool {
	if s.rate != other.rate || len(s.frames) != len(other.frames) {
		return false
	}
	for i, f := range s.frames {
		o := other.frames[i]
		if math.Float32bits(f[0]) != math.Float32bits(o[0]) || math.Float32bits(f[1]) != math.Float32bits(o[1]) {
			return false
		}
	}
	return true
}

// Samples views frames as interleaved float32 samples (L, R, L, R, ...)
// without copying. Writing to the result writes to the frames.
func Samples(frames []Frame) []float32 {
	if len(frames) == 0 {
		return nil
	}
	return unsafe.Slice(&frames[0][0], 2*len(frames))
}

// DataEqual reports whether two ModData values are equal.
func DataEqual(a, b ModData) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	if sa, ok := a.(Sound); ok {
		return sa.Equal(b.(Sound))
	}
	return a == b
}
