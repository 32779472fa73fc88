package builtin

import (
	"math"

	"github.com/vsariola/mleml"
)

const (
	ConvertNoteID = "BUILTIN_CONVERT_NOTE"
	TransposeID   = "BUILTIN_TRANSPOSE"
)

// ConvertNote returns a mod turning a Note into a ReadyNote, the same way a
// channel does, but with all the values coming from the config: frequency
// of C-1, tick length in seconds, octave, post release in ticks and cents
// added to every note. Notes without a length are rejected.
func ConvertNote() *mleml.SimpleMod {
	return mleml.NewSimpleMod(mleml.Info{
		ID:          ConvertNoteID,
		Name:        "Prepare note for playing",
		Description: "Converts a note into physical units",
		Schema:      mleml.MustResConfig(0.0, 0.0, 0.0, 0.0, 0.0),
	}, mleml.NoteType, mleml.ReadyNoteType, convertNote, stateless)
}

func convertNote(input mleml.ModData, conf mleml.ResConfig, _ mleml.ResState) (mleml.ModData, mleml.ResState, error) {
	note := input.(mleml.Note)
	if note.Len == 0 {
		return nil, nil, mleml.Errorf("length of the note is unspecified")
	}
	cccc, _ := conf.Float(0)
	tick, _ := conf.Float(1)
	if cccc <= 0 || tick <= 0 {
		return nil, nil, mleml.Errorf("frequency of C-1 and tick length should be positive")
	}
	octave, _ := conf.Int(2)
	if octave < 0 || octave > math.MaxUint8 {
		return nil, nil, mleml.Errorf("octave should be 0..255, got %d", octave)
	}
	postRelease, _ := conf.Int(3)
	if postRelease < 0 || postRelease > math.MaxUint8 {
		return nil, nil, mleml.Errorf("post release should be 0..255, got %d", postRelease)
	}
	cents, _ := conf.Int(4)
	if cents < math.MinInt8 || cents > math.MaxInt8 {
		return nil, nil, mleml.Errorf("cents should be %d..%d, got %d", math.MinInt8, math.MaxInt8, cents)
	}
	settings := mleml.ChannelSettings{
		PostRelease: uint8(postRelease),
		Octave:      uint8(octave),
		Detune:      int8(cents),
	}
	vals := mleml.PlatformValues{ReferencePitch: float32(cccc), TickLength: float32(tick)}
	return mleml.ReadyNoteFrom(note, settings, vals), nil, nil
}

// Transpose returns a mod moving the pitch of every note by the number of
// semitones in its config. Rests pass through unchanged.
func Transpose() *mleml.SimpleMod {
	return mleml.NewSimpleMod(mleml.Info{
		ID:          TransposeID,
		Name:        "Transpose",
		Description: "Moves notes up or down by semitones",
		Schema:      mleml.MustResConfig(0.0),
	}, mleml.NoteType, mleml.NoteType, transpose, stateless)
}

func transpose(input mleml.ModData, conf mleml.ResConfig, _ mleml.ResState) (mleml.ModData, mleml.ResState, error) {
	note := input.(mleml.Note)
	if note.Rest {
		return note, nil, nil
	}
	semitones, _ := conf.Int(0)
	p := int(note.Pitch) + semitones
	if p < math.MinInt8 || p > math.MaxInt8 {
		return nil, nil, mleml.Errorf("transposed pitch %d out of range", p)
	}
	note.Pitch = int8(p)
	return note, nil, nil
}
