package mleml_test

import (
	"errors"
	"math"
	"testing"

	"github.com/vsariola/mleml"
)

// recorder is an instrument that returns one frame holding the pitch and the
// length of the ReadyNote, and counts its calls in its state.
var recorder = mleml.NewSimpleMod(mleml.Info{ID: "recorder"}, mleml.ReadyNoteType, mleml.SoundType,
	func(input mleml.ModData, _ mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
		n := input.(mleml.ReadyNote)
		frames := []mleml.Frame{{n.Pitch, n.Len}, {n.Decay, float32(n.Velocity)}}
		return mleml.NewSound(frames, 1000), mleml.ResState{byte(len(state))}, nil
	}, nil)

var octaveUp = mleml.NewSimpleMod(mleml.Info{ID: "octave-up"}, mleml.NoteType, mleml.NoteType,
	func(input mleml.ModData, _ mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
		n := input.(mleml.Note)
		n.Pitch += 12
		return n, append(state.Copy(), 'n'), nil
	}, nil)

var halve = mleml.NewSimpleMod(mleml.Info{ID: "halve"}, mleml.SoundType, mleml.SoundType,
	func(input mleml.ModData, _ mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
		s := input.(mleml.Sound)
		frames := make([]mleml.Frame, s.Len())
		for i, f := range s.Frames() {
			frames[i] = mleml.Frame{f[0] / 2, f[1] / 2}
		}
		return mleml.NewSound(frames, s.Rate()), append(state.Copy(), 's'), nil
	}, nil)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPitchFormula(t *testing.T) {
	vals := mleml.DefaultPlatformValues(1)
	settings := mleml.ChannelSettings{DefaultLength: 4, Octave: 4}
	r := mleml.ReadyNoteFrom(mleml.NewNote(0, 1), settings, vals)
	if want := 8.175799 * 32; !approx(float64(r.Pitch), want, 1e-3) {
		t.Errorf("C4 pitch = %v, want %v", r.Pitch, want)
	}
	r = mleml.ReadyNoteFrom(mleml.NewNote(9, 1), settings, vals)
	if !approx(float64(r.Pitch), 440, 1e-2) {
		t.Errorf("A4 pitch = %v, want 440", r.Pitch)
	}
	settings.Detune = 100
	r = mleml.ReadyNoteFrom(mleml.NewNote(8, 1), settings, vals)
	if !approx(float64(r.Pitch), 440, 1e-2) {
		t.Errorf("detuned G#4 pitch = %v, want 440", r.Pitch)
	}
	r = mleml.ReadyNoteFrom(mleml.NewRest(1), settings, vals)
	if !r.Rest || r.Pitch != 0 {
		t.Errorf("rest converted to %+v", r)
	}
}

func TestLengthFallback(t *testing.T) {
	vals := mleml.DefaultPlatformValues(1)
	vals.TickLength = 0.125
	settings := mleml.ChannelSettings{DefaultLength: 4, PostRelease: 2}
	note := mleml.Note{Velocity: 77}
	r := mleml.ReadyNoteFrom(note, settings, vals)
	if r.Len != 0.5 {
		t.Errorf("length = %v, want 0.5", r.Len)
	}
	if r.Decay != 0.25 {
		t.Errorf("decay = %v, want 0.25", r.Decay)
	}
	if r.Velocity != 77 {
		t.Errorf("velocity = %v, want 77", r.Velocity)
	}
	note.Len = 3
	if r := mleml.ReadyNoteFrom(note, settings, vals); r.Len != 0.375 {
		t.Errorf("explicit length = %v, want 0.375", r.Len)
	}
}

func TestChannelPlay(t *testing.T) {
	vals := mleml.DefaultPlatformValues(1)
	vals.TickLength = 0.125
	ch := mleml.NewChannel("lead", recorder, nil, mleml.ChannelSettings{DefaultLength: 4, PostRelease: 1, Octave: 3})
	ch.AddNoteMod(octaveUp, nil, nil)
	ch.AddSoundMod(halve, nil, mleml.ResState{'x'})
	snd, changes, err := ch.Play(mleml.NewNote(0, 0), vals)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	f := snd.Frames()
	if !approx(float64(f[0][0]), 8.175799*32/2, 1e-3) || f[0][1] != 0.25 {
		t.Errorf("got frame %v, want half of C4 and half of 0.5 s", f[0])
	}
	if f[1][0] != 0.0625 || f[1][1] != mleml.DefaultVelocity/2 {
		t.Errorf("got frame %v, want half of 0.125 s decay and half of the velocity", f[1])
	}
	if !changes.NoteMods[0].Equal(mleml.ResState("n")) || !changes.SoundMods[0].Equal(mleml.ResState("xs")) {
		t.Errorf("unexpected states %+v", changes)
	}
	if ch.NoteStates[0] != nil {
		t.Error("Play modified the channel")
	}
	if err := ch.Commit(changes); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	_, changes, _ = ch.Play(mleml.NewNote(0, 0), vals)
	if !changes.NoteMods[0].Equal(mleml.ResState("nn")) || !changes.Instrument.Equal(mleml.ResState{1}) {
		t.Errorf("states were not threaded: %+v", changes)
	}
}

func TestChannelPlayIsPure(t *testing.T) {
	vals := mleml.DefaultPlatformValues(1)
	ch := mleml.NewChannel("", recorder, nil, mleml.ChannelSettings{DefaultLength: 2, Octave: 4})
	ch.AddSoundMod(halve, nil, nil)
	a, ca, errA := ch.Play(mleml.NewNote(5, 0), vals)
	b, cb, errB := ch.Play(mleml.NewNote(5, 0), vals)
	if errA != nil || errB != nil {
		t.Fatalf("Play failed: %v %v", errA, errB)
	}
	if !a.Equal(b) || !ca.Instrument.Equal(cb.Instrument) || !ca.SoundMods[0].Equal(cb.SoundMods[0]) {
		t.Error("identical calls returned different results")
	}
}

func TestChannelLengthMismatch(t *testing.T) {
	ch := mleml.NewChannel("", recorder, nil, mleml.ChannelSettings{})
	ch.NoteMods = []mleml.Mod{octaveUp}
	ch.NoteConfigs = []mleml.ResConfig{nil}
	if _, _, err := ch.Play(mleml.NewNote(0, 1), mleml.DefaultPlatformValues(1)); !errors.Is(err, mleml.ErrStateCountMismatch) {
		t.Errorf("got %v, want ErrStateCountMismatch", err)
	}
}

func TestChannelStopsAtFailingStage(t *testing.T) {
	failing := mleml.NewSimpleMod(mleml.Info{ID: "failing"}, mleml.SoundType, mleml.SoundType,
		func(mleml.ModData, mleml.ResConfig, mleml.ResState) (mleml.ModData, mleml.ResState, error) {
			return nil, nil, mleml.Errorf("clipping")
		}, nil)
	ch := mleml.NewChannel("", recorder, nil, mleml.ChannelSettings{DefaultLength: 1})
	ch.AddSoundMod(halve, nil, nil)
	ch.AddSoundMod(failing, nil, nil)
	snd, changes, err := ch.Play(mleml.NewNote(0, 0), mleml.DefaultPlatformValues(1))
	var stage *mleml.StageError
	if !errors.As(err, &stage) || stage.Stage != "sound mod" || stage.Index != 1 {
		t.Fatalf("got %v, want failure of sound mod 1", err)
	}
	var re *mleml.ResourceError
	if !errors.As(err, &re) || re.Msg != "clipping" {
		t.Errorf("resource message lost: %v", err)
	}
	if snd.Len() != 0 || changes.SoundMods != nil {
		t.Error("partial results were returned")
	}
}

func TestChannelConfig(t *testing.T) {
	ch := mleml.NewChannel("", recorder, nil, mleml.ChannelSettings{})
	if err := ch.Configure(mleml.MustResConfig(4, 2, 5, -10)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	want := mleml.ChannelSettings{DefaultLength: 4, PostRelease: 2, Octave: 5, Detune: -10}
	if ch.Settings != want {
		t.Errorf("got %+v, want %+v", ch.Settings, want)
	}
	if !ch.Config().Equal(mleml.MustResConfig(4, 2, 5, -10)) {
		t.Errorf("Config() = %v", ch.Config())
	}
	if err := ch.CheckConfig(mleml.MustResConfig(4, 2, 300, 0)); err == nil {
		t.Error("octave 300 should not be accepted")
	}
	if !ch.CheckState(nil) || ch.CheckState(mleml.ResState{1}) {
		t.Error("a channel should accept only the empty state")
	}
}
