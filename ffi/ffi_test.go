package ffi_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/vsariola/mleml"
	"github.com/vsariola/mleml/ffi"
	"github.com/vsariola/mleml/ffi/internal/fakelib"
)

func newMod(t *testing.T, in, out mleml.DataType, sym ffi.Symbols) *ffi.Mod {
	t.Helper()
	m, err := ffi.NewMod(ffi.ModDescriptor{ID: "fake", Input: in, Output: out}, sym)
	if err != nil {
		t.Fatalf("NewMod failed: %v", err)
	}
	fakelib.Reset()
	return m
}

func newMixer(t *testing.T, sym ffi.Symbols) *ffi.Platform {
	t.Helper()
	p, err := ffi.NewPlatform(ffi.PlatformDescriptor{ID: "fakemix", Values: mleml.DefaultPlatformValues(2)}, sym)
	if err != nil {
		t.Fatalf("NewPlatform failed: %v", err)
	}
	fakelib.Reset()
	return p
}

func mustPanicWithViolation(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if _, ok := r.(*ffi.ContractViolation); !ok {
			t.Fatalf("expected a *ffi.ContractViolation panic, got %v", r)
		}
	}()
	f()
}

func TestApplyFailure(t *testing.T) {
	m := newMod(t, mleml.NoteType, mleml.NoteType, fakelib.Fail())
	_, _, err := m.Apply(mleml.NewNote(0, 4), nil, nil)
	var resErr *mleml.ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected a *mleml.ResourceError, got %v", err)
	}
	if want := "no sound for nöte"; resErr.Msg != want {
		t.Errorf("wrong message: got %q, want %q", resErr.Msg, want)
	}
	if got := fakelib.Deallocs(); got != 1 {
		t.Errorf("deallocate called %d times, want 1", got)
	}
}

func TestApplyEcho(t *testing.T) {
	m := newMod(t, mleml.NoteType, mleml.NoteType, fakelib.Echo())
	out, state, err := m.Apply(mleml.NewNote(5, 4), nil, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if note := out.(mleml.Note); note.Pitch != 6 || note.Len != 4 || note.Velocity != mleml.DefaultVelocity {
		t.Errorf("wrong note: got %+v", note)
	}
	if !state.Equal(mleml.ResState{1}) {
		t.Errorf("wrong state: got %v, want [1]", state)
	}
	_, state, err = m.Apply(mleml.NewRest(2), nil, state)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !state.Equal(mleml.ResState{2}) {
		t.Errorf("state was not threaded: got %v, want [2]", state)
	}
	if got := fakelib.Deallocs(); got != 2 {
		t.Errorf("deallocate called %d times, want 2", got)
	}
	if got := mleml.Name(m); got != "Fake echo" {
		t.Errorf("wrong name: got %q", got)
	}
}

func TestApplyFailureWithoutMessage(t *testing.T) {
	m := newMod(t, mleml.NoteType, mleml.NoteType, fakelib.Mute())
	mustPanicWithViolation(t, func() { m.Apply(mleml.NewNote(0, 1), nil, nil) })
	if got := fakelib.Deallocs(); got != 1 {
		t.Errorf("deallocate called %d times, want 1", got)
	}
}

func TestApplyNullItem(t *testing.T) {
	m := newMod(t, mleml.NoteType, mleml.NoteType, fakelib.Null())
	mustPanicWithViolation(t, func() { m.Apply(mleml.NewNote(0, 1), nil, nil) })
	if got := fakelib.Deallocs(); got != 1 {
		t.Errorf("deallocate called %d times, want 1", got)
	}
}

func TestApplySound(t *testing.T) {
	m := newMod(t, mleml.SoundType, mleml.SoundType, fakelib.Halve())
	in := mleml.NewSound([]mleml.Frame{{1, -1}, {0.5, 0.25}}, 8000)
	out, _, err := m.Apply(in, nil, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := mleml.NewSound([]mleml.Frame{{0.5, -0.5}, {0.25, 0.125}}, 8000)
	if !out.(mleml.Sound).Equal(want) {
		t.Errorf("wrong sound: got %v, want %v", out.(mleml.Sound).Frames(), want.Frames())
	}
	if in.Frames()[0] != (mleml.Frame{1, -1}) {
		t.Errorf("input was modified")
	}
}

func TestApplyText(t *testing.T) {
	m := newMod(t, mleml.StringType, mleml.StringType, fakelib.Upper())
	out, _, err := m.Apply(mleml.Text("abc!"), nil, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out != mleml.Text("ABC!") {
		t.Errorf("wrong text: got %q", out)
	}
}

func TestApplyWrongInput(t *testing.T) {
	m := newMod(t, mleml.NoteType, mleml.NoteType, fakelib.Echo())
	_, _, err := m.Apply(mleml.Text("c-4"), nil, nil)
	var typeErr *mleml.InputTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected a *mleml.InputTypeError, got %v", err)
	}
	if got := fakelib.Deallocs(); got != 0 {
		t.Errorf("foreign code was called %d times for a wrong input", got)
	}
}

func TestChecks(t *testing.T) {
	m := newMod(t, mleml.NoteType, mleml.NoteType, fakelib.Echo())
	if err := m.CheckConfig(nil); err != nil {
		t.Errorf("empty config rejected: %v", err)
	}
	if !m.CheckState(nil) || !m.CheckState(mleml.ResState{3}) {
		t.Errorf("valid state rejected")
	}
	if m.CheckState(mleml.ResState{1, 2}) {
		t.Errorf("state of two bytes accepted")
	}
	if got := fakelib.Deallocs(); got != 4 {
		t.Errorf("deallocate called %d times, want 4", got)
	}
	if err := m.CheckConfig(mleml.MustResConfig(1.0)); !errors.Is(err, mleml.ErrConfigLength) {
		t.Errorf("config not matching the schema accepted: %v", err)
	}
	if got := fakelib.Deallocs(); got != 4 {
		t.Errorf("foreign code was called for a config not matching the schema")
	}
}

func TestMissingSymbol(t *testing.T) {
	sym := fakelib.Echo()
	sym.Deallocate = 0
	if _, err := ffi.NewMod(ffi.ModDescriptor{Input: mleml.NoteType, Output: mleml.NoteType}, sym); !errors.Is(err, ffi.ErrMissingSymbol) {
		t.Errorf("expected ErrMissingSymbol, got %v", err)
	}
	if _, err := ffi.NewPlatform(ffi.PlatformDescriptor{Values: mleml.DefaultPlatformValues(1)}, ffi.Symbols{}); !errors.Is(err, ffi.ErrMissingSymbol) {
		t.Errorf("expected ErrMissingSymbol, got %v", err)
	}
}

func TestMixLeftovers(t *testing.T) {
	p := newMixer(t, fakelib.Mixer())
	a := []mleml.Frame{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	b := []mleml.Frame{{10, 10}, {20, 20}}
	res, err := p.Mix([]mleml.ChannelSound{{New: true, Frames: a}, {New: true, Frames: b}}, 7, nil, nil)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	want := mleml.NewSound([]mleml.Frame{{11, 11}, {22, 22}}, 44100)
	if !res.Sound.Equal(want) {
		t.Errorf("wrong sound: got %v, want %v", res.Sound.Frames(), want.Frames())
	}
	if len(res.Leftovers) != 2 {
		t.Fatalf("got %d leftovers, want 2", len(res.Leftovers))
	}
	if l := res.Leftovers[0]; len(l) != 2 || l[0] != a[2] || l[1] != a[3] {
		t.Errorf("wrong leftover for the first channel: got %v", l)
	}
	if res.Leftovers[1] != nil {
		t.Errorf("second channel should have been consumed, got %v", res.Leftovers[1])
	}
	if len(res.State) != 4 || binary.LittleEndian.Uint32(res.State) != 7 {
		t.Errorf("state should hold the play time, got %v", res.State)
	}
	if got := fakelib.Deallocs(); got != 1 {
		t.Errorf("deallocate called %d times, want 1", got)
	}
}

func TestMixBadLeftover(t *testing.T) {
	p := newMixer(t, fakelib.BadMixer())
	ch := []mleml.ChannelSound{{New: true, Frames: []mleml.Frame{{1, 1}}}, {}}
	mustPanicWithViolation(t, func() { p.Mix(ch, 0, nil, nil) })
	if got := fakelib.Deallocs(); got != 1 {
		t.Errorf("deallocate called %d times, want 1", got)
	}
}

func TestMixLeftoverCount(t *testing.T) {
	p := newMixer(t, fakelib.ShortMixer())
	_, err := p.Mix(make([]mleml.ChannelSound, 2), 0, nil, nil)
	var resErr *mleml.ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected a *mleml.ResourceError, got %v", err)
	}
}

func TestMixChannelCount(t *testing.T) {
	p := newMixer(t, fakelib.Mixer())
	if _, err := p.Mix(make([]mleml.ChannelSound, 3), 0, nil, nil); !errors.Is(err, mleml.ErrChannelCount) {
		t.Errorf("expected ErrChannelCount, got %v", err)
	}
	if got := fakelib.Deallocs(); got != 0 {
		t.Errorf("foreign code was called for a wrong channel count")
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	err := ffi.Header(&buf, "MySynth",
		ffi.HeaderEntry{Prefix: "echo", Input: mleml.NoteType, Output: mleml.NoteType},
		ffi.HeaderEntry{Prefix: "osc", Input: mleml.ReadyNoteType, Output: mleml.SoundType},
		ffi.HeaderEntry{Prefix: "mixer", Platform: true},
	)
	if err != nil {
		t.Fatalf("Header failed: %v", err)
	}
	h := buf.String()
	for _, want := range []string{
		"#ifndef MY_SYNTH_H",
		"typedef struct mleml_return {",
		"mleml_return echo_apply(const mleml_note *input, size_t conf_len, const uint8_t *conf,",
		"mleml_return osc_apply(const mleml_ready_note *input,",
		"the item returned is a mleml_sound",
		"mleml_return mixer_mix(size_t channels_len, const mleml_channel *channels, uint32_t play_time,",
		"mleml_return mixer_check_state(size_t state_len, const uint8_t *state);",
		"const char *echo_orig_name(void);",
		"void osc_deallocate(void);",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("header does not contain %q", want)
		}
	}
	if err := ffi.Header(&buf, "x", ffi.HeaderEntry{Prefix: "9lives"}); err == nil {
		t.Errorf("invalid prefix accepted")
	}
}
