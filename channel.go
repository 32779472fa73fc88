package mleml

import (
	"errors"
	"fmt"
	"math"
)

type (
	// ChannelSettings are the per channel values used to turn an abstract
	// Note into a ReadyNote.
	ChannelSettings struct {
		// DefaultLength is the length, in ticks, of notes without a length.
		DefaultLength uint8 `yaml:"defaultlength"`
		// PostRelease is the decay of every note, in ticks.
		PostRelease uint8 `yaml:"postrelease"`
		Octave      uint8 `yaml:"octave"`
		// Detune is added to the cents of every note.
		Detune int8 `yaml:",omitempty"`
	}

	// Channel renders one note at a time into sound: the note goes through
	// the note mods, is converted into a ReadyNote, rendered by the
	// instrument and then goes through the sound mods. Every mod has its own
	// config and state at the same position of the corresponding lists.
	//
	// Play never modifies the channel; the caller persists the returned
	// states with Commit.
	Channel struct {
		id          string
		name        string
		description string

		Settings ChannelSettings

		NoteMods    []Mod
		NoteConfigs []ResConfig
		NoteStates  []ResState

		Instrument       Mod
		InstrumentConfig ResConfig
		InstrumentState  ResState

		SoundMods    []Mod
		SoundConfigs []ResConfig
		SoundStates  []ResState
	}

	// StateChanges are the new states returned by Channel.Play, in the same
	// positions as the mods of the channel.
	StateChanges struct {
		NoteMods   []ResState
		Instrument ResState
		SoundMods  []ResState
	}
)

// ChannelSchema is the schema of the config of a channel: default length,
// post release, octave and detune.
var ChannelSchema = MustResConfig(0.0, 0.0, 0.0, 0.0)

// NewChannel returns a channel playing the given instrument, with no note or
// sound mods.
func NewChannel(name string, instrument Mod, conf ResConfig, settings ChannelSettings) *Channel {
	return &Channel{
		id:               NewID(),
		name:             name,
		Settings:         settings,
		Instrument:       instrument,
		InstrumentConfig: conf,
	}
}

func (c *Channel) ID() string          { return c.id }
func (c *Channel) Description() string { return c.description }

func (c *Channel) OrigName() (string, bool) {
	return c.name, c.name != ""
}

// SetDescription sets the description returned by Description.
func (c *Channel) SetDescription(desc string) {
	c.description = desc
}

func (c *Channel) CheckConfig(conf ResConfig) error {
	if err := conf.CheckSchema(ChannelSchema); err != nil {
		return err
	}
	_, err := settingsFrom(conf)
	return err
}

// CheckState accepts only the empty state, as a channel keeps no state of
// its own; the states of its mods are checked by the mods.
func (c *Channel) CheckState(state ResState) bool {
	return len(state) == 0
}

// Config returns the settings of the channel as a config.
func (c *Channel) Config() ResConfig {
	s := c.Settings
	return ResConfig{float64(s.DefaultLength), float64(s.PostRelease), float64(s.Octave), float64(s.Detune)}
}

// Configure replaces the settings of the channel with the ones in conf.
func (c *Channel) Configure(conf ResConfig) error {
	if err := conf.CheckSchema(ChannelSchema); err != nil {
		return err
	}
	s, err := settingsFrom(conf)
	if err != nil {
		return err
	}
	c.Settings = s
	return nil
}

func settingsFrom(conf ResConfig) (ChannelSettings, error) {
	var v [4]int
	for i := range v {
		x, err := conf.Int(i)
		if err != nil {
			return ChannelSettings{}, err
		}
		v[i] = x
	}
	for i := 0; i < 3; i++ {
		if v[i] < 0 || v[i] > math.MaxUint8 {
			return ChannelSettings{}, fmt.Errorf("channel setting %d out of range: %d", i, v[i])
		}
	}
	if v[3] < math.MinInt8 || v[3] > math.MaxInt8 {
		return ChannelSettings{}, fmt.Errorf("detune out of range: %d", v[3])
	}
	return ChannelSettings{DefaultLength: uint8(v[0]), PostRelease: uint8(v[1]), Octave: uint8(v[2]), Detune: int8(v[3])}, nil
}

// AddNoteMod appends a note mod with its config and initial state.
func (c *Channel) AddNoteMod(m Mod, conf ResConfig, state ResState) {
	c.NoteMods = append(c.NoteMods, m)
	c.NoteConfigs = append(c.NoteConfigs, conf)
	c.NoteStates = append(c.NoteStates, state)
}

// AddSoundMod appends a sound mod with its config and initial state.
func (c *Channel) AddSoundMod(m Mod, conf ResConfig, state ResState) {
	c.SoundMods = append(c.SoundMods, m)
	c.SoundConfigs = append(c.SoundConfigs, conf)
	c.SoundStates = append(c.SoundStates, state)
}

// Validate checks that the lists of mods, configs and states have equal
// lengths and that every mod has the shape its position requires.
func (c *Channel) Validate() error {
	if len(c.NoteMods) != len(c.NoteConfigs) || len(c.NoteMods) != len(c.NoteStates) ||
		len(c.SoundMods) != len(c.SoundConfigs) || len(c.SoundMods) != len(c.SoundStates) {
		return ErrStateCountMismatch
	}
	if c.Instrument == nil {
		return errors.New("channel has no instrument")
	}
	if c.Instrument.InputType() != ReadyNoteType || c.Instrument.OutputType() != SoundType {
		return fmt.Errorf("instrument %v should turn a ReadyNote into a Sound", Name(c.Instrument))
	}
	for i, m := range c.NoteMods {
		if m.InputType() != NoteType || m.OutputType() != NoteType {
			return fmt.Errorf("note mod %d (%v) should turn a Note into a Note", i, Name(m))
		}
	}
	for i, m := range c.SoundMods {
		if m.InputType() != SoundType || m.OutputType() != SoundType {
			return fmt.Errorf("sound mod %d (%v) should turn a Sound into a Sound", i, Name(m))
		}
	}
	return nil
}

// Play renders note into sound. All the checks are done before any mod is
// applied, and the first failing mod stops the processing: then no sound
// and no states are returned.
func (c *Channel) Play(note Note, vals PlatformValues) (Sound, StateChanges, error) {
	if err := c.Validate(); err != nil {
		return Sound{}, StateChanges{}, err
	}
	changes := StateChanges{
		NoteMods:  make([]ResState, len(c.NoteMods)),
		SoundMods: make([]ResState, len(c.SoundMods)),
	}
	var data ModData = note
	for i, m := range c.NoteMods {
		out, st, err := m.Apply(data, c.NoteConfigs[i], c.NoteStates[i])
		if err != nil {
			return Sound{}, StateChanges{}, &StageError{Stage: "note mod", Index: i, Err: err}
		}
		data, changes.NoteMods[i] = out, st
	}
	n, ok := data.(Note)
	if !ok {
		return Sound{}, StateChanges{}, fmt.Errorf("note mods produced %v instead of a Note", typeOf(data))
	}
	ready := ReadyNoteFrom(n, c.Settings, vals)
	out, st, err := c.Instrument.Apply(ready, c.InstrumentConfig, c.InstrumentState)
	if err != nil {
		return Sound{}, StateChanges{}, &StageError{Stage: "instrument", Index: 0, Err: err}
	}
	changes.Instrument = st
	for i, m := range c.SoundMods {
		out, st, err = m.Apply(out, c.SoundConfigs[i], c.SoundStates[i])
		if err != nil {
			return Sound{}, StateChanges{}, &StageError{Stage: "sound mod", Index: i, Err: err}
		}
		changes.SoundMods[i] = st
	}
	snd, ok := out.(Sound)
	if !ok {
		return Sound{}, StateChanges{}, fmt.Errorf("channel produced %v instead of a Sound", typeOf(out))
	}
	return snd, changes, nil
}

// Commit replaces the states of the channel with the ones returned by Play.
func (c *Channel) Commit(changes StateChanges) error {
	if len(changes.NoteMods) != len(c.NoteMods) || len(changes.SoundMods) != len(c.SoundMods) {
		return ErrStateCountMismatch
	}
	copy(c.NoteStates, changes.NoteMods)
	c.InstrumentState = changes.Instrument
	copy(c.SoundStates, changes.SoundMods)
	return nil
}

// ReadyNoteFrom converts an abstract note into physical units. The length
// falls back to the default length of the channel, the decay is always the
// post release of the channel and the pitch is
//
//	reference pitch * 2^(1 + semitone/12 + cents/1200 + octave)
//
// so that semitone 0 in octave 4 is middle C.
func ReadyNoteFrom(n Note, s ChannelSettings, vals PlatformValues) ReadyNote {
	length := n.Len
	if length == 0 {
		length = s.DefaultLength
	}
	r := ReadyNote{
		Len:      float32(length) * vals.TickLength,
		Decay:    float32(s.PostRelease) * vals.TickLength,
		Rest:     n.Rest,
		Velocity: n.Velocity,
	}
	if !n.Rest {
		cents := float64(n.Cents) + float64(s.Detune)
		exp := 1 + float64(n.Pitch)/12 + cents/1200 + float64(s.Octave)
		r.Pitch = float32(float64(vals.ReferencePitch) * math.Exp2(exp))
	}
	return r
}
