// Package song reads song files and renders them: every channel of a song
// plays its timed events through its own mleml.Channel, and a platform
// mixes the sound of all channels tick by tick.
package song

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vsariola/mleml"
)

type (
	// Song is the contents of a song file.
	Song struct {
		// Platform holds the platform values. Channels is filled in from the
		// number of channel definitions if it is zero.
		Platform mleml.PlatformValues `yaml:"platform"`

		// Rate is the sampling rate of the builtin mixers, 44100 if zero.
		Rate      uint32       `yaml:"rate,omitempty"`
		Mixer     ModRef       `yaml:"mixer"`
		Libraries []Library    `yaml:"libraries,omitempty"`
		Channels  []ChannelDef `yaml:"channels"`
	}

	// ModRef refers to a resource by its ID, with the config to use it with.
	// Sample, if set, is the path of an audio file played by a sampler
	// instrument; then ID is ignored.
	ModRef struct {
		ID     string          `yaml:"id,omitempty"`
		Sample string          `yaml:"sample,omitempty"`
		Config mleml.ResConfig `yaml:"config,flow"`
	}

	// Library is a shared library of foreign resources used by the song.
	Library struct {
		Path      string            `yaml:"path"`
		Mods      []ForeignMod      `yaml:"mods,omitempty"`
		Platforms []ForeignPlatform `yaml:"platforms,omitempty"`
	}

	// ForeignMod describes a mod of a Library. Prefix is the prefix of its
	// entry points; ID defaults to the prefix.
	ForeignMod struct {
		Prefix      string          `yaml:"prefix"`
		ID          string          `yaml:"id,omitempty"`
		Description string          `yaml:"description,omitempty"`
		Input       mleml.DataType  `yaml:"input"`
		Output      mleml.DataType  `yaml:"output"`
		Schema      mleml.ResConfig `yaml:"schema,flow"`
	}

	// ForeignPlatform describes a platform of a Library. The platform
	// values of the song are used for it.
	ForeignPlatform struct {
		Prefix      string          `yaml:"prefix"`
		ID          string          `yaml:"id,omitempty"`
		Description string          `yaml:"description,omitempty"`
		Schema      mleml.ResConfig `yaml:"schema,flow"`
	}

	// ChannelDef defines one channel of a song and the events it plays.
	ChannelDef struct {
		Name     string                `yaml:"name,omitempty"`
		Settings mleml.ChannelSettings `yaml:"settings"`

		// Volume is in the units of the MaxVolume of the platform. Nil means
		// full volume.
		Volume     *uint32  `yaml:"volume,omitempty"`
		Instrument ModRef   `yaml:"instrument"`
		NoteMods   []ModRef `yaml:"notemods,omitempty"`
		SoundMods  []ModRef `yaml:"soundmods,omitempty"`
		Events     []Event  `yaml:"events"`
	}

	// Event happens on a channel at a tick. Octave, Length, Detune and
	// Volume change the channel before Note is played.
	Event struct {
		Tick   uint32  `yaml:"tick"`
		Note   *Note   `yaml:"note,omitempty,flow"`
		Octave *uint8  `yaml:"octave,omitempty"`
		Length *uint8  `yaml:"length,omitempty"`
		Detune *int8   `yaml:"detune,omitempty"`
		Volume *uint32 `yaml:"volume,omitempty"`
	}

	// Note is a note of a song file. Velocity defaults to
	// mleml.DefaultVelocity.
	Note struct {
		Pitch    int8   `yaml:"pitch"`
		Len      uint8  `yaml:"len,omitempty"`
		Rest     bool   `yaml:"rest,omitempty"`
		Cents    int8   `yaml:"cents,omitempty"`
		Natural  bool   `yaml:"natural,omitempty"`
		Velocity *uint8 `yaml:"velocity,omitempty"`
	}
)

// DefaultRate is the sampling rate used when a song does not give one.
const DefaultRate = 44100

var ErrNoChannels = errors.New("song has no channels")

// Parse parses a song file, trying first JSON and then YAML.
func Parse(data []byte) (*Song, error) {
	var s Song
	if errJSON := json.Unmarshal(data, &s); errJSON != nil {
		s = Song{}
		if errYaml := yaml.Unmarshal(data, &s); errYaml != nil {
			return nil, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if s.Platform.Channels == 0 {
		s.Platform.Channels = uint32(len(s.Channels))
	}
	if s.Rate == 0 {
		s.Rate = DefaultRate
	}
	return &s, nil
}

// Validate checks the platform values and the order of the events.
func (s *Song) Validate() error {
	if len(s.Channels) == 0 {
		return ErrNoChannels
	}
	if err := s.Platform.Validate(); err != nil {
		return err
	}
	if int(s.Platform.Channels) != len(s.Channels) {
		return fmt.Errorf("%w: platform has %d channels, song has %d", mleml.ErrChannelCount, s.Platform.Channels, len(s.Channels))
	}
	for i, c := range s.Channels {
		for j := 1; j < len(c.Events); j++ {
			if c.Events[j].Tick < c.Events[j-1].Tick {
				return fmt.Errorf("channel %d: event %d at tick %d comes before the previous one at tick %d", i, j, c.Events[j].Tick, c.Events[j-1].Tick)
			}
		}
	}
	return nil
}

// Length returns the tick after the last event of the song.
func (s *Song) Length() uint32 {
	var l uint32
	for _, c := range s.Channels {
		if n := len(c.Events); n > 0 {
			l = max(l, c.Events[n-1].Tick+1)
		}
	}
	return l
}

// Marshal encodes the song as YAML.
func (s *Song) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Note returns the note as a mleml.Note.
func (n Note) Note() mleml.Note {
	v := uint8(mleml.DefaultVelocity)
	if n.Velocity != nil {
		v = *n.Velocity
	}
	return mleml.Note{Len: n.Len, Pitch: n.Pitch, Rest: n.Rest, Cents: n.Cents, Natural: n.Natural, Velocity: v}
}
