package song

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/mleml"
	"github.com/vsariola/mleml/builtin"
	"github.com/vsariola/mleml/sample"
	"github.com/vsariola/mleml/storage"
)

type (
	// Resources are the resources a song can refer to, by ID.
	Resources struct {
		Mods      map[string]mleml.Mod
		Platforms map[string]mleml.Platform
	}

	// Renderer renders a song. Every call to Render starts from the initial
	// state of the song, so rendering the same song twice gives the same
	// sound.
	Renderer struct {
		// Logger receives debug messages about the progress of rendering.
		Logger *slog.Logger

		song          *Song
		platform      mleml.Platform
		channels      []resolvedChannel
		states        *storage.StateStore
		sounds        *storage.SoundStore
		framesPerTick int
		maxStalls     int
	}

	resolvedChannel struct {
		instrument mleml.Mod
		noteMods   []mleml.Mod
		soundMods  []mleml.Mod
	}
)

// ErrStalled is returned when the mixer stops consuming the sound left
// after the last event of the song.
var ErrStalled = errors.New("mixer makes no progress")

// ErrMixerRate is returned when a mixer produces sound at a sampling rate
// other than the rate of the song.
var ErrMixerRate = errors.New("mixer rate differs from the song rate")

// NewResources returns empty resources.
func NewResources() *Resources {
	return &Resources{Mods: map[string]mleml.Mod{}, Platforms: map[string]mleml.Platform{}}
}

// Builtins returns the builtin mods and the builtin mixers for the platform
// values and the rate of the song.
func Builtins(s *Song) *Resources {
	r := NewResources()
	r.AddMod(builtin.Mods()...)
	r.AddPlatform(builtin.Platforms(s.Platform, s.Rate)...)
	return r
}

func (r *Resources) AddMod(mods ...mleml.Mod) {
	for _, m := range mods {
		r.Mods[m.ID()] = m
	}
}

func (r *Resources) AddPlatform(platforms ...mleml.Platform) {
	for _, p := range platforms {
		r.Platforms[p.ID()] = p
	}
}

// NewRenderer resolves the resources used by the song and checks their
// configs. Samples are loaded relative to dir. An empty mixer ID selects the
// builtin tick mixer.
func NewRenderer(s *Song, res *Resources, dir string) (*Renderer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	mixerID := s.Mixer.ID
	if mixerID == "" {
		mixerID = builtin.TickMixerID
	}
	p, ok := res.Platforms[mixerID]
	if !ok {
		return nil, fmt.Errorf("unknown mixer %q", mixerID)
	}
	if got := p.Values().Channels; got != s.Platform.Channels {
		return nil, fmt.Errorf("%w: mixer %v mixes %d channels, song has %d", mleml.ErrChannelCount, mleml.Name(p), got, s.Platform.Channels)
	}
	if err := p.CheckConfig(s.Mixer.Config); err != nil {
		return nil, fmt.Errorf("mixer %v: %w", mleml.Name(p), err)
	}
	fpt := int(math.Round(float64(s.Platform.TickLength) * float64(s.Rate)))
	if fpt < 1 {
		return nil, fmt.Errorf("tick of %v s is shorter than a frame at %d Hz", s.Platform.TickLength, s.Rate)
	}
	r := &Renderer{
		song:          s,
		platform:      p,
		channels:      make([]resolvedChannel, len(s.Channels)),
		states:        storage.NewStateStore(),
		sounds:        storage.NewSoundStore(),
		framesPerTick: fpt,
		maxStalls:     100,
	}
	for i, c := range s.Channels {
		var err error
		rc := &r.channels[i]
		if rc.instrument, err = resolve(c.Instrument, res, dir); err != nil {
			return nil, fmt.Errorf("channel %d instrument: %w", i, err)
		}
		for j, ref := range c.NoteMods {
			m, err := resolve(ref, res, dir)
			if err != nil {
				return nil, fmt.Errorf("channel %d note mod %d: %w", i, j, err)
			}
			rc.noteMods = append(rc.noteMods, m)
		}
		for j, ref := range c.SoundMods {
			m, err := resolve(ref, res, dir)
			if err != nil {
				return nil, fmt.Errorf("channel %d sound mod %d: %w", i, j, err)
			}
			rc.soundMods = append(rc.soundMods, m)
		}
		if _, err := r.channel(i); err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
	}
	return r, nil
}

func resolve(ref ModRef, res *Resources, dir string) (mleml.Mod, error) {
	var m mleml.Mod
	if ref.Sample != "" {
		path := ref.Sample
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		snd, err := sample.Open(path)
		if err != nil {
			return nil, err
		}
		m = builtin.NewSampler(filepath.Base(path), snd)
	} else {
		var ok bool
		if m, ok = res.Mods[ref.ID]; !ok {
			return nil, fmt.Errorf("unknown mod %q", ref.ID)
		}
	}
	if err := m.CheckConfig(ref.Config); err != nil {
		return nil, fmt.Errorf("%v: %w", mleml.Name(m), err)
	}
	return m, nil
}

// channel returns channel i in its initial state.
func (r *Renderer) channel(i int) (*mleml.Channel, error) {
	def, rc := r.song.Channels[i], r.channels[i]
	ch := mleml.NewChannel(def.Name, rc.instrument, def.Instrument.Config, def.Settings)
	for j, m := range rc.noteMods {
		ch.AddNoteMod(m, def.NoteMods[j].Config, nil)
	}
	for j, m := range rc.soundMods {
		ch.AddSoundMod(m, def.SoundMods[j].Config, nil)
	}
	return ch, ch.Validate()
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Render plays the song from the start. Every tick, the events of the tick
// are applied and the new notes are played by their channels, resampled to
// the rate of the song. Then the platform mixes the new sounds together with
// what was left over from earlier ticks, with the tick as the play time,
// until one tick of output is complete. The platform is never given more
// frames than fit in the rest of the tick, so the sound of a note played at
// tick t always starts at frame t*framesPerTick of the output; if it mixes
// less, the tick is padded with silence. A new note on a channel replaces
// whatever was left of the previous one. After the last event, mixing
// continues until all channels are drained.
func (r *Renderer) Render() (mleml.Sound, error) {
	s := r.song
	vals := r.platform.Values()
	n := len(s.Channels)
	channels := make([]*mleml.Channel, n)
	volumes := make([]uint32, n)
	for i := range channels {
		ch, err := r.channel(i)
		if err != nil {
			return mleml.Sound{}, fmt.Errorf("channel %d: %w", i, err)
		}
		channels[i] = ch
		volumes[i] = vals.MaxVolume
		if v := s.Channels[i].Volume; v != nil {
			volumes[i] = *v
		}
	}
	var (
		next     = make([]int, n)
		pending  = make([][]mleml.Frame, n)
		isNew    = make([]bool, n)
		refs     = make([]*storage.Ref[mleml.Sound], n)
		input    = make([]mleml.ChannelSound, n)
		mixState = r.states.Wrap(nil)
		out      []mleml.Frame
		stalls   int
	)
	defer func() {
		mixState.Release()
		for _, ref := range refs {
			if ref != nil {
				ref.Release()
			}
		}
		r.states.Trim()
		r.sounds.Trim()
	}()
	length := s.Length()
	r.logger().Debug("rendering song", "ticks", length, "channels", n, "mixer", mleml.Name(r.platform), "frames per tick", r.framesPerTick)
	for tick := uint32(0); tick < length || !drained(pending); tick++ {
		for i, def := range s.Channels {
			for ; next[i] < len(def.Events) && def.Events[next[i]].Tick == tick; next[i]++ {
				ev := def.Events[next[i]]
				if err := apply(ev, channels[i], &volumes[i], vals); err != nil {
					return mleml.Sound{}, fmt.Errorf("channel %d, tick %d: %w", i, tick, err)
				}
				if ev.Note == nil {
					continue
				}
				snd, err := play(channels[i], ev.Note.Note(), vals, volumes[i], s.Rate)
				if err != nil {
					return mleml.Sound{}, fmt.Errorf("channel %d, tick %d: %w", i, tick, err)
				}
				if refs[i] != nil {
					refs[i].Release()
				}
				refs[i] = r.sounds.Wrap(snd)
				pending[i], isNew[i] = refs[i].Value().Frames(), true
			}
		}
		end := (int(tick) + 1) * r.framesPerTick
		progress := false
		for len(out) < end {
			room := end - len(out)
			for i := range input {
				input[i] = mleml.ChannelSound{New: isNew[i], Frames: pending[i][:min(len(pending[i]), room)]}
			}
			res, err := r.platform.Mix(input, tick, s.Mixer.Config, mixState.Value())
			if err != nil {
				return mleml.Sound{}, fmt.Errorf("mixing tick %d: %w", tick, err)
			}
			if !r.platform.CheckState(res.State) {
				return mleml.Sound{}, fmt.Errorf("mixing tick %d: %v returned an invalid state", tick, mleml.Name(r.platform))
			}
			newState := r.states.Wrap(res.State)
			mixState.Release()
			mixState = newState
			if res.Sound.Len() > 0 {
				if res.Sound.Rate() != s.Rate {
					return mleml.Sound{}, fmt.Errorf("%w: %v mixed at %d Hz, song is at %d Hz", ErrMixerRate, mleml.Name(r.platform), res.Sound.Rate(), s.Rate)
				}
				out = append(out, res.Sound.Frames()...)
			}
			consumed := false
			for i := range pending {
				used := len(input[i].Frames) - len(res.Leftovers[i])
				if used <= 0 {
					continue
				}
				consumed = true
				pending[i], isNew[i] = pending[i][used:], false
				if len(pending[i]) == 0 && refs[i] != nil {
					refs[i].Release()
					refs[i] = nil
				}
			}
			progress = progress || consumed
			if !consumed && res.Sound.Len() == 0 {
				break
			}
		}
		if len(out) < end {
			out = append(out, make([]mleml.Frame, end-len(out))...)
		}
		if tick >= length && !progress {
			if stalls++; stalls > r.maxStalls {
				return mleml.Sound{}, fmt.Errorf("%w at tick %d", ErrStalled, tick)
			}
		} else {
			stalls = 0
		}
		r.sounds.Trim()
		r.states.Trim()
		if tick%1024 == 0 && tick > 0 {
			r.logger().Debug("rendered", "tick", tick, "frames", len(out), "cached sounds", r.sounds.Len())
		}
	}
	r.logger().Debug("rendered song", "frames", len(out), "rate", s.Rate)
	return mleml.NewSound(out, s.Rate), nil
}

// apply applies the setting changes of an event to a channel.
func apply(ev Event, ch *mleml.Channel, volume *uint32, vals mleml.PlatformValues) error {
	if ev.Octave != nil {
		ch.Settings.Octave = *ev.Octave
	}
	if ev.Length != nil {
		ch.Settings.DefaultLength = *ev.Length
	}
	if ev.Detune != nil {
		ch.Settings.Detune = *ev.Detune
	}
	if ev.Volume != nil {
		if *ev.Volume > vals.MaxVolume {
			return fmt.Errorf("volume should be 0..%d, got %d", vals.MaxVolume, *ev.Volume)
		}
		*volume = *ev.Volume
	}
	return nil
}

// play renders the note with the channel, commits the new states, resamples
// the sound to rate and scales it by the channel volume.
func play(ch *mleml.Channel, note mleml.Note, vals mleml.PlatformValues, volume, rate uint32) (mleml.Sound, error) {
	snd, changes, err := ch.Play(note, vals)
	if err != nil {
		return mleml.Sound{}, err
	}
	if err := ch.Commit(changes); err != nil {
		return mleml.Sound{}, err
	}
	snd = snd.Resample(rate)
	if volume == vals.MaxVolume || snd.Len() == 0 {
		return snd, nil
	}
	frames := append([]mleml.Frame(nil), snd.Frames()...)
	vek32.MulNumber_Inplace(mleml.Samples(frames), float32(volume)/float32(vals.MaxVolume))
	return mleml.NewSound(frames, snd.Rate()), nil
}

func drained(pending [][]mleml.Frame) bool {
	for _, p := range pending {
		if len(p) > 0 {
			return false
		}
	}
	return true
}
