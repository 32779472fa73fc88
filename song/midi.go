package song

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/vsariola/mleml"
)

var ErrNoNotes = errors.New("midi file has no notes")

// ImportMIDI reads a Standard MIDI File and returns one channel for every
// track that has notes. Channels are monophonic: a note that starts before
// the previous one has ended cuts the previous one short. MIDI ticks are
// converted so that a quarter note lasts a quarter of wholeNote song ticks.
//
// MIDI key k becomes pitch k-12-12*octave in a channel with the given octave,
// so that key 60 is middle C, and the velocity is doubled.
func ImportMIDI(r io.Reader, wholeNote uint32, octave uint8) ([]ChannelDef, error) {
	if wholeNote < 1 || wholeNote > mleml.MaxTick {
		return nil, fmt.Errorf("whole note should be 1..%d ticks, got %d", mleml.MaxTick, wholeNote)
	}
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("could not read midi file: %w", err)
	}
	mt, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok || mt.Resolution() == 0 {
		return nil, fmt.Errorf("unsupported midi time format %v", file.TimeFormat)
	}
	scale := float64(wholeNote) / (4 * float64(mt.Resolution()))
	toTick := func(t uint64) uint32 { return uint32(math.Round(float64(t) * scale)) }
	var ret []ChannelDef
	for ti, track := range file.Tracks {
		var (
			events []Event
			now    uint64
			onKey  uint8
		)
		on := -1 // index of the sounding note in events
		end := func(at uint64) {
			if on < 0 {
				return
			}
			l := int64(toTick(at)) - int64(events[on].Tick)
			events[on].Note.Len = uint8(max(1, min(l, math.MaxUint8)))
			on = -1
		}
		for _, ev := range track {
			now += uint64(ev.Delta)
			var ch, key, vel uint8
			msg := midi.Message(ev.Message)
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				end(now)
				pitch := int(key) - 12 - 12*int(octave)
				if pitch < math.MinInt8 || pitch > math.MaxInt8 {
					return nil, fmt.Errorf("track %d: key %d does not fit octave %d", ti, key, octave)
				}
				v := uint8(min(2*int(vel), math.MaxUint8))
				tick := toTick(now)
				if n := len(events); n > 0 && events[n-1].Tick == tick {
					events = events[:n-1] // a later note on the same tick wins
				}
				events = append(events, Event{Tick: tick, Note: &Note{Pitch: int8(pitch), Velocity: &v}})
				on, onKey = len(events)-1, key
			case msg.GetNoteEnd(&ch, &key):
				if on >= 0 && key == onKey {
					end(now)
				}
			}
		}
		end(now)
		if len(events) == 0 {
			continue
		}
		ret = append(ret, ChannelDef{
			Name:     fmt.Sprintf("track %d", ti),
			Settings: mleml.ChannelSettings{DefaultLength: uint8(min(wholeNote/4, math.MaxUint8)), Octave: octave},
			Events:   events,
		})
	}
	if len(ret) == 0 {
		return nil, ErrNoNotes
	}
	return ret, nil
}
