package builtin_test

import (
	"errors"
	"testing"

	"github.com/vsariola/mleml"
	"github.com/vsariola/mleml/builtin"
)

func ramp(n int, start float32) []mleml.Frame {
	ret := make([]mleml.Frame, n)
	for i := range ret {
		v := start + float32(i)
		ret[i] = mleml.Frame{v, -v}
	}
	return ret
}

var fullVolume = mleml.MustResConfig(float64(mleml.MaxVolume))

func TestOverlapLeftovers(t *testing.T) {
	mixer := builtin.Overlap(mleml.DefaultPlatformValues(2), 44100)
	a := ramp(4, 1)
	res, err := mixer.Mix([]mleml.ChannelSound{{New: true, Frames: a}, {New: true, Frames: ramp(2, 10)}}, 0, fullVolume, nil)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if res.Sound.Len() != 2 {
		t.Fatalf("mixed %d frames, want 2", res.Sound.Len())
	}
	if got := res.Sound.Frames()[1]; got != (mleml.Frame{13, -13}) {
		t.Errorf("got frame %v, want [13 -13]", got)
	}
	if len(res.Leftovers) != 2 || len(res.Leftovers[0]) != 2 || res.Leftovers[1] != nil {
		t.Fatalf("got leftovers %v, want [2 frames of A, nil]", res.Leftovers)
	}
	if res.Leftovers[0][0] != a[2] || res.Leftovers[0][1] != a[3] {
		t.Errorf("leftover of A = %v, want its last two frames", res.Leftovers[0])
	}
	res, err = mixer.Mix([]mleml.ChannelSound{{Frames: res.Leftovers[0]}, {New: true, Frames: ramp(2, 20)}}, 1, fullVolume, res.State)
	if err != nil {
		t.Fatalf("second Mix failed: %v", err)
	}
	if res.Leftovers[0] != nil || res.Leftovers[1] != nil {
		t.Errorf("got leftovers %v, want [nil nil]", res.Leftovers)
	}
	if got := res.Sound.Frames()[0]; got != (mleml.Frame{23, -23}) {
		t.Errorf("got frame %v, want [23 -23]", got)
	}
	if got := builtin.MixedFrames(res.State); got != 4 {
		t.Errorf("mixer state counts %d frames, want 4", got)
	}
}

func TestOverlapIgnoresSilentChannels(t *testing.T) {
	mixer := builtin.Overlap(mleml.DefaultPlatformValues(3), 44100)
	res, err := mixer.Mix([]mleml.ChannelSound{{New: true, Frames: ramp(3, 0)}, {}, {New: true, Frames: ramp(5, 0)}}, 0, fullVolume, nil)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if res.Sound.Len() != 3 || len(res.Leftovers[2]) != 2 || res.Leftovers[1] != nil {
		t.Errorf("got %d frames and leftovers %v", res.Sound.Len(), res.Leftovers)
	}
	res, err = mixer.Mix(make([]mleml.ChannelSound, 3), 0, fullVolume, nil)
	if err != nil || res.Sound.Len() != 0 {
		t.Errorf("mixing nothing returned %v, %v", res.Sound.Len(), err)
	}
}

func TestOverlapVolume(t *testing.T) {
	mixer := builtin.Overlap(mleml.DefaultPlatformValues(1), 44100)
	res, err := mixer.Mix([]mleml.ChannelSound{{New: true, Frames: ramp(1, 8)}}, 0, mleml.MustResConfig(25), nil)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if got := res.Sound.Frames()[0]; got != (mleml.Frame{2, -2}) {
		t.Errorf("got %v, want [2 -2]", got)
	}
	if _, err := mixer.Mix([]mleml.ChannelSound{{}}, 0, mleml.MustResConfig(-1), nil); err == nil {
		t.Error("negative volume accepted")
	}
}

func TestOverlapChannelCount(t *testing.T) {
	mixer := builtin.Overlap(mleml.DefaultPlatformValues(2), 44100)
	_, err := mixer.Mix([]mleml.ChannelSound{{New: true, Frames: ramp(4, 0)}}, 0, fullVolume, nil)
	if !errors.Is(err, mleml.ErrChannelCount) {
		t.Errorf("got %v, want ErrChannelCount", err)
	}
}

func TestTickMixer(t *testing.T) {
	vals := mleml.DefaultPlatformValues(2)
	vals.TickLength = 0.001
	mixer := builtin.TickMixer(vals, 4000)
	res, err := mixer.Mix([]mleml.ChannelSound{{New: true, Frames: ramp(6, 1)}, {New: true, Frames: ramp(1, 1)}}, 0, fullVolume, nil)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	want := []mleml.Frame{{2, -2}, {2, -2}, {3, -3}, {4, -4}}
	if res.Sound.Len() != len(want) {
		t.Fatalf("mixed %d frames, want %d", res.Sound.Len(), len(want))
	}
	for i, f := range res.Sound.Frames() {
		if f != want[i] {
			t.Errorf("frame %d: got %v, want %v", i, f, want[i])
		}
	}
	if len(res.Leftovers[0]) != 2 || res.Leftovers[1] != nil {
		t.Errorf("got leftovers %v", res.Leftovers)
	}
	if res.Sound.Rate() != 4000 {
		t.Errorf("rate = %v, want 4000", res.Sound.Rate())
	}
}

func TestMixIsPure(t *testing.T) {
	mixer := builtin.Overlap(mleml.DefaultPlatformValues(2), 44100)
	in := []mleml.ChannelSound{{New: true, Frames: ramp(7, 0.5)}, {New: true, Frames: ramp(3, 2)}}
	a, errA := mixer.Mix(in, 3, fullVolume, mleml.ResState{1, 0, 0, 0})
	b, errB := mixer.Mix(in, 3, fullVolume, mleml.ResState{1, 0, 0, 0})
	if errA != nil || errB != nil {
		t.Fatalf("Mix failed: %v %v", errA, errB)
	}
	if !a.Sound.Equal(b.Sound) || !a.State.Equal(b.State) {
		t.Error("identical calls returned different results")
	}
	if in[0].Frames[0] != (mleml.Frame{0.5, -0.5}) {
		t.Error("mixer modified its input")
	}
}
