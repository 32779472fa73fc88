package ffi

// #include <stdlib.h>
// #include "call.h"
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/vsariola/mleml"
)

type (
	// PlatformDescriptor is what the host knows about a foreign platform
	// without calling it.
	PlatformDescriptor struct {
		ID          string
		Description string
		Schema      mleml.ResConfig
		Values      mleml.PlatformValues
	}

	// Platform is a mleml.Platform implemented by foreign code. Calls to
	// the same Platform are serialized.
	Platform struct {
		mu   sync.Mutex
		desc PlatformDescriptor
		sym  Symbols
	}
)

// NewPlatform wraps the entry points in sym into a Platform. sym.Apply is
// the mix entry point.
func NewPlatform(desc PlatformDescriptor, sym Symbols) (*Platform, error) {
	if err := sym.validate(); err != nil {
		return nil, err
	}
	if err := desc.Values.Validate(); err != nil {
		return nil, fmt.Errorf("invalid platform values: %w", err)
	}
	if desc.ID == "" {
		desc.ID = mleml.NewID()
	}
	desc.Schema = desc.Schema.Copy()
	return &Platform{desc: desc, sym: sym}, nil
}

func (p *Platform) ID() string                   { return p.desc.ID }
func (p *Platform) Description() string          { return p.desc.Description }
func (p *Platform) Schema() mleml.ResConfig      { return p.desc.Schema.Copy() }
func (p *Platform) Values() mleml.PlatformValues { return p.desc.Values }

func (p *Platform) OrigName() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sym.origName()
}

func (p *Platform) CheckConfig(conf mleml.ResConfig) error {
	if err := conf.CheckSchema(p.desc.Schema); err != nil {
		return err
	}
	b, err := conf.Bytes()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sym.check(p.desc.ID, p.sym.CheckConfig, b)
}

func (p *Platform) CheckState(state mleml.ResState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sym.check(p.desc.ID, p.sym.CheckState, state) == nil
}

// Mix passes copies of the channels to the foreign mixer. The leftovers it
// returns are ranges of the input channels, so the leftovers in the result
// are slices of channels[i].Frames. A wrong number of leftovers is an
// error; a range outside of the input panics with a *ContractViolation.
func (p *Platform) Mix(channels []mleml.ChannelSound, playTime uint32, conf mleml.ResConfig, state mleml.ResState) (mleml.MixResult, error) {
	if err := mleml.CheckChannelCount(p, channels); err != nil {
		return mleml.MixResult{}, err
	}
	if err := conf.CheckSchema(p.desc.Schema); err != nil {
		return mleml.MixResult{}, err
	}
	confBytes, err := conf.Bytes()
	if err != nil {
		return mleml.MixResult{}, err
	}
	n := len(channels)
	var cChannels *C.mleml_channel
	if n > 0 {
		cChannels = (*C.mleml_channel)(C.calloc(C.size_t(n), C.sizeof_mleml_channel))
		defer C.free(unsafe.Pointer(cChannels))
	}
	cs := unsafe.Slice(cChannels, n)
	for i := range cs {
		buf, _ := cBytes(frameBytes(channels[i].Frames))
		defer C.free(buf)
		ch := &cs[i]
		ch.is_new = cBool(channels[i].New)
		ch.len = C.size_t(len(channels[i].Frames))
		ch.data = (*C.mleml_frame)(buf)
	}
	cConf, confLen := cBytes(confBytes)
	defer C.free(cConf)
	cState, stateLen := cBytes(state)
	defer C.free(cState)

	p.mu.Lock()
	defer p.mu.Unlock()
	ret := C.mleml_call_mix(C.uintptr_t(p.sym.Apply), C.size_t(n), cChannels, C.uint32_t(playTime),
		confLen, (*C.uint8_t)(cConf), stateLen, (*C.uint8_t)(cState))
	defer p.sym.deallocate()
	if ret.is_ok == 0 {
		return mleml.MixResult{}, failure(p.desc.ID, ret)
	}
	if ret.item == nil {
		panic(&ContractViolation{Resource: p.desc.ID, Reason: "mix returned no item"})
	}
	mix := (*C.mleml_mix)(ret.item)
	snd, ok := soundFromC(&mix.sound)
	if !ok {
		panic(&ContractViolation{Resource: p.desc.ID, Reason: "mix returned an unreadable sound"})
	}
	if int(mix.leftovers_len) != n {
		return mleml.MixResult{}, mleml.Errorf("%v returned %d leftovers for %d channels", p.desc.ID, mix.leftovers_len, n)
	}
	leftovers := make([][]mleml.Frame, n)
	if n > 0 {
		if mix.leftovers == nil {
			panic(&ContractViolation{Resource: p.desc.ID, Reason: "mix returned no leftovers"})
		}
		for i, l := range unsafe.Slice(mix.leftovers, n) {
			if l.present == 0 {
				continue
			}
			frames := channels[i].Frames
			start, end := uint64(l.offset), uint64(l.offset)+uint64(l.len)
			if end < start || end > uint64(len(frames)) {
				panic(&ContractViolation{Resource: p.desc.ID, Reason: fmt.Sprintf("leftover %d [%d, %d) is outside of the %d input frames", i, start, end, len(frames))})
			}
			if end > start {
				leftovers[i] = frames[start:end]
			}
		}
	}
	if ret.state == nil && ret.state_len > 0 {
		panic(&ContractViolation{Resource: p.desc.ID, Reason: "mix returned a state of nonzero length with no data"})
	}
	return mleml.MixResult{
		Sound:     snd.(mleml.Sound),
		State:     goBytes(unsafe.Pointer(ret.state), ret.state_len),
		Leftovers: leftovers,
	}, nil
}
