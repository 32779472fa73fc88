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
	// ModDescriptor is what the host knows about a foreign mod without
	// calling it. An empty ID gets a random one.
	ModDescriptor struct {
		ID          string
		Description string
		Schema      mleml.ResConfig
		Input       mleml.DataType
		Output      mleml.DataType
	}

	// Mod is a mleml.Mod implemented by foreign code. The entry points are
	// assumed non-reentrant, so calls to the same Mod are serialized.
	Mod struct {
		mu   sync.Mutex
		desc ModDescriptor
		sym  Symbols
	}
)

// NewMod wraps the entry points in sym into a Mod.
func NewMod(desc ModDescriptor, sym Symbols) (*Mod, error) {
	if err := sym.validate(); err != nil {
		return nil, err
	}
	for _, t := range []mleml.DataType{desc.Input, desc.Output} {
		if t < mleml.StringType || t > mleml.SoundType {
			return nil, fmt.Errorf("invalid data type %v", t)
		}
	}
	if desc.ID == "" {
		desc.ID = mleml.NewID()
	}
	desc.Schema = desc.Schema.Copy()
	return &Mod{desc: desc, sym: sym}, nil
}

func (m *Mod) ID() string                 { return m.desc.ID }
func (m *Mod) Description() string        { return m.desc.Description }
func (m *Mod) Schema() mleml.ResConfig    { return m.desc.Schema.Copy() }
func (m *Mod) InputType() mleml.DataType  { return m.desc.Input }
func (m *Mod) OutputType() mleml.DataType { return m.desc.Output }

func (m *Mod) OrigName() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sym.origName()
}

// CheckConfig checks conf against the schema, and then lets the foreign
// code check it.
func (m *Mod) CheckConfig(conf mleml.ResConfig) error {
	if err := conf.CheckSchema(m.desc.Schema); err != nil {
		return err
	}
	b, err := conf.Bytes()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sym.check(m.desc.ID, m.sym.CheckConfig, b)
}

func (m *Mod) CheckState(state mleml.ResState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sym.check(m.desc.ID, m.sym.CheckState, state) == nil
}

// Apply passes copies of input, conf and state to the foreign code and
// copies the result. A failure reported by the foreign code is returned as
// a *mleml.ResourceError. A success with no item panics with a
// *ContractViolation.
func (m *Mod) Apply(input mleml.ModData, conf mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
	if err := mleml.CheckInput(m, input); err != nil {
		return nil, nil, err
	}
	if err := conf.CheckSchema(m.desc.Schema); err != nil {
		return nil, nil, err
	}
	confBytes, err := conf.Bytes()
	if err != nil {
		return nil, nil, err
	}
	in, free := toC(input)
	defer free()
	cConf, confLen := cBytes(confBytes)
	defer C.free(cConf)
	cState, stateLen := cBytes(state)
	defer C.free(cState)

	m.mu.Lock()
	defer m.mu.Unlock()
	ret := C.mleml_call_apply(C.uintptr_t(m.sym.Apply), in, confLen, (*C.uint8_t)(cConf), stateLen, (*C.uint8_t)(cState))
	defer m.sym.deallocate()
	if ret.is_ok == 0 {
		return nil, nil, failure(m.desc.ID, ret)
	}
	if ret.item == nil {
		panic(&ContractViolation{Resource: m.desc.ID, Reason: "apply returned no item"})
	}
	out, ok := fromC(m.desc.Output, ret.item)
	if !ok {
		panic(&ContractViolation{Resource: m.desc.ID, Reason: fmt.Sprintf("apply returned an unreadable %v", m.desc.Output)})
	}
	if ret.state == nil && ret.state_len > 0 {
		panic(&ContractViolation{Resource: m.desc.ID, Reason: "apply returned a state of nonzero length with no data"})
	}
	return out, goBytes(unsafe.Pointer(ret.state), ret.state_len), nil
}
