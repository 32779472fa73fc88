// Package ffi wraps resources implemented outside the Go program, behind a C
// ABI, into mleml.Mod and mleml.Platform.
//
// Every value crossing the boundary is copied: the host hands the library
// C memory it allocated itself and frees it after the call, and it copies
// everything the library returns before telling the library, through its
// deallocate entry point, that the returned memory may be reclaimed. The
// host never frees memory allocated by the library.
package ffi

// #cgo CFLAGS: -I"${SRCDIR}/include"
// #include <stdlib.h>
// #include "call.h"
import "C"

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/vsariola/mleml"
)

type (
	// Symbols are the addresses of the entry points of one foreign
	// resource. Apply is the apply function of a mod or the mix function of
	// a platform. OrigName may be zero if the resource has no name.
	Symbols struct {
		Apply       uintptr
		CheckConfig uintptr
		CheckState  uintptr
		OrigName    uintptr
		Deallocate  uintptr
	}

	// ContractViolation is the value panicked with when a foreign resource
	// returns something the host cannot safely read, such as a null item
	// on success. The host has no way to continue safely after that.
	ContractViolation struct {
		Resource string
		Reason   string
	}
)

var ErrMissingSymbol = errors.New("missing entry point")

func (c *ContractViolation) Error() string {
	return fmt.Sprintf("foreign resource %v violated the contract: %v", c.Resource, c.Reason)
}

func (s Symbols) validate() error {
	switch {
	case s.Apply == 0:
		return fmt.Errorf("%w: apply", ErrMissingSymbol)
	case s.CheckConfig == 0:
		return fmt.Errorf("%w: check_config", ErrMissingSymbol)
	case s.CheckState == 0:
		return fmt.Errorf("%w: check_state", ErrMissingSymbol)
	case s.Deallocate == 0:
		return fmt.Errorf("%w: deallocate", ErrMissingSymbol)
	}
	return nil
}

// origName calls the orig_name entry point. The returned text is copied
// immediately, as it is valid only during the call.
func (s Symbols) origName() (string, bool) {
	if s.OrigName == 0 {
		return "", false
	}
	p := C.mleml_call_name(C.uintptr_t(s.OrigName))
	if p == nil {
		return "", false
	}
	return strings.ToValidUTF8(C.GoString(p), "\uFFFD"), true
}

// check calls check_config or check_state of the resource id with a copy of
// data.
func (s Symbols) check(id string, fn uintptr, data []byte) error {
	buf, n := cBytes(data)
	defer C.free(buf)
	ret := C.mleml_call_check(C.uintptr_t(fn), n, (*C.uint8_t)(buf))
	defer s.deallocate()
	if ret.is_ok == 0 {
		return failure(id, ret)
	}
	return nil
}

func (s Symbols) deallocate() {
	C.mleml_call_deallocate(C.uintptr_t(s.Deallocate))
}

// failure turns the message of a failed call into a ResourceError. A message
// with a length but no data breaks the contract of resource id.
func failure(id string, ret C.mleml_return) error {
	if ret.msg == nil && ret.msg_len > 0 {
		panic(&ContractViolation{Resource: id, Reason: fmt.Sprintf("failure message of %d bytes has no data", ret.msg_len)})
	}
	msg := string(goBytes(unsafe.Pointer(ret.msg), ret.msg_len))
	return &mleml.ResourceError{Msg: strings.ToValidUTF8(msg, "\uFFFD")}
}

// cBytes copies b to C memory, which the caller frees with C.free.
func cBytes(b []byte) (unsafe.Pointer, C.size_t) {
	if len(b) == 0 {
		return nil, 0
	}
	return C.CBytes(b), C.size_t(len(b))
}

// goBytes copies n bytes of C memory at p.
func goBytes(p unsafe.Pointer, n C.size_t) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return append([]byte(nil), unsafe.Slice((*byte)(p), int(n))...)
}

func frameBytes(frames []mleml.Frame) []byte {
	if len(frames) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&frames[0])), len(frames)*int(unsafe.Sizeof(frames[0])))
}

// goFrames copies n frames of C memory at p.
func goFrames(p *C.mleml_frame, n C.size_t) []mleml.Frame {
	if n == 0 {
		return nil
	}
	ret := make([]mleml.Frame, int(n))
	copy(ret, unsafe.Slice((*mleml.Frame)(unsafe.Pointer(p)), int(n)))
	return ret
}

func cBool(b bool) C.uint8_t {
	if b {
		return 1
	}
	return 0
}

// toC copies data into C memory. The returned function frees it.
func toC(data mleml.ModData) (unsafe.Pointer, func()) {
	switch d := data.(type) {
	case mleml.Text:
		buf, n := cBytes([]byte(d))
		s := (*C.mleml_string)(C.malloc(C.sizeof_mleml_string))
		s.len, s.data = n, (*C.char)(buf)
		return unsafe.Pointer(s), func() { C.free(buf); C.free(unsafe.Pointer(s)) }
	case mleml.Note:
		n := (*C.mleml_note)(C.malloc(C.sizeof_mleml_note))
		*n = C.mleml_note{
			len:      C.uint8_t(d.Len),
			pitch:    C.int8_t(d.Pitch),
			rest:     cBool(d.Rest),
			cents:    C.int8_t(d.Cents),
			natural:  cBool(d.Natural),
			velocity: C.uint8_t(d.Velocity),
		}
		return unsafe.Pointer(n), func() { C.free(unsafe.Pointer(n)) }
	case mleml.ReadyNote:
		n := (*C.mleml_ready_note)(C.malloc(C.sizeof_mleml_ready_note))
		*n = C.mleml_ready_note{
			len:      C.float(d.Len),
			decay:    C.float(d.Decay),
			pitch:    C.float(d.Pitch),
			rest:     cBool(d.Rest),
			velocity: C.uint8_t(d.Velocity),
		}
		return unsafe.Pointer(n), func() { C.free(unsafe.Pointer(n)) }
	case mleml.Sound:
		buf, _ := cBytes(frameBytes(d.Frames()))
		s := (*C.mleml_sound)(C.malloc(C.sizeof_mleml_sound))
		s.sampling_rate = C.uint32_t(d.Rate())
		s.data_len = C.size_t(d.Len())
		s.data = (*C.mleml_frame)(buf)
		return unsafe.Pointer(s), func() { C.free(buf); C.free(unsafe.Pointer(s)) }
	}
	panic(fmt.Sprintf("unknown mod data %T", data))
}

// fromC copies the item of type t at p. ok is false if the item cannot be
// read safely.
func fromC(t mleml.DataType, p unsafe.Pointer) (data mleml.ModData, ok bool) {
	switch t {
	case mleml.StringType:
		s := (*C.mleml_string)(p)
		if s.data == nil && s.len > 0 {
			return nil, false
		}
		return mleml.Text(goBytes(unsafe.Pointer(s.data), s.len)), true
	case mleml.NoteType:
		n := (*C.mleml_note)(p)
		return mleml.Note{
			Len:      uint8(n.len),
			Pitch:    int8(n.pitch),
			Rest:     n.rest != 0,
			Cents:    int8(n.cents),
			Natural:  n.natural != 0,
			Velocity: uint8(n.velocity),
		}, true
	case mleml.ReadyNoteType:
		n := (*C.mleml_ready_note)(p)
		return mleml.ReadyNote{
			Len:      float32(n.len),
			Decay:    float32(n.decay),
			Pitch:    float32(n.pitch),
			Rest:     n.rest != 0,
			Velocity: uint8(n.velocity),
		}, true
	case mleml.SoundType:
		return soundFromC((*C.mleml_sound)(p))
	}
	return nil, false
}

func soundFromC(s *C.mleml_sound) (mleml.ModData, bool) {
	if s.data == nil && s.data_len > 0 {
		return nil, false
	}
	return mleml.NewSound(goFrames(s.data, s.data_len), uint32(s.sampling_rate)), true
}
