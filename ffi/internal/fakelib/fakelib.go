// Package fakelib is a small foreign library, linked statically, used to
// test the ffi package.
package fakelib

// #cgo CFLAGS: -I"${SRCDIR}/../../include"
// #include "fakelib.h"
import "C"

import (
	"unsafe"

	"github.com/vsariola/mleml/ffi"
)

// Echo is a note mod that raises the pitch by one semitone and counts its
// calls in a one byte state.
func Echo() ffi.Symbols {
	return symbols(C.fake_echo_apply, C.fake_check_config, C.fake_check_state, C.fake_echo_name)
}

// Fail is a note mod that always fails.
func Fail() ffi.Symbols {
	return symbols(C.fake_fail_apply, C.fake_check_any, C.fake_check_any, nil)
}

// Mute is a note mod that fails with a message length but no message.
func Mute() ffi.Symbols {
	return symbols(C.fake_mute_apply, C.fake_check_any, C.fake_check_any, nil)
}

// Null is a note mod that reports success without an item.
func Null() ffi.Symbols {
	return symbols(C.fake_null_apply, C.fake_check_any, C.fake_check_any, nil)
}

// Halve is a sound mod that halves every sample.
func Halve() ffi.Symbols {
	return symbols(C.fake_halve_apply, C.fake_check_any, C.fake_check_any, nil)
}

// Upper is a string mod converting ASCII letters to upper case.
func Upper() ffi.Symbols {
	return symbols(C.fake_upper_apply, C.fake_check_any, C.fake_check_any, nil)
}

// Mixer mixes as many frames as the shortest non-empty channel has and
// returns the rest as leftovers. Its state is the play time.
func Mixer() ffi.Symbols {
	return symbols(C.fake_mix, C.fake_check_config, C.fake_check_any, nil)
}

// BadMixer returns a leftover longer than its input.
func BadMixer() ffi.Symbols {
	return symbols(C.fake_bad_mix, C.fake_check_any, C.fake_check_any, nil)
}

// ShortMixer returns one leftover less than there are channels.
func ShortMixer() ffi.Symbols {
	return symbols(C.fake_short_mix, C.fake_check_any, C.fake_check_any, nil)
}

// Deallocs returns the number of times deallocate has been called since the
// last Reset.
func Deallocs() int {
	return int(C.fake_deallocs)
}

// Reset frees everything pending and zeroes the deallocate count.
func Reset() {
	C.fake_reset()
}

func symbols(apply, checkConfig, checkState, name unsafe.Pointer) ffi.Symbols {
	return ffi.Symbols{
		Apply:       uintptr(apply),
		CheckConfig: uintptr(checkConfig),
		CheckState:  uintptr(checkState),
		OrigName:    uintptr(name),
		Deallocate:  uintptr(unsafe.Pointer(C.fake_deallocate)),
	}
}
