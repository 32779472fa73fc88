//go:build darwin || freebsd || linux

package ffi

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ebitengine/purego"
)

// Library is a shared library holding the entry points of foreign
// resources. The entry points of the resource with the prefix p are named
// p_apply (p_mix for platforms), p_check_config, p_check_state, p_orig_name
// and p_deallocate; mleml-header writes their prototypes.
type Library struct {
	mu     sync.Mutex
	handle uintptr
	path   string
	logger *slog.Logger
}

// Open loads the shared library at path. A nil logger discards the log.
func Open(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	logger.Debug("opened library", "path", path)
	return &Library{handle: handle, path: path, logger: logger}, nil
}

func (l *Library) Path() string { return l.path }

// Symbols looks up the entry points of the resource with the given prefix.
// orig_name is optional; the others are required.
func (l *Library) Symbols(prefix string, platform bool) (Symbols, error) {
	if !isIdentifier(prefix) {
		return Symbols{}, fmt.Errorf("invalid prefix %q", prefix)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return Symbols{}, fmt.Errorf("library %v is closed", l.path)
	}
	apply := "_apply"
	if platform {
		apply = "_mix"
	}
	var sym Symbols
	for _, s := range []struct {
		suffix   string
		addr     *uintptr
		optional bool
	}{
		{apply, &sym.Apply, false},
		{"_check_config", &sym.CheckConfig, false},
		{"_check_state", &sym.CheckState, false},
		{"_orig_name", &sym.OrigName, true},
		{"_deallocate", &sym.Deallocate, false},
	} {
		addr, err := purego.Dlsym(l.handle, prefix+s.suffix)
		if err != nil {
			if s.optional {
				l.logger.Debug("optional symbol not found", "symbol", prefix+s.suffix)
				continue
			}
			return Symbols{}, fmt.Errorf("%w: %v in %v", ErrMissingSymbol, prefix+s.suffix, l.path)
		}
		*s.addr = addr
	}
	l.logger.Debug("resolved resource", "path", l.path, "prefix", prefix, "platform", platform)
	return sym, nil
}

// Mod returns the mod with the given prefix.
func (l *Library) Mod(desc ModDescriptor, prefix string) (*Mod, error) {
	sym, err := l.Symbols(prefix, false)
	if err != nil {
		return nil, err
	}
	return NewMod(desc, sym)
}

// Platform returns the platform with the given prefix.
func (l *Library) Platform(desc PlatformDescriptor, prefix string) (*Platform, error) {
	sym, err := l.Symbols(prefix, true)
	if err != nil {
		return nil, err
	}
	return NewPlatform(desc, sym)
}

// Close unloads the library. The resources obtained from it must not be
// used after this.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	l.logger.Debug("closed library", "path", l.path)
	return err
}
