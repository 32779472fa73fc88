//go:build cgo && (darwin || freebsd || linux)

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/vsariola/mleml/ffi"
	"github.com/vsariola/mleml/song"
)

// LoadLibraries opens the foreign libraries of the song and adds their
// resources to res. Relative library paths are relative to dir. The
// returned function closes the libraries.
func LoadLibraries(s *song.Song, res *song.Resources, dir string, logger *slog.Logger) (func() error, error) {
	var libs []*ffi.Library
	closeAll := func() error {
		var errs []error
		for _, l := range libs {
			errs = append(errs, l.Close())
		}
		return errors.Join(errs...)
	}
	for _, def := range s.Libraries {
		path := def.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		lib, err := ffi.Open(path, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		libs = append(libs, lib)
		for _, m := range def.Mods {
			id := m.ID
			if id == "" {
				id = m.Prefix
			}
			mod, err := lib.Mod(ffi.ModDescriptor{ID: id, Description: m.Description, Schema: m.Schema, Input: m.Input, Output: m.Output}, m.Prefix)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("%v: %w", path, err)
			}
			res.AddMod(mod)
		}
		for _, p := range def.Platforms {
			id := p.ID
			if id == "" {
				id = p.Prefix
			}
			platform, err := lib.Platform(ffi.PlatformDescriptor{ID: id, Description: p.Description, Schema: p.Schema, Values: s.Platform}, p.Prefix)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("%v: %w", path, err)
			}
			res.AddPlatform(platform)
		}
	}
	return closeAll, nil
}
