//go:build !cgo || !(darwin || freebsd || linux)

package cmd

import (
	"errors"
	"log/slog"

	"github.com/vsariola/mleml/song"
)

// LoadLibraries fails if the song uses foreign libraries, as they cannot be
// loaded without cgo.
func LoadLibraries(s *song.Song, res *song.Resources, dir string, logger *slog.Logger) (func() error, error) {
	if len(s.Libraries) > 0 {
		return nil, errors.New("foreign libraries are not supported in this build")
	}
	return func() error { return nil }, nil
}
