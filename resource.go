package mleml

import (
	"bytes"

	"github.com/google/uuid"
)

type (
	// Resource is the contract every unit implements: Mods, Platforms and
	// Channels are all resources.
	Resource interface {
		// ID is a stable, unique identifier. Two resources are the same
		// resource if and only if their IDs match.
		ID() string
		// OrigName returns the human readable name, if the resource has one.
		// Meant for display only.
		OrigName() (string, bool)
		Description() string
		// CheckConfig compares the type tags of conf to the schema of the
		// resource.
		CheckConfig(conf ResConfig) error
		// CheckState reports whether the state is structurally valid for the
		// resource. It does not try to interpret what the state means.
		CheckState(state ResState) bool
	}

	// ResState is the opaque state of a resource. Only the resource that
	// produced it interprets its contents.
	ResState []byte

	// Info holds the identity and the schema of a resource built from one of
	// the templates.
	Info struct {
		ID          string
		Name        string
		Description string
		Schema      ResConfig
	}
)

// NewID returns a new random resource ID.
func NewID() string {
	return uuid.NewString()
}

// SameResource reports whether a and b are the same resource.
func SameResource(a, b Resource) bool {
	return a.ID() == b.ID()
}

// Name returns a name to display for the resource: its original name if it
// has one, and its ID otherwise.
func Name(r Resource) string {
	if n, ok := r.OrigName(); ok && n != "" {
		return n
	}
	return r.ID()
}

func (s ResState) Equal(other ResState) bool {
	return bytes.Equal(s, other)
}

// Copy makes a copy of the state.
func (s ResState) Copy() ResState {
	if s == nil {
		return nil
	}
	return append(ResState(nil), s...)
}

func (i Info) withID() Info {
	if i.ID == "" {
		i.ID = NewID()
	}
	return i
}
