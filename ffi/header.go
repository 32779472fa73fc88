package ffi

import (
	"embed"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/vsariola/mleml"
)

// HeaderEntry describes one resource of a library for Header.
type HeaderEntry struct {
	Prefix   string
	Platform bool
	Input    mleml.DataType
	Output   mleml.DataType
}

var (
	//go:embed include/mleml.h
	types string

	//go:embed templates/*.h
	templateFS embed.FS
)

// Types returns the C declarations of the data types crossing the boundary.
func Types() string { return types }

// Header writes a C header declaring the entry points of the given
// resources. name is used for the include guard.
func Header(w io.Writer, name string, entries ...HeaderEntry) error {
	for _, e := range entries {
		if !isIdentifier(e.Prefix) {
			return fmt.Errorf("invalid prefix %q", e.Prefix)
		}
	}
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
		"ctype": ctype,
	}).ParseFS(templateFS, "templates/*.h")
	if err != nil {
		return fmt.Errorf(`could not parse templates: %v`, err)
	}
	data := struct {
		Name    string
		Types   string
		Entries []HeaderEntry
	}{name, types, entries}
	if err := tmpl.ExecuteTemplate(w, "resources.h", data); err != nil {
		return fmt.Errorf(`could not execute template "resources.h": %v`, err)
	}
	return nil
}

func ctype(t mleml.DataType) string {
	switch t {
	case mleml.StringType:
		return "mleml_string"
	case mleml.NoteType:
		return "mleml_note"
	case mleml.ReadyNoteType:
		return "mleml_ready_note"
	}
	return "mleml_sound"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
