package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/vsariola/mleml"
	"github.com/vsariola/mleml/ffi"
	"github.com/vsariola/mleml/version"
)

func main() {
	name := flag.String("n", "resources", "Name of the library, used for the include guard.")
	outPath := flag.String("o", "", "File to write the header to. By default, the header is written to standard output.")
	typesOnly := flag.Bool("t", false, "Write only the declarations of the data types.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help || (flag.NArg() == 0 && !*typesOnly) {
		flag.Usage()
		os.Exit(0)
	}
	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create %v: %v\n", *outPath, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if *typesOnly {
		if _, err := out.WriteString(ffi.Types()); err != nil {
			fmt.Fprintf(os.Stderr, "could not write header: %v\n", err)
			os.Exit(1)
		}
		return
	}
	var entries []ffi.HeaderEntry
	for _, arg := range flag.Args() {
		e, err := parseEntry(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid resource %q: %v\n", arg, err)
			os.Exit(1)
		}
		entries = append(entries, e)
	}
	if err := ffi.Header(out, *name, entries...); err != nil {
		fmt.Fprintf(os.Stderr, "could not write header: %v\n", err)
		os.Exit(1)
	}
}

// parseEntry parses prefix:input:output for a mod or prefix:mixer for a
// platform.
func parseEntry(s string) (ffi.HeaderEntry, error) {
	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 2 && parts[1] == "mixer":
		return ffi.HeaderEntry{Prefix: parts[0], Platform: true}, nil
	case len(parts) == 3:
		in, err := mleml.ParseDataType(parts[1])
		if err != nil {
			return ffi.HeaderEntry{}, err
		}
		out, err := mleml.ParseDataType(parts[2])
		if err != nil {
			return ffi.HeaderEntry{}, err
		}
		return ffi.HeaderEntry{Prefix: parts[0], Input: in, Output: out}, nil
	}
	return ffi.HeaderEntry{}, fmt.Errorf("expected prefix:input:output or prefix:mixer")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Writes the C header declaring the entry points of foreign mleml resources.\nUsage: %s [flags] prefix:input:output|prefix:mixer ...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Data types are %v, %v, %v and %v.\n", mleml.StringType, mleml.NoteType, mleml.ReadyNoteType, mleml.SoundType)
	flag.PrintDefaults()
}
