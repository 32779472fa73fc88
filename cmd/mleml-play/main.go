package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vsariola/mleml"
	"github.com/vsariola/mleml/builtin"
	"github.com/vsariola/mleml/cmd"
	"github.com/vsariola/mleml/oto"
	"github.com/vsariola/mleml/song"
	"github.com/vsariola/mleml/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	bitDepth := flag.Int("b", 0, "Write the .wav file as integer PCM of this bit depth (8, 16, 24 or 32) instead.")
	octave := flag.Uint("m", 4, "Octave of the channels of imported .mid files.")
	list := flag.Bool("l", false, "List the builtin resources and exit.")
	debug := flag.Bool("d", false, "Log debug messages to standard error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *list {
		listResources(os.Stdout)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if *bitDepth != 0 {
		*wavOut = true
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	var (
		audioContext mleml.AudioContext
		contextRate  uint32
	)
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				_, err := os.Stdout.Write(contents)
				return err
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		s, err := readSong(filename, uint8(*octave))
		if err != nil {
			return err
		}
		res := song.Builtins(s)
		closeLibs, err := cmd.LoadLibraries(s, res, filepath.Dir(filename), logger)
		if err != nil {
			return fmt.Errorf("could not load libraries: %v", err)
		}
		defer closeLibs()
		renderer, err := song.NewRenderer(s, res, filepath.Dir(filename))
		if err != nil {
			return fmt.Errorf("could not prepare the song: %v", err)
		}
		renderer.Logger = logger
		sound, err := renderer.Render()
		if err != nil {
			return fmt.Errorf("could not render the song: %v", err)
		}
		var playWaiter mleml.CloserWaiter
		if *play {
			if audioContext == nil {
				c, err := oto.NewContext(sound.Rate())
				if err != nil {
					return fmt.Errorf("could not acquire oto AudioContext: %v", err)
				}
				audioContext, contextRate = c, sound.Rate()
			}
			// oto opens one context per process, at the rate of the first song
			if playWaiter, err = audioContext.Play(sound.Resample(contextRate)); err != nil {
				return fmt.Errorf("could not play the song: %v", err)
			}
		}
		if *rawOut {
			raw, err := sound.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := encodeWav(sound, *pcm, *bitDepth)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if playWaiter != nil {
			playWaiter.Wait()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			var files []string
			for _, pattern := range []string{"*.yml", "*.yaml", "*.json", "*.mid"} {
				matches, err := filepath.Glob(filepath.Join(param, pattern))
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not glob the path %v for %v files: %v\n", param, pattern, err)
					retval = 1
					continue
				}
				files = append(files, matches...)
			}
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	if audioContext != nil {
		audioContext.Close()
	}
	os.Exit(retval)
}

// readSong reads a song file, or imports a .mid file into a song played
// with sine oscillators.
func readSong(filename string, octave uint8) (*song.Song, error) {
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read file %v: %v", filename, err)
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".mid" && ext != ".midi" {
		return song.Parse(inputBytes)
	}
	vals := mleml.DefaultPlatformValues(1)
	channels, err := song.ImportMIDI(bytes.NewReader(inputBytes), vals.WholeNote, octave)
	if err != nil {
		return nil, err
	}
	for i := range channels {
		channels[i].Settings.PostRelease = 4
		channels[i].Instrument = song.ModRef{ID: builtin.OscillatorID, Config: mleml.MustResConfig("sine", 0.5, float64(song.DefaultRate))}
	}
	vals.Channels = uint32(len(channels))
	return &song.Song{
		Platform: vals,
		Rate:     song.DefaultRate,
		Mixer:    song.ModRef{ID: builtin.TickMixerID, Config: mleml.MustResConfig(float64(vals.MaxVolume))},
		Channels: channels,
	}, nil
}

func encodeWav(sound mleml.Sound, pcm bool, bitDepth int) ([]byte, error) {
	if bitDepth == 0 {
		return sound.Wav(pcm)
	}
	f, err := os.CreateTemp("", "mleml-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := mleml.WriteWav(f, sound, bitDepth); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

func listResources(w io.Writer) {
	title := cases.Title(language.English)
	for _, m := range builtin.Mods() {
		fmt.Fprintf(w, "%-24s %-24s %v -> %v, config %v\n", title.String(mleml.Name(m)), m.ID(), m.InputType(), m.OutputType(), m.Schema())
	}
	for _, p := range builtin.Platforms(mleml.DefaultPlatformValues(1), song.DefaultRate) {
		fmt.Fprintf(w, "%-24s %-24s mixer, config %v\n", title.String(mleml.Name(p)), p.ID(), p.Schema())
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "mleml command line utility for playing .yml/.json song and .mid files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
