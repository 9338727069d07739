package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-pattern/midi"
	"go-pattern/pattern"
	"go-pattern/project"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	dir, err := project.DefaultDir()
	if err != nil {
		fail(err)
	}
	store := project.NewStore(dir)
	args := os.Args[2:]

	switch os.Args[1] {
	case "ports":
		err = listPorts(os.Stdout, 3*time.Second)
	case "projects":
		err = listProjects(os.Stdout, store)
	case "saves":
		err = needArgs(args, 1)
		if err == nil {
			err = listSaves(os.Stdout, store, args[0])
		}
	case "info":
		err = needArgs(args, 1)
		if err == nil {
			err = info(os.Stdout, store, args[0], optional(args, 1))
		}
	case "export":
		err = runExport(store, args)
	default:
		usage()
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Println("Pattern tools")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  ports                        - List MIDI ports")
	fmt.Println("  projects                     - List saved projects")
	fmt.Println("  saves <project>              - List saves of a project, newest first")
	fmt.Println("  info <project> [save]        - Show the patterns in a save")
	fmt.Println("  export [flags] <project> [save]")
	fmt.Println("                               - Write each MIDI pattern as a .mid file")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func needArgs(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func listPorts(w io.Writer, timeout time.Duration) error {
	fmt.Fprintf(w, "=== MIDI Input Ports ===\n(waiting up to %s...)\n", timeout)
	ins, outs, err := midi.Ports(timeout)
	if err != nil {
		fmt.Fprintln(w, "\nTIMEOUT! CoreMIDI is hung.")
		fmt.Fprintln(w, "Fix: sudo killall coreaudiod midiserver")
		return err
	}
	for i, p := range ins {
		fmt.Fprintf(w, "  %d: %s\n", i, p)
	}
	fmt.Fprintln(w, "\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Fprintf(w, "  %d: %s\n", i, p)
	}
	midi.CloseDriver()
	return nil
}

func listProjects(w io.Writer, store *project.Store) error {
	projects, err := store.ListProjects()
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Fprintln(w, p)
	}
	return nil
}

func listSaves(w io.Writer, store *project.Store, name string) error {
	saves, err := store.ListSaves(name)
	if err != nil {
		return err
	}
	for _, s := range saves {
		label := s.Name
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "%s  %-20s %s\n", s.Timestamp.Format("2006-01-02 15:04:05"), label, s.Filename)
	}
	return nil
}

// restore loads a save into a fresh pool.
func restore(store *project.Store, name, save string) (*pattern.Pool, project.Document, error) {
	doc, err := store.Load(name, save)
	if err != nil {
		return nil, doc, err
	}
	pool := pattern.NewPool(pattern.Options{})
	if _, err := project.Restore(pool, doc); err != nil {
		return nil, doc, err
	}
	return pool, doc, nil
}

func info(w io.Writer, store *project.Store, name, save string) error {
	pool, doc, err := restore(store, name, save)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "project %s: %d patterns, tempo %g\n", name, pool.Len(), doc.Tempo)

	l := pool.List()
	defer l.Release()
	l.Each(func(s pattern.Snapshot) bool {
		detail := fmt.Sprintf("%d notes", s.NoteCount())
		s.Match(nil, func(a pattern.AudioSlicePayload) {
			detail = fmt.Sprintf("asset %s frames %d+%d", a.Asset, a.Start, a.Length)
		})
		fmt.Fprintf(w, "  %3d  %-5s %-20s %6gb  %s\n", s.ID(), s.Kind(), s.Name(), s.LengthBeats(), detail)
		return true
	})
	return nil
}

func runExport(store *project.Store, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", ".", "output directory")
	loops := fs.Int("loops", 1, "pattern repetitions per file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs.Args(), 1); err != nil {
		return err
	}
	files, err := export(store, fs.Arg(0), fs.Arg(1), *out, *loops)
	for _, f := range files {
		fmt.Println(f)
	}
	return err
}

// export writes every MIDI pattern of a save to dir and returns the paths
// written. Audio patterns are skipped.
func export(store *project.Store, name, save, dir string, loops int) ([]string, error) {
	pool, doc, err := restore(store, name, save)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	opts := midi.SMFOptions{Tempo: doc.Tempo, Loops: loops}
	var written []string

	l := pool.List()
	defer l.Release()
	for i := range l.Len() {
		s := l.At(i)
		if s.Kind() != pattern.KindMidi {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%02d-%s.mid", s.ID(), fileSafe(s.Name())))
		if err := writeFile(path, s, opts); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, s pattern.Snapshot, opts midi.SMFOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := midi.WriteSMF(f, s, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var unsafeChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "_")

func fileSafe(name string) string {
	if name == "" {
		return "pattern"
	}
	return unsafeChars.Replace(name)
}
