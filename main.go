package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"go-pattern/config"
	"go-pattern/debug"
	"go-pattern/metrics"
	"go-pattern/midi"
	"go-pattern/pattern"
	"go-pattern/player"
	"go-pattern/project"
	"go-pattern/theme"
	"go-pattern/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "config file (default ~/.config/go-pattern/config.json)")
		debugLog    = flag.Bool("debug", false, "write a debug log to ~/.config/go-pattern/debug.log")
		projectName = flag.String("project", "", "project to open (default: last opened)")
		port        = flag.String("port", "", "MIDI output port substring")
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address")
		recordSlot  = flag.Int("record-slot", 1, "player slot (1-8) that keyboard input records into")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Output.PortName = *port
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *projectName != "" {
		cfg.UI.LastProject = *projectName
	}
	if *recordSlot < 1 || *recordSlot > player.NumSlots {
		return fmt.Errorf("record-slot %d out of range 1..%d", *recordSlot, player.NumSlots)
	}

	if *debugLog || cfg.Debug {
		if err := debug.Enable(""); err != nil {
			return fmt.Errorf("enable debug log: %w", err)
		}
		defer debug.Disable()
	}

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		return err
	}
	th := theme.New(palette)

	projectsDir, err := project.DefaultDir()
	if err != nil {
		return err
	}
	store := project.NewStore(projectsDir)

	pool := pattern.NewPool(pattern.Options{StrictRoles: cfg.Pool.StrictRoles})
	pl := player.New(pool, player.Options{BeatsPerBar: cfg.Player.BeatsPerBar})
	if cfg.Output.Channel != player.AutoChannel {
		for i := range player.NumSlots {
			pl.SetChannel(i, cfg.Output.Channel)
		}
	}
	clock := player.NewClock(cfg.Player.Tempo)

	if cfg.UI.LastProject != "" {
		openProject(store, cfg.UI.LastProject, pool, pl, clock)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := midi.NewOutput(cfg.Output.PortName)
	defer midi.CloseDriver()
	watcher := midi.NewPortWatcher(out)
	tr := newTransport(ctx, pl, clock, out, time.Duration(cfg.Player.Lookahead))
	defer tr.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watcher.Run(ctx)
		return nil
	})

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector(pool, pl)
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.MetricsAddr, collector)
		})
	}

	if cfg.Output.Input != "" {
		in, err := midi.OpenInput(cfg.Output.Input)
		if err != nil {
			debug.Log("main", "keyboard input unavailable: %v", err)
		} else {
			defer in.Close()
			rec := player.NewRecorder(pool, pl, *recordSlot-1)
			g.Go(func() error {
				record(ctx, in, rec, tr, clock)
				return nil
			})
		}
	}

	m := tui.NewModel(tui.Deps{
		Pool:          pool,
		Player:        pl,
		Clock:         clock,
		Transport:     tr,
		Store:         store,
		Project:       cfg.UI.LastProject,
		Theme:         th,
		DefaultLength: cfg.Pool.DefaultLengthBeats,
		Ports:         watcher.Events(),
	})
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	g.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
			return nil
		}
		return err
	})

	err = g.Wait()
	tr.Stop()

	if *projectName != "" && cfg.UI.LastProject != "" {
		if err := cfg.Save(); err != nil {
			debug.Log("main", "save config: %v", err)
		}
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// openProject restores the newest save of name. A missing or empty project
// starts with an empty pool.
func openProject(store *project.Store, name string, pool *pattern.Pool, pl *player.Player, clock *player.Clock) {
	doc, err := store.Load(name, "")
	if err != nil {
		debug.Log("main", "open project %q: %v", name, err)
		return
	}
	remap, err := project.Restore(pool, doc)
	if err != nil {
		debug.Log("main", "restore project %q: %v", name, err)
		return
	}
	if doc.Tempo > 0 {
		clock.SetTempo(doc.Tempo)
	}
	for i, id := range project.RemapSlots(doc.Slots, remap) {
		if i < player.NumSlots && id != pattern.NoID {
			pl.Launch(i, id)
		}
	}
}

// record feeds keyboard notes to rec while the transport runs.
func record(ctx context.Context, in *midi.Input, rec *player.Recorder, tr *transport, clock *player.Clock) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in.NoteEvents():
			if !ok {
				return
			}
			if tr.Playing() {
				rec.Capture(ev, clock.Now())
			}
		}
	}
}
