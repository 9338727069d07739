package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Output.PortName = "IAC"
	cfg.Player.Tempo = 95
	cfg.Player.Lookahead = Duration(40 * time.Millisecond)
	cfg.UI.LastProject = "song"
	cfg.MetricsAddr = "localhost:9464"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"lookahead": "40ms"`) {
		t.Fatalf("lookahead not written as text:\n%s", data)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"player": {"tempo": 140}}`), 0644)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Player.Tempo != 140 || cfg.Player.BeatsPerBar != 4 || cfg.Pool.DefaultLengthBeats != 4 || cfg.Output.Channel != -1 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax":    `{"player": `,
		"tempo":     `{"player": {"tempo": 5}}`,
		"channel":   `{"output": {"channel": 16}}`,
		"lookahead": `{"player": {"lookahead": "soon"}}`,
		"length":    `{"pool": {"defaultLengthBeats": 0}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			os.WriteFile(path, []byte(body), 0644)
			if _, err := LoadFrom(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
