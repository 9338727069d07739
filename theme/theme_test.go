package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPaletteParses(t *testing.T) {
	p := Default()
	if p.Name != "plasma" || len(p.Colors) != 11 {
		t.Fatalf("palette = %q with %d colors", p.Name, len(p.Colors))
	}
	if p.Colors[0] != (RGB{13, 8, 135}) {
		t.Fatalf("first color = %v", p.Colors[0])
	}
}

func TestParseGPLSkipsJunk(t *testing.T) {
	src := "GIMP Palette\nName: test\nColumns: 2\n# comment\n0 0 0 black\n1 2\n300 0 0 bad\n255 255 255\n"
	p, err := ParseGPL(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Colors) != 2 || p.Colors[1] != (RGB{255, 255, 255}) {
		t.Fatalf("colors = %v", p.Colors)
	}
	if got := p.Lookup(0.5); got != (RGB{127, 127, 127}) {
		t.Fatalf("Lookup(0.5) = %v", got)
	}
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n")); err == nil {
		t.Fatal("empty palette accepted")
	}
}

func TestLoadOrDefault(t *testing.T) {
	p, err := LoadOrDefault("")
	if err != nil || p.Name != "plasma" {
		t.Fatalf("LoadOrDefault(\"\") = %v, %v", p, err)
	}
	path := filepath.Join(t.TempDir(), "x.gpl")
	os.WriteFile(path, []byte("GIMP Palette\n10 20 30\n"), 0644)
	p, err = LoadOrDefault(path)
	if err != nil || p.Index(5) != (RGB{10, 20, 30}) {
		t.Fatalf("LoadOrDefault(path) = %v, %v", p, err)
	}
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.gpl")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestARGBRoundTrip(t *testing.T) {
	c := RGB{0xbb, 0x86, 0xfc}
	if c.ARGB() != 0xFFbb86fc {
		t.Fatalf("ARGB = %x", c.ARGB())
	}
	if FromARGB(0x80bb86fc) != c {
		t.Fatalf("FromARGB = %v", FromARGB(0x80bb86fc))
	}
	if c.Hex() != "#bb86fc" {
		t.Fatalf("Hex = %s", c.Hex())
	}
}

func TestNextPatternColorVisitsPalette(t *testing.T) {
	th := New(Default())
	seen := map[uint32]bool{}
	for n := range len(th.Palette.Colors) {
		seen[th.NextPatternColor(n)] = true
	}
	if len(seen) != len(th.Palette.Colors) {
		t.Fatalf("visited %d of %d colors", len(seen), len(th.Palette.Colors))
	}
}
