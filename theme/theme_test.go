package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gpl = `GIMP Palette
Name: duo
Columns: 2
# comment
0 0 0	black
255 255 255	white
300 1 1	out of range
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	if err != nil {
		t.Fatalf("ParseGPL: %v", err)
	}
	if p.Name != "duo" || len(p.Colors) != 2 {
		t.Fatalf("palette %+v", p)
	}
	if got := p.Lookup(0.5); got != (RGB{127, 127, 127}) {
		t.Fatalf("Lookup(0.5)=%v", got)
	}
	if p.Lookup(-1) != p.Colors[0] || p.Lookup(2) != p.Colors[1] {
		t.Fatalf("Lookup does not clamp")
	}
}

func TestParseGPLEmpty(t *testing.T) {
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n# nothing\n")); err == nil {
		t.Fatalf("expected error for palette without colours")
	}
}

func TestLoad(t *testing.T) {
	th, err := Load("")
	if err != nil || th.Palette.Name != "plasma" {
		t.Fatalf("Load(\"\") = %v, %v", th, err)
	}

	path := filepath.Join(t.TempDir(), "duo.gpl")
	if err := os.WriteFile(path, []byte(gpl), 0o644); err != nil {
		t.Fatal(err)
	}
	th, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if th.Success() != "#ffffff" {
		t.Fatalf("Success()=%s", th.Success())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.gpl")); err == nil {
		t.Fatalf("expected error for missing palette")
	}
}

func TestHex(t *testing.T) {
	if got := (RGB{13, 8, 135}).Hex(); got != "#0d0887" {
		t.Fatalf("Hex=%s", got)
	}
}

func TestStylesUseRoles(t *testing.T) {
	th := New(nil)
	if got := th.WarningStyle().GetForeground(); got != th.Warning() {
		t.Fatalf("WarningStyle foreground %v; want %v", got, th.Warning())
	}
	if got := th.SuccessStyle().GetForeground(); got != th.Success() {
		t.Fatalf("SuccessStyle foreground %v; want %v", got, th.Success())
	}
	if !strings.Contains(th.SuccessStyle().Render("done"), "done") {
		t.Fatalf("SuccessStyle dropped its text")
	}
}
