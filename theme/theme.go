package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
}

// New builds a theme over palette; nil selects Plasma
func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Plasma()
	}
	return &Theme{Palette: palette}
}

// Load returns the palette at path as a theme, or the built-in one when
// path is empty.
func Load(path string) (*Theme, error) {
	if path == "" {
		return New(nil), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.25
	RoleAccent  = 0.5
	RoleError   = 0.6
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Error() lipgloss.Color   { return t.Color(RoleError) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

// Gradient returns the palette ends, for progress bars
func (t *Theme) Gradient() (from, to string) {
	return t.Palette.Lookup(RoleMuted).Hex(), t.Palette.Lookup(RoleSuccess).Hex()
}

// Style helpers

func (t *Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error()).Bold(true)
}

func (t *Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent())
}

func (t *Theme) DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted())
}

func (t *Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success())
}

func (t *Theme) WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning())
}
