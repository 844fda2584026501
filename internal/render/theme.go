package render

import (
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"

	"github.com/gitlanes/gitlanes/internal/graph"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// Theme carries the lane palette and text styling knobs for one rendering
// session. NoColor strips all styling; used for tests and non-TTY output.
type Theme struct {
	Dark    bool
	Palette []graph.Color
	NoColor bool
}

var detectDarkMode = darkmode.IsDarkMode

// ThemeForPreference resolves the palette, consulting the OS appearance for
// ThemeAuto the way the detection library reports it.
func ThemeForPreference(pref ThemePreference) Theme {
	dark := false
	switch pref {
	case ThemeDark:
		dark = true
	case ThemeLight:
		dark = false
	default:
		if detectDarkMode != nil {
			d, err := detectDarkMode()
			if err != nil {
				slog.Debug("detect dark-mode", slog.Any("error", err))
			} else {
				dark = d
			}
		}
	}
	palette := graph.LightPalette
	if dark {
		palette = graph.DarkPalette
	}
	return Theme{Dark: dark, Palette: palette}
}
