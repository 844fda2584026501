package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gitlanes/gitlanes/internal/graph"
)

// Settings mirrors the walker toggles stored in the user's config file.
type Settings struct {
	AllRefs      bool `toml:"refs-all"`
	SortDate     bool `toml:"sort-date"`
	CleanStatus  bool `toml:"clean-status"`
	GraphVisible bool `toml:"graph-visible"`
	Compact      bool `toml:"compact"`
}

func Default() Settings {
	return Settings{
		AllRefs:      true,
		SortDate:     true,
		CleanStatus:  false,
		GraphVisible: true,
		Compact:      false,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gitlanes", "config.toml"), nil
}

// Load reads settings from path. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return settings, nil
}

// Graph converts to the engine's settings type.
func (s Settings) Graph() graph.Settings {
	return graph.Settings{
		AllRefs:      s.AllRefs,
		SortDate:     s.SortDate,
		CleanStatus:  s.CleanStatus,
		GraphVisible: s.GraphVisible,
		Compact:      s.Compact,
	}
}
