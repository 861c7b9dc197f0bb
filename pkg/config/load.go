package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file over Default and validates it.
func Load(path string) (LinkConfig, error) {
	cfg := Default()
	if err := loadInto(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return LinkConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg in the format selected by the path's extension.
func Save(path string, cfg LinkConfig) error {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return fmt.Errorf("config encode failed (%s): %w", path, err)
	}
	return os.WriteFile(path, data, 0600)
}

func loadInto(path string, out *LinkConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch format(path) {
	case "yaml":
		err = yaml.Unmarshal(data, out)
	case "toml":
		err = toml.Unmarshal(data, out)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}
