package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// templateConfig is the shape written by WriteTemplate. Kept separate from
// Config so the generated file only contains keys a user should edit.
type templateConfig struct {
	Backend struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Timeout int    `yaml:"timeout"`
	} `yaml:"backend"`
	Upload struct {
		Language string `yaml:"language"`
		Engine   string `yaml:"engine"`
		Quality  string `yaml:"quality"`
	} `yaml:"upload"`
	Watch struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"watch"`
}

// WriteTemplate writes a starter config file. Fails if the file already
// exists so it never clobbers a user's settings.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	var t templateConfig
	t.Backend.BaseURL = "http://localhost:3000"
	t.Backend.APIKey = ""
	t.Backend.Timeout = 60
	t.Upload.Language = "eng"
	t.Upload.Engine = "tesseract"
	t.Upload.Quality = "balanced"
	t.Watch.Enabled = false
	t.Watch.Dir = ""

	data, err := yaml.Marshal(&t)
	if err != nil {
		return fmt.Errorf("failed to marshal config template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
