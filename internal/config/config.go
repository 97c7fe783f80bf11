// Package config loads wraith's optional YAML configuration file.
// Command-line flags take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the per-repository config file looked up under the scan root.
const FileName = ".wraith.yaml"

// Config holds scan settings. Zero values mean "use the default".
type Config struct {
	OllamaURL        string   `yaml:"ollama_url"`
	Model            string   `yaml:"model"`
	DiagramModel     string   `yaml:"diagram_model"`
	Workers          int      `yaml:"workers"`
	MaxTokens        int      `yaml:"max_tokens"`
	EnableLanguages  []string `yaml:"enable_languages"`
	DisableLanguages []string `yaml:"disable_languages"`
	ThreatModel      bool     `yaml:"threat_model"`
	DocsDir          string   `yaml:"docs_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OllamaURL: "http://localhost:11434",
		Model:     "qwen3:8b",
		Workers:   8,
		MaxTokens: 4096,
	}
}

// Load reads the config file at path, layered over the defaults. A
// missing file is not an error unless explicit is set (the user named
// the file on the command line).
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadRoot loads the config file from its default location under the
// repository root.
func LoadRoot(root string) (Config, error) {
	return Load(filepath.Join(root, FileName), false)
}
