// Package config loads editor.yaml and applies NTWTF_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir           string   `yaml:"data_dir"            env:"NTWTF_DATA_DIR"`
	GameDataDir       string   `yaml:"game_data_dir"       env:"NTWTF_GAME_DATA_DIR"`
	SaveRoots         []string `yaml:"save_roots"          env:"NTWTF_SAVE_ROOTS"          envSeparator:","`
	BackupGenerations int      `yaml:"backup_generations"  env:"NTWTF_BACKUP_GENERATIONS"`
	CasingProbes      []string `yaml:"casing_probes"       env:"NTWTF_CASING_PROBES"       envSeparator:","`
	WhiteCheckTables  []string `yaml:"white_check_tables"  env:"NTWTF_WHITE_CHECK_TABLES"  envSeparator:","`

	Snapshots SnapshotConfig `yaml:"snapshots"`
	Index     ToggleConfig   `yaml:"index"  envPrefix:"NTWTF_INDEX_"`
	Audit     ToggleConfig   `yaml:"audit"  envPrefix:"NTWTF_AUDIT_"`
	Server    ServerConfig   `yaml:"server"`
}

type SnapshotConfig struct {
	Enabled bool `yaml:"enabled" env:"NTWTF_SNAPSHOTS_ENABLED"`
	Keep    int  `yaml:"keep"    env:"NTWTF_SNAPSHOTS_KEEP"`
}

type ToggleConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"NTWTF_SERVER_ADDR"`
}

var knownProbes = map[string]bool{"exact": true, "pascal": true, "camel": true}

// Defaults is the configuration used when no file is given.
func Defaults() Config {
	return Config{
		DataDir:           "./data",
		BackupGenerations: 2,
		CasingProbes:      []string{"exact", "pascal", "camel"},
		WhiteCheckTables:  []string{"WhiteCheckCache", "SeenWhiteCheckCache"},
		Snapshots:         SnapshotConfig{Enabled: true, Keep: 20},
		Index:             ToggleConfig{Enabled: true},
		Audit:             ToggleConfig{Enabled: true},
		Server:            ServerConfig{Addr: "127.0.0.1:8090"},
	}
}

// Load reads path over Defaults, then the environment. An empty path skips
// the file.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("editor.yaml: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("editor.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.DataDir = filepath.Clean(c.DataDir)
	c.GameDataDir = strings.TrimSpace(c.GameDataDir)

	c.SaveRoots = trimAll(c.SaveRoots)
	c.CasingProbes = trimAll(c.CasingProbes)
	for i, p := range c.CasingProbes {
		c.CasingProbes[i] = strings.ToLower(p)
	}
	if len(c.CasingProbes) == 0 {
		c.CasingProbes = []string{"exact", "pascal", "camel"}
	}
	c.WhiteCheckTables = trimAll(c.WhiteCheckTables)
	if c.Snapshots.Keep < 0 {
		c.Snapshots.Keep = 0
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
}

func (c Config) Validate() error {
	if c.BackupGenerations < 0 {
		return fmt.Errorf("backup_generations must be >= 0")
	}
	for _, p := range c.CasingProbes {
		if !knownProbes[p] {
			return fmt.Errorf("unknown casing probe %q", p)
		}
	}
	if len(c.WhiteCheckTables) != 2 {
		return fmt.Errorf("white_check_tables needs exactly 2 entries (failed, seen), got %d", len(c.WhiteCheckTables))
	}
	return nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
