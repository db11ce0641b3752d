// Package config provides koanf-backed configuration for the leakguard CLI.
// Precedence (highest to lowest): flags > environment > config file >
// defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leakguard-dev/leakguard/pkg/audit"
)

// Config holds all CLI configuration options.
type Config struct {
	Train    string        `koanf:"train"`
	Target   string        `koanf:"target"`
	TimeCol  string        `koanf:"time_col"`
	CVType   string        `koanf:"cv_type"`
	Groups   []string      `koanf:"groups"`
	Simulate bool          `koanf:"simulate"`
	OutDir   string        `koanf:"out"`
	Format   string        `koanf:"format"`
	Engine   string        `koanf:"engine"`
	MaxRows  int           `koanf:"max_rows"`
	Verbose  bool          `koanf:"verbose"`
	Audit    *audit.Config `koanf:"audit"`
}

// envPrefix is the prefix for environment overrides, e.g.
// LEAKGUARD_TIME_COL=event_ts.
const envPrefix = "LEAKGUARD_"

// findConfigFile looks for a config file in the working directory,
// preferring leakguard.yaml over leakguard.yml.
func findConfigFile() string {
	for _, name := range []string{"leakguard.yaml", "leakguard.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the effective configuration from defaults, an optional YAML
// file, LEAKGUARD_* environment variables and the given flag set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Format: "text",
		Engine: "csv",
		Audit:  audit.DefaultConfig(),
	}
	if err := k.Load(confmap.Provider(map[string]any{
		"format": defaults.Format,
		"engine": defaults.Engine,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	switch {
	case cfgFile != "":
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file %s not found", cfgFile)
		}
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", cfgFile, err)
		}
	default:
		if path := findConfigFile(); path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		// Flag names use dashes (time-col) while koanf keys use
		// underscores (time_col); the cv flag maps onto cv_type.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "cv" {
				key = "cv_type"
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := defaults
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.DefaultConfig()
	}
	return cfg, nil
}
