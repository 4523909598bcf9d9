package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/matzehuels/rankbars/pkg/errors"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RANKBARS_"

	// EnvConfigFile names a YAML file loaded when no explicit path is given.
	EnvConfigFile = "RANKBARS_CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults ([New])
//  2. the YAML file at path, or at $RANKBARS_CONFIG when path is empty
//  3. environment variables prefixed with RANKBARS_
//
// Nested keys use a double underscore in the environment:
// RANKBARS_CHART__ROW_HEIGHT sets chart.row_height.
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load environment")
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	cfg.Chart = cfg.Chart.Normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps RANKBARS_CHART__ROW_HEIGHT to chart.row_height.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "addr must not be empty")
	}
	if c.FirstYear > c.LastYear {
		return errors.New(errors.ErrCodeInvalidInput, "first_year %d is after last_year %d", c.FirstYear, c.LastYear)
	}
	return nil
}
