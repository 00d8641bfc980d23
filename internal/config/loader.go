package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TRIAGED_CONFIG is set
//  3. env (prefix TRIAGED_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TRIAGED_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, wrapLoadError(err)
		}
	}

	// Environment variables: TRIAGED_ADDR, TRIAGED_MAX_PASSES, ...
	// Keys keep their underscores to match the koanf struct tags.
	envProvider := env.Provider("TRIAGED_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "triaged_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, wrapLoadError(err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, wrapLoadError(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return ErrEmptyAddr
	case c.MaxPasses < 1:
		return ErrInvalidPasses
	case c.AutoApplyThreshold < 1 || c.AutoApplyThreshold > 100:
		return ErrInvalidThreshold
	case c.StopConfidence < 1 || c.StopConfidence > 100:
		return ErrInvalidThreshold
	case c.EphemeralStopConfidence < 1 || c.EphemeralStopConfidence > 100:
		return ErrInvalidThreshold
	case c.MaxConcurrentAnalyses < 1:
		return ErrInvalidConcurrency
	}
	return nil
}
