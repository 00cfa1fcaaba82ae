// Package config loads the engine's TOML configuration: default locale,
// capability flags, and default formatting patterns per Value type. It
// decodes the document into a raw struct, then converts that into an
// EngineConfig.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/value"
)

// Capability is an alias of core.CapabilityName so *EngineConfig can be
// passed anywhere a core.CapabilityChecker is expected without a wrapper
// type.
type Capability = core.CapabilityName

const (
	CapabilityPivot        = core.CapabilityPivot
	CapabilityRegexMatches = core.CapabilityRegexMatches
)

// EngineConfig is the converted, ready-to-use form of the TOML document.
// It implements core.CapabilityChecker.
type EngineConfig struct {
	DefaultLocale string
	Capabilities  map[Capability]bool
	Formats       map[value.Type]string
}

// HasCapability reports whether name is enabled. Capabilities not present
// in the document default to enabled, matching an opt-out config style.
func (c *EngineConfig) HasCapability(name core.CapabilityName) bool {
	enabled, declared := c.Capabilities[name]
	if !declared {
		return true
	}
	return enabled
}

// tomlDocument is the raw decode target.
type tomlDocument struct {
	Engine tomlEngine `toml:"engine"`
}

type tomlEngine struct {
	DefaultLocale string            `toml:"default_locale"`
	Capabilities  map[string]bool   `toml:"capabilities"`
	Formats       map[string]string `toml:"formats"`
}

// Load reads and converts the TOML configuration at path.
func Load(path string) (*EngineConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// LoadWithLogger is Load plus structured logging at the boundary: the
// engine itself never logs, but a CLI or service loading configuration
// wants to know what locale and capability set it ended up with. A nil
// logger is treated as zap.NewNop().
func LoadWithLogger(path string, logger *zap.Logger) (*EngineConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("loading engine configuration", zap.String("path", path))
	cfg, err := Load(path)
	if err != nil {
		logger.Error("failed to load engine configuration", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	logger.Debug("loaded engine configuration",
		zap.String("locale", cfg.DefaultLocale),
		zap.Int("capability_overrides", len(cfg.Capabilities)),
	)
	return cfg, nil
}

// Parse reads a TOML configuration document from r.
func Parse(r io.Reader) (*EngineConfig, error) {
	var doc tomlDocument
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: decode error: %w", err)
	}
	return convert(&doc)
}

// Default returns the engine's built-in configuration: en_US locale,
// every capability enabled, and the type defaults described in §6 of the
// number/calendar formatting rules (empty pattern for NUMBER and
// BOOLEAN, "yyyy-MM-dd" for DATE).
func Default() *EngineConfig {
	return &EngineConfig{
		DefaultLocale: "en_US",
		Capabilities:  map[Capability]bool{},
		Formats: map[value.Type]string{
			value.TypeDate: "yyyy-MM-dd",
		},
	}
}

func convert(doc *tomlDocument) (*EngineConfig, error) {
	cfg := Default()
	if doc.Engine.DefaultLocale != "" {
		cfg.DefaultLocale = doc.Engine.DefaultLocale
	}
	for name, enabled := range doc.Engine.Capabilities {
		cfg.Capabilities[Capability(name)] = enabled
	}
	for name, pattern := range doc.Engine.Formats {
		t, ok := typeByConfigName(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown format type %q", name)
		}
		cfg.Formats[t] = pattern
	}
	return cfg, nil
}

func typeByConfigName(name string) (value.Type, bool) {
	switch name {
	case "number":
		return value.TypeNumber, true
	case "boolean":
		return value.TypeBoolean, true
	case "date":
		return value.TypeDate, true
	case "timeofday":
		return value.TypeTimeOfDay, true
	case "datetime":
		return value.TypeDateTime, true
	default:
		return 0, false
	}
}
