package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/value"
)

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
[engine]
default_locale = "fr_FR"

[engine.capabilities]
pivot = false
regex_matches = true

[engine.formats]
number = "#,##0.00"
date = "dd/MM/yyyy"
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "fr_FR", cfg.DefaultLocale)
	assert.False(t, cfg.HasCapability(CapabilityPivot))
	assert.True(t, cfg.HasCapability(CapabilityRegexMatches))
	assert.Equal(t, "#,##0.00", cfg.Formats[value.TypeNumber])
	assert.Equal(t, "dd/MM/yyyy", cfg.Formats[value.TypeDate])
}

func TestParseEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "en_US", cfg.DefaultLocale)
	assert.True(t, cfg.HasCapability(CapabilityPivot))
}

func TestParseRejectsUnknownFormatType(t *testing.T) {
	doc := `
[engine.formats]
frobnicate = "x"
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
}

func TestUndeclaredCapabilityDefaultsEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.HasCapability(CapabilityPivot))
}
