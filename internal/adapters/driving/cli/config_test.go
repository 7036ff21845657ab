package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

func TestConfigShow(t *testing.T) {
	setupCLI(t, func(s *domain.Settings) {
		s.ExchangeURL = "https://sync.example.com/exchange"
		s.ExchangeToken = "abcd1234efgh5678"
	})

	out, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file:   :memory:")
	assert.Contains(t, out, "Name:          test")
	assert.Contains(t, out, "Types:         todo, note")
	assert.Contains(t, out, "Exchange:      https://sync.example.com/exchange")
	assert.Contains(t, out, "Token:         abcd...5678")
	assert.NotContains(t, out, "abcd1234efgh5678")
	assert.NotContains(t, out, "Warning")
}

func TestConfig_DefaultsToShow(t *testing.T) {
	setupCLI(t, nil)

	out, err := runCLI(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
	assert.Contains(t, out, "Token:         (not set)")
}

func TestConfigShow_WarnsOnInvalidSettings(t *testing.T) {
	setupCLI(t, func(s *domain.Settings) { s.Types = nil })

	out, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
	assert.Contains(t, out, "record type")
}

func TestConfigSet_TypedValues(t *testing.T) {
	env := setupCLI(t, nil)

	_, err := runCLI(t, "", "config", "set", "sync.periodic", "5000")
	require.NoError(t, err)
	_, err = runCLI(t, "", "config", "set", "log.verbose", "true")
	require.NoError(t, err)
	_, err = runCLI(t, "", "config", "set", "sync.rate_per_second", "2.5")
	require.NoError(t, err)
	out, err := runCLI(t, "", "config", "set", "store.types", "todo, note,,tag")
	require.NoError(t, err)
	assert.Contains(t, out, "Set store.types.")

	v, _ := env.config.Get("sync.periodic")
	assert.Equal(t, int64(5000), v)
	assert.True(t, env.config.GetBool("log.verbose"))
	assert.InDelta(t, 2.5, env.config.GetFloat("sync.rate_per_second"), 0.0001)
	assert.Equal(t, []string{"todo", "note", "tag"}, env.config.GetStringSlice("store.types"))
}

func TestConfigSet_TokenFromStdin(t *testing.T) {
	env := setupCLI(t, nil)

	_, err := runCLI(t, "s3cret\n", "config", "set", "sync.token")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", env.config.GetString("sync.token"))
}

func TestConfigSet_ValueRequired(t *testing.T) {
	setupCLI(t, nil)

	_, err := runCLI(t, "", "config", "set", "store.name")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		key  string
		raw  string
		want any
	}{
		{"sync.periodic", "false", false},
		{"sync.periodic", "true", true},
		{"sync.periodic", "60000", int64(60000)},
		{"sync.rate_per_second", "0.5", 0.5},
		{"sync.exchange_url", "http://x", "http://x"},
		{"sync.token", "12345", "12345"},
		{"store.name", "2024", "2024"},
		{"store.types", "a,b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseConfigValue(tt.key, tt.raw))
		})
	}
}
