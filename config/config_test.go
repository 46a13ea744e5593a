package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		description string
		yaml        string
		expect      *Config
		expectErr   bool
	}{
		{
			description: "empty document keeps defaults",
			yaml:        ``,
			expect:      DefaultConfig(),
		},
		{
			description: "overrides",
			yaml: `historyCapacity: 64
checkInvariants: true
logLevel: debug`,
			expect: &Config{HistoryCapacity: 64, CheckInvariants: true, LogLevel: "debug"},
		},
		{
			description: "negative capacity",
			yaml:        `historyCapacity: -1`,
			expectErr:   true,
		},
		{
			description: "unknown level",
			yaml:        `logLevel: chatty`,
			expectErr:   true,
		},
		{
			description: "malformed yaml",
			yaml:        `historyCapacity: [`,
			expectErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			cfg, err := Decode([]byte(tc.yaml))
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, tc.expect, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	location := filepath.Join(t.TempDir(), "trace.yaml")
	require.NoError(t, os.WriteFile(location, []byte("historyCapacity: 8\nlogLevel: warn\n"), 0644))

	cfg, err := Load(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.HistoryCapacity)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
