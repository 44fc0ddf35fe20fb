package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingohall/internal/config"
)

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := newCmd(cfg)

	require.NoError(t, cmd.ParseFlags([]string{
		"--port", "9090",
		"--bind", "127.0.0.1",
		"--database", "/tmp/override.db",
		"--join-url", "https://bingo.example.com",
		"--verbose",
	}))

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "https://bingo.example.com", cfg.JoinURL)
	assert.True(t, cfg.Verbose)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("BINGOHALL_PORT", "7777")
	t.Setenv("BINGOHALL_JOIN_URL", "https://env.example.com")

	cfg := config.DefaultConfig()
	newCmd(cfg)

	assert.Equal(t, 7777, cfg.HTTP.Port)
	assert.Equal(t, "https://env.example.com", cfg.JoinURL)
}

func TestExplicitFlagBeatsEnv(t *testing.T) {
	t.Setenv("BINGOHALL_PORT", "7777")

	cfg := config.DefaultConfig()
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9090"}))

	assert.Equal(t, 9090, cfg.HTTP.Port)
}
