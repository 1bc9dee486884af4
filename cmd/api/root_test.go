package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"recipe-vision/internal/infrastructure/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_FlagsOverrideConfig(t *testing.T) {
	t.Setenv("LLM_MODEL", "from-env")
	dir := filepath.Join(t.TempDir(), "uploads")

	v := viper.New()
	cmd := rootCommand(v)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{
		"--llm-model", "llama3.2",
		"--upload-dir", dir,
		"--threshold", "0.5",
	}))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, dir, cfg.Upload.Dir)
	assert.Equal(t, 0.5, cfg.Detection.Local.ConfidenceThreshold)
}

func TestRootCommand_UnsetFlagsKeepDefaults(t *testing.T) {
	v := viper.New()
	rootCommand(v)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "gemma3:4b", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.Detection.Local.ConfidenceThreshold)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.True(t, cfg.App.Debug)
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := rootCommand(viper.New())

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "detect", "recipes"}, names)

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"detect"})
	assert.Error(t, cmd.Execute())
}
