package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, "qwen-32k:latest", cfg.Ollama.Model)
	assert.Equal(t, 300, cfg.Ollama.TimeoutSeconds)
	assert.Equal(t, 900, cfg.Limits.MaxOutputLines)
	assert.Equal(t, 1000, cfg.Limits.MaxContextLines)
	assert.Equal(t, 2, cfg.Limits.MaxContextFiles)
	assert.True(t, cfg.Behavior.StreamOutput)
	assert.True(t, cfg.Behavior.CreateOutputDirs)
	assert.True(t, cfg.Behavior.RecordEvents)
	assert.False(t, cfg.Build.VerifyBuild)
	assert.Equal(t, 30, cfg.Cleanup.Days)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	src := `
[ollama]
url = "http://custom:8080"
model = "codellama"
timeout_seconds = 120

[limits]
max_output_lines = 500

[behavior]
stream_output = false

[build]
build_command = "cargo build"
verify_build = true

[cleanup]
enabled = true
days = 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(src), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://custom:8080", cfg.Ollama.URL)
	assert.Equal(t, "codellama", cfg.Ollama.Model)
	assert.Equal(t, 120, cfg.Ollama.TimeoutSeconds)
	assert.Equal(t, 500, cfg.Limits.MaxOutputLines)
	assert.Equal(t, 1000, cfg.Limits.MaxContextLines) // default kept
	assert.False(t, cfg.Behavior.StreamOutput)
	assert.True(t, cfg.Behavior.CreateOutputDirs) // omitted bool keeps default
	assert.Equal(t, "cargo build", cfg.Build.BuildCommand)
	assert.True(t, cfg.Build.VerifyBuild)
	assert.True(t, cfg.Cleanup.Enabled)
	assert.Equal(t, 7, cfg.Cleanup.Days)
}

func TestLoadBadToml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[ollama\nbroken"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestWithOverrides(t *testing.T) {
	cfg := Default().WithOverrides(Overrides{
		Model:    "llama3",
		URL:      "http://remote:11434",
		Timeout:  600,
		NoStream: true,
	})

	assert.Equal(t, "llama3", cfg.Ollama.Model)
	assert.Equal(t, "http://remote:11434", cfg.Ollama.URL)
	assert.Equal(t, 600, cfg.Ollama.TimeoutSeconds)
	assert.False(t, cfg.Behavior.StreamOutput)
}

func TestWithOverridesEmpty(t *testing.T) {
	cfg := Default().WithOverrides(Overrides{})
	assert.Equal(t, Default().Ollama, cfg.Ollama)
	assert.True(t, cfg.Behavior.StreamOutput)
}
