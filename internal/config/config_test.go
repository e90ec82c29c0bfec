package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mapInputs is an InputSource backed by a map.
type mapInputs map[string]string

func (m mapInputs) Input(name string) (string, bool) {
	v, ok := m[name]

	return v, ok
}

// TestValidate checks defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty config gets every default.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultScripts, cfg.Scripts)
	require.Equal(t, DefaultJava, cfg.Java)
	require.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	require.Zero(t, cfg.RunTimeout)

	// Bad repository.
	cfg = &Config{PluginRepository: "SkriptLang"}
	require.ErrorIs(t, Validate(cfg), errBadRepository)

	// Bad endpoint.
	cfg = &Config{PaperAPI: "not a url"}
	require.Error(t, Validate(cfg))

	// Negative timeout.
	cfg = &Config{RunTimeout: -time.Second}
	require.ErrorIs(t, Validate(cfg), errNegativeTimeout)

	// Unknown level.
	cfg = &Config{LogLevel: "loud"}
	require.ErrorIs(t, Validate(cfg), errBadLogLevel)
}

// TestLoad reads YAML over the defaults.
func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := []byte("scripts: \"tests/**/*.sk\"\njava: /opt/jdk/bin/java\nrun_timeout: 2m\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tests/**/*.sk", cfg.Scripts)
	require.Equal(t, "/opt/jdk/bin/java", cfg.Java)
	require.Equal(t, 2*time.Minute, cfg.RunTimeout)
	require.Equal(t, DefaultPluginRepository, cfg.PluginRepository)
}

// TestLoadOptional falls back to defaults for a missing file only.
func TestLoadOptional(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadOptional(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultPaperAPI, cfg.PaperAPI)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("scripts: [unterminated"), 0o600))

	_, err = LoadOptional(broken)
	require.Error(t, err)
}

// TestApplyInputs overlays non-empty inputs and parses the timeout.
func TestApplyInputs(t *testing.T) {
	t.Parallel()

	cfg := Default()
	inputs := mapInputs{
		"scripts":      "src/*.sk",
		"java":         "",
		"timeout":      "90s",
		"github-token": "secret",
	}

	require.NoError(t, ApplyInputs(cfg, inputs))
	require.Equal(t, "src/*.sk", cfg.Scripts)
	require.Equal(t, DefaultJava, cfg.Java)
	require.Equal(t, 90*time.Second, cfg.RunTimeout)
	require.Equal(t, "secret", cfg.GitHubToken)

	require.Error(t, ApplyInputs(Default(), mapInputs{"timeout": "soon"}))
}
