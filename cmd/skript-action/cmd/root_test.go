package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/skript-action/internal/service/pipeline"
	"github.com/oshokin/skript-action/internal/service/server"
)

type inputs map[string]string

func (i inputs) Input(name string) (string, bool) {
	v, ok := i[name]

	return v, ok
}

// TestLoadConfig_Precedence applies flags over inputs over the settings file.
func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "skript-action.yaml")

	t.Cleanup(func() {
		configPath = ""
	})

	t.Setenv("GITHUB_TOKEN", "env-token")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"scripts: from-file/*.sk\njava: /usr/bin/java\npaper_project: folia\nrun_timeout: 1m\n"), 0o600))

	require.NoError(t, rootCmd.Flags().Set("java", "/opt/jdk/bin/java"))

	cfg, err := loadConfig(rootCmd, inputs{
		"scripts": "from-input/**/*.sk",
		"java":    "/input/java",
	})
	require.NoError(t, err)

	require.Equal(t, "from-input/**/*.sk", cfg.Scripts)
	require.Equal(t, "/opt/jdk/bin/java", cfg.Java)
	require.Equal(t, "folia", cfg.PaperProject)
	require.Equal(t, time.Minute, cfg.RunTimeout)
	require.Equal(t, "env-token", cfg.GitHubToken)
}

// TestLoadConfig_ExplicitFileMissing refuses to fall back to defaults for a named settings file.
func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, rootCmd.Flags().Set("config", missing))

	cfg, err := loadConfig(rootCmd, inputs{})
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Nil(t, cfg)
}

// TestRun_ExitStatus maps a passing run to 0 and every failure to 1.
func TestRun_ExitStatus(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "skript-action.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("scripts: tests/**/*.sk\n"), 0o600))

	t.Cleanup(func() {
		runPipeline = pipeline.Run
	})

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "passed", want: 0},
		{name: "scripts failed", err: pipeline.ErrScriptsFailed, want: 1},
		{name: "server exited", err: server.ErrServerExited, want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool

			runPipeline = func(_ context.Context, opts *pipeline.Options) (*pipeline.Result, error) {
				called = true

				require.Equal(t, "tests/**/*.sk", opts.Config.Scripts)

				return &pipeline.Result{}, tc.err
			}

			require.Equal(t, tc.want, run([]string{"--config", settings}))
			require.True(t, called)
		})
	}

	runPipeline = func(context.Context, *pipeline.Options) (*pipeline.Result, error) {
		t.Fatal("pipeline must not run without settings")

		return nil, nil
	}

	require.Equal(t, 1, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
	require.Equal(t, 0, run([]string{"version"}))
}
