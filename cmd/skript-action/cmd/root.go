package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oshokin/skript-action/internal/action"
	"github.com/oshokin/skript-action/internal/config"
	"github.com/oshokin/skript-action/internal/logger"
	"github.com/oshokin/skript-action/internal/service/pipeline"
	"github.com/oshokin/skript-action/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// envFile is an optional dotenv file loaded before anything else.
	envFile string

	// flags override every other settings source when set.
	flags config.Config

	// runPipeline runs the action once settings are loaded.
	runPipeline = pipeline.Run

	// rootCmd represents the base command for testing scripts.
	rootCmd = &cobra.Command{
		Use:          "skript-action",
		Short:        "Check that Skript scripts load without errors on the latest Paper server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}

			workflow := action.FromEnvironment()

			cfg, err := loadConfig(cmd, workflow)
			if err != nil {
				return err
			}

			level, _ := logger.ParseLogLevel(cfg.LogLevel)
			logger.SetLevel(level)

			defer logger.Sync()

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err = runPipeline(ctx, &pipeline.Options{
				Config:   cfg,
				Workflow: workflow,
			})

			return err
		},
	}
)

// Execute runs the skript-action CLI and exits with non-zero status on error.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

// run executes the root command with args and returns the process exit status:
// 0 when every script loaded without errors, 1 on any error.
func run(args []string) int {
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

// loadConfig layers the settings file, action inputs, GITHUB_TOKEN and flags, in increasing priority.
// The settings file may be missing unless it was named with --config.
func loadConfig(cmd *cobra.Command, inputs config.InputSource) (*config.Config, error) {
	load := config.LoadOptional
	if cmd.Flags().Changed("config") {
		load = config.Load
	}

	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}

	if err = config.ApplyInputs(cfg, inputs); err != nil {
		return nil, err
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	changed := cmd.Flags().Changed

	overrides := []struct {
		flag  string
		field *string
		value string
	}{
		{"scripts", &cfg.Scripts, flags.Scripts},
		{"scripts-dir", &cfg.ScriptsDir, flags.ScriptsDir},
		{"base-dir", &cfg.BaseDir, flags.BaseDir},
		{"java", &cfg.Java, flags.Java},
		{"log-level", &cfg.LogLevel, flags.LogLevel},
	}

	for _, override := range overrides {
		if changed(override.flag) {
			*override.field = override.value
		}
	}

	if changed("timeout") {
		cfg.RunTimeout = flags.RunTimeout
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded into the environment")
	rootCmd.Flags().StringVarP(&flags.Scripts, "scripts", "s", config.DefaultScripts, "glob pattern selecting the scripts")
	rootCmd.Flags().StringVar(&flags.ScriptsDir, "scripts-dir", ".", "directory the scripts pattern is matched against")
	rootCmd.Flags().StringVar(&flags.BaseDir, "base-dir", "", "directory holding the cache and the runner")
	rootCmd.Flags().StringVar(&flags.Java, "java", config.DefaultJava, "java binary launching the server")
	rootCmd.Flags().DurationVar(&flags.RunTimeout, "timeout", time.Duration(0), "server run timeout, 0 waits forever")
	rootCmd.Flags().StringVar(&flags.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
}
