package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/skript-action/internal/logger"
)

// Config holds every setting of a single action run.
type Config struct {
	// BaseDir is the root under which the cache and runner directories live.
	BaseDir string `yaml:"base_dir"`
	// Scripts is the glob pattern selecting the script files to test.
	Scripts string `yaml:"scripts"`
	// ScriptsDir is the directory the Scripts pattern is matched against.
	ScriptsDir string `yaml:"scripts_dir"`
	// Java is the binary used to launch the server runtime.
	Java string `yaml:"java"`
	// GitHubAPI is the base URL of the GitHub REST API.
	GitHubAPI string `yaml:"github_api"`
	// PluginRepository is the owner/name of the repository publishing the plugin.
	PluginRepository string `yaml:"plugin_repository"`
	// PaperAPI is the base URL of the PaperMC v2 API.
	PaperAPI string `yaml:"paper_api"`
	// PaperProject is the PaperMC project to download.
	PaperProject string `yaml:"paper_project"`
	// HTTPTimeout bounds every request to the release indexes, downloads included.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// RunTimeout bounds the runtime process. Zero waits forever.
	RunTimeout time.Duration `yaml:"run_timeout"`
	// LogLevel is the minimum level of action logs.
	LogLevel string `yaml:"log_level"`
	// GitHubToken authenticates release lookups. It is never written to YAML.
	GitHubToken string `yaml:"-"`
}

const (
	// DefaultConfigFilename is the settings file looked up in the working directory.
	DefaultConfigFilename = "skript-action.yaml"

	// DefaultScripts matches every script at least one directory deep.
	DefaultScripts = "*/**/*.sk"

	// DefaultJava is the runtime launcher looked up in PATH.
	DefaultJava = "java"

	// DefaultGitHubAPI is the public GitHub REST endpoint.
	DefaultGitHubAPI = "https://api.github.com"

	// DefaultPluginRepository publishes the Skript plugin.
	DefaultPluginRepository = "SkriptLang/Skript"

	// DefaultPaperAPI is the PaperMC downloads API.
	DefaultPaperAPI = "https://api.papermc.io/v2"

	// DefaultPaperProject is the server software tested against.
	DefaultPaperProject = "paper"

	// DefaultHTTPTimeout leaves room for downloading server jars on slow runners.
	DefaultHTTPTimeout = 5 * time.Minute

	// baseDirName is the directory created under the temp root.
	baseDirName = "skript-action"
)

var (
	errBadRepository   = errors.New("plugin repository must look like owner/name")
	errNegativeTimeout = errors.New("timeout must not be negative")
	errBadLogLevel     = errors.New("unknown log level")
	errEmptyPattern    = errors.New("scripts pattern is empty")
)

// InputSource resolves named CI inputs.
type InputSource interface {
	Input(name string) (string, bool)
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		BaseDir:          DefaultBaseDir(),
		Scripts:          DefaultScripts,
		ScriptsDir:       ".",
		Java:             DefaultJava,
		GitHubAPI:        DefaultGitHubAPI,
		PluginRepository: DefaultPluginRepository,
		PaperAPI:         DefaultPaperAPI,
		PaperProject:     DefaultPaperProject,
		HTTPTimeout:      DefaultHTTPTimeout,
		LogLevel:         "info",
	}
}

// DefaultBaseDir prefers the CI runner's temp directory so that matched
// scripts never include files assembled by a previous run.
func DefaultBaseDir() string {
	if runnerTemp := os.Getenv("RUNNER_TEMP"); runnerTemp != "" {
		return filepath.Join(runnerTemp, baseDirName)
	}

	return filepath.Join(os.TempDir(), baseDirName)
}

// Load reads settings from path over the defaults and validates them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOptional behaves like Load but returns validated defaults when the file does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = Default()
	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyInputs overlays CI action inputs onto cfg. Empty inputs are ignored.
func ApplyInputs(cfg *Config, src InputSource) error {
	strInputs := map[string]*string{
		"scripts":           &cfg.Scripts,
		"scripts-dir":       &cfg.ScriptsDir,
		"base-dir":          &cfg.BaseDir,
		"java":              &cfg.Java,
		"plugin-repository": &cfg.PluginRepository,
		"paper-project":     &cfg.PaperProject,
		"log-level":         &cfg.LogLevel,
		"github-token":      &cfg.GitHubToken,
	}

	for name, field := range strInputs {
		if value, ok := src.Input(name); ok && value != "" {
			*field = value
		}
	}

	if value, ok := src.Input("timeout"); ok && value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("input timeout: %w", err)
		}

		cfg.RunTimeout = timeout
	}

	return Validate(cfg)
}

// Validate fills unset fields with defaults and checks the rest.
func Validate(cfg *Config) error {
	fillDefaults(cfg)

	if strings.TrimSpace(cfg.Scripts) == "" {
		return errEmptyPattern
	}

	owner, name, found := strings.Cut(cfg.PluginRepository, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", cfg.PluginRepository, errBadRepository)
	}

	for _, endpoint := range []string{cfg.GitHubAPI, cfg.PaperAPI} {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid endpoint: %w", err)
		}
	}

	if cfg.HTTPTimeout < 0 || cfg.RunTimeout < 0 {
		return errNegativeTimeout
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errBadLogLevel)
	}

	return nil
}

func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.BaseDir == "" {
		cfg.BaseDir = defaults.BaseDir
	}

	if cfg.Scripts == "" {
		cfg.Scripts = defaults.Scripts
	}

	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = defaults.ScriptsDir
	}

	if cfg.Java == "" {
		cfg.Java = defaults.Java
	}

	if cfg.GitHubAPI == "" {
		cfg.GitHubAPI = defaults.GitHubAPI
	}

	if cfg.PluginRepository == "" {
		cfg.PluginRepository = defaults.PluginRepository
	}

	if cfg.PaperAPI == "" {
		cfg.PaperAPI = defaults.PaperAPI
	}

	if cfg.PaperProject == "" {
		cfg.PaperProject = defaults.PaperProject
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = defaults.HTTPTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
}
