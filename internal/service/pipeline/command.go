package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/oshokin/skript-action/internal/action"
	"github.com/oshokin/skript-action/internal/config"
	"github.com/oshokin/skript-action/internal/domain/console"
	"github.com/oshokin/skript-action/internal/domain/release"
	"github.com/oshokin/skript-action/internal/logger"
	"github.com/oshokin/skript-action/internal/remote"
	"github.com/oshokin/skript-action/internal/remote/github"
	"github.com/oshokin/skript-action/internal/remote/papermc"
	"github.com/oshokin/skript-action/internal/repository/cache"
	"github.com/oshokin/skript-action/internal/service/server"
	"github.com/oshokin/skript-action/internal/workspace"
)

// ErrScriptsFailed is returned when the plugin finished loading without
// reporting that every script loaded without errors.
var ErrScriptsFailed = errors.New("parse errors have occurred")

// ErrNoScripts is returned when the pattern matches no script, so there is nothing to test.
var ErrNoScripts = errors.New("no scripts matched")

var errConfigRequired = errors.New("configuration is not set")

// Options are inputs accepted by the pipeline entry point.
type Options struct {
	// Config holds validated settings.
	Config *config.Config
	// Workflow receives log groups, annotations and step outputs. Optional.
	Workflow *action.Workflow
	// HTTPClient overrides http.DefaultClient for every request. Optional.
	HTTPClient *http.Client
	// Command overrides how the server process is created. Optional.
	Command server.CommandFunc
}

// Result collects what every stage produced.
type Result struct {
	// Scripts are the matched script files.
	Scripts []string
	// Plugin is the resolved plugin release.
	Plugin *release.Info
	// Runtime is the resolved server build.
	Runtime *release.Build
	// PluginJar is the cached plugin jar.
	PluginJar string
	// RuntimeJar is the cached runtime jar.
	RuntimeJar string
	// Assembly describes the runner directory.
	Assembly *workspace.Assembly
	// Server is the console outcome.
	Server *server.Result
}

// pipeline holds the collaborators and the accumulated result of one run.
type pipeline struct {
	cfg       *config.Config
	workflow  *action.Workflow
	workspace *workspace.Workspace
	fs        afero.Fs
	cache     cache.Repository
	plugins   *github.Client
	runtimes  *papermc.Client
	command   server.CommandFunc
	result    *Result
}

// Run executes every stage and returns the accumulated result. The error is
// nil only when the scripts loaded without errors.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "skript-action")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	p, err := newPipeline(opts)
	if err != nil {
		return nil, err
	}

	err = p.run(ctx)
	p.publishOutputs(ctx, err)

	if err != nil {
		logger.ErrorKV(ctx, "Run failed", "error", err)
		p.workflow.Error(err.Error())

		return p.result, err
	}

	logger.Info(ctx, "All good, scripts loaded without errors")
	p.workflow.Notice(fmt.Sprintf("%d scripts loaded without errors", len(p.result.Assembly.Scripts)))

	return p.result, nil
}

func newPipeline(opts *Options) (*pipeline, error) {
	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	cfg := opts.Config

	workflow := opts.Workflow
	if workflow == nil {
		workflow = action.New(io.Discard, noEnvironment)
	}

	remoteOptions := []remote.Option{
		remote.WithHTTPClient(opts.HTTPClient),
		remote.WithCallTimeout(cfg.HTTPTimeout),
	}

	plugins, err := github.New(cfg.GitHubAPI, cfg.PluginRepository, cfg.GitHubToken, remoteOptions...)
	if err != nil {
		return nil, fmt.Errorf("plugin index: %w", err)
	}

	runtimes, err := papermc.New(cfg.PaperAPI, cfg.PaperProject, remoteOptions...)
	if err != nil {
		return nil, fmt.Errorf("runtime index: %w", err)
	}

	fs := afero.NewOsFs()
	paths := workspace.NewPaths(cfg.BaseDir)

	return &pipeline{
		cfg:       cfg,
		workflow:  workflow,
		workspace: workspace.New(fs, paths),
		fs:        fs,
		cache:     cache.NewDirRepository(paths.Cache),
		plugins:   plugins,
		runtimes:  runtimes,
		command:   opts.Command,
		result:    new(Result),
	}, nil
}

func (p *pipeline) run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"Setup environment", p.setupEnvironment},
		{"Fetch latest plugin release", p.fetchPlugin},
		{"Download plugin", p.downloadPlugin},
		{"Fetch latest server runtime", p.fetchRuntime},
		{"Download server runtime", p.downloadRuntime},
		{"Setup runner", p.setupRunner},
		{"Run server", p.runServer},
	}

	for _, stage := range stages {
		if err := p.step(ctx, stage.name, stage.fn); err != nil {
			return err
		}
	}

	return nil
}

// step runs fn inside a log group and tags its error with the stage name.
func (p *pipeline) step(ctx context.Context, name string, fn func(context.Context) error) error {
	p.workflow.Group(name)
	defer p.workflow.EndGroup()

	stepCtx := logger.WithKV(ctx, "step", name)
	logger.Info(stepCtx, "Step started")

	if err := fn(stepCtx); err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(name), err)
	}

	logger.Info(stepCtx, "Step completed")

	return nil
}

func (p *pipeline) setupEnvironment(ctx context.Context) error {
	scripts, err := workspace.ResolveScripts(p.fs, p.cfg.ScriptsDir, p.cfg.Scripts)
	if err != nil {
		return err
	}

	p.result.Scripts = scripts

	if len(scripts) == 0 {
		return fmt.Errorf("pattern %q in %s: %w", p.cfg.Scripts, p.cfg.ScriptsDir, ErrNoScripts)
	}

	logger.InfoKV(ctx, "Scripts found", "count", len(scripts), "scripts", strings.Join(scripts, ", "))

	return p.workspace.Setup(ctx)
}

func (p *pipeline) fetchPlugin(ctx context.Context) error {
	info, err := p.plugins.LatestRelease(ctx)
	if err != nil {
		return err
	}

	p.result.Plugin = info
	logger.InfoKV(ctx, "Fetched release", "tag", info.Tag, "url", info.HTMLURL)

	return nil
}

func (p *pipeline) downloadPlugin(ctx context.Context) error {
	info := p.result.Plugin

	path, err := p.download(ctx, info.JarName(), info.SHA256, func(ctx context.Context) (io.ReadCloser, error) {
		return p.plugins.Download(ctx, info)
	})
	if err != nil {
		return err
	}

	p.result.PluginJar = path

	return nil
}

func (p *pipeline) fetchRuntime(ctx context.Context) error {
	build, err := p.runtimes.Latest(ctx)
	if err != nil {
		return err
	}

	p.result.Runtime = build
	logger.InfoKV(ctx, "Fetched build", "version", build.Version, "build", "#"+strconv.Itoa(build.Number))

	return nil
}

func (p *pipeline) downloadRuntime(ctx context.Context) error {
	build := p.result.Runtime

	path, err := p.download(ctx, build.JarName(), nil, func(ctx context.Context) (io.ReadCloser, error) {
		return p.runtimes.Download(ctx, build)
	})
	if err != nil {
		return err
	}

	p.result.RuntimeJar = path

	return nil
}

// download stores an artifact in the cache unless a file with its name is already there.
func (p *pipeline) download(
	ctx context.Context,
	name string,
	sha256 []byte,
	open func(context.Context) (io.ReadCloser, error),
) (string, error) {
	path := p.cache.Path(name)

	cached, err := p.cache.Exists(ctx, name)
	if err != nil {
		return "", err
	}

	if cached {
		logger.InfoKV(ctx, "Download skipped, already downloaded", "artifact", name)

		return path, nil
	}

	body, err := open(ctx)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = body.Close()
	}()

	if err = p.cache.Store(ctx, name, body, sha256); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Downloaded", "artifact", name, "path", path, "verified", sha256 != nil)

	return path, nil
}

func (p *pipeline) setupRunner(ctx context.Context) error {
	assembly, err := p.workspace.Assemble(ctx, p.result.RuntimeJar, p.result.PluginJar, p.result.Scripts)
	if err != nil {
		return err
	}

	p.result.Assembly = assembly

	return nil
}

func (p *pipeline) runServer(ctx context.Context) error {
	result, err := server.Run(ctx, &server.Options{
		Java:    p.cfg.Java,
		Dir:     p.workspace.Paths().Runner,
		Jar:     filepath.Base(p.result.Assembly.ServerJar),
		Timeout: p.cfg.RunTimeout,
		Command: p.command,
	})

	p.result.Server = result

	if err != nil {
		p.logTail(ctx, result)

		return err
	}

	logger.InfoKV(ctx, "Server finished loading",
		"verdict", result.Verdict.String(), "lines", result.Lines, "duration", result.Duration)

	if result.Verdict != console.VerdictPassed {
		p.logTail(ctx, result)

		return ErrScriptsFailed
	}

	return nil
}

func (p *pipeline) logTail(ctx context.Context, result *server.Result) {
	if result == nil || len(result.Tail) == 0 {
		return
	}

	logger.ErrorKV(ctx, "Last server console lines", "console", "\n"+strings.Join(result.Tail, "\n"))
}

// publishOutputs exposes the run outcome as step outputs.
func (p *pipeline) publishOutputs(ctx context.Context, runErr error) {
	outputs := [][2]string{{"result", "passed"}}
	if runErr != nil {
		outputs[0][1] = "failed"
	}

	if p.result.Plugin != nil {
		outputs = append(outputs, [2]string{"plugin-version", p.result.Plugin.Tag})
	}

	if p.result.Runtime != nil {
		outputs = append(outputs,
			[2]string{"server-version", p.result.Runtime.Version},
			[2]string{"server-build", strconv.Itoa(p.result.Runtime.Number)})
	}

	for _, output := range outputs {
		if err := p.workflow.SetOutput(output[0], output[1]); err != nil {
			logger.WarnKV(ctx, "Could not set step output", "name", output[0], "error", err)
		}
	}
}

func noEnvironment(string) (string, bool) {
	return "", false
}
