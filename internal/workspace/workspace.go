package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/oshokin/skript-action/internal/logger"
)

// DirMode is applied to every directory of the tree.
const DirMode os.FileMode = 0o755

var errBadPattern = errors.New("invalid scripts pattern")

// Workspace manipulates the directory tree described by Paths.
type Workspace struct {
	fs    afero.Fs
	paths Paths
}

// Assembly lists what Assemble placed into the runner directory.
type Assembly struct {
	// ServerJar is the runtime jar inside the runner directory.
	ServerJar string
	// PluginJar is the plugin jar inside the plugins directory.
	PluginJar string
	// Scripts are the distinct script files inside the scripts directory.
	Scripts []string
	// Overwritten counts copies that replaced a script copied earlier in the same run.
	Overwritten int
}

// New creates a workspace over fs.
func New(fs afero.Fs, paths Paths) *Workspace {
	return &Workspace{
		fs:    fs,
		paths: paths,
	}
}

// Paths returns the locations the workspace manages.
func (w *Workspace) Paths() Paths {
	return w.paths
}

// Setup removes the plugin directory and the jars assembled by a previous run
// and creates every directory of the tree. The cache is kept.
func (w *Workspace) Setup(ctx context.Context) error {
	exists, err := afero.DirExists(w.fs, w.paths.PluginData)
	if err != nil {
		return fmt.Errorf("stat plugin directory: %w", err)
	}

	if exists {
		if err = w.fs.RemoveAll(w.paths.PluginData); err != nil {
			return fmt.Errorf("purge plugin directory: %w", err)
		}

		logger.InfoKV(ctx, "Existing scripts and plugin configuration purged", "path", w.paths.PluginData)
	}

	if err = w.purgeJars(ctx); err != nil {
		return err
	}

	for _, dir := range w.paths.Dirs() {
		if err = w.fs.MkdirAll(dir, DirMode); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	logger.InfoKV(ctx, "Environment created", "base", w.paths.Base)

	return nil
}

// purgeJars removes runtime and plugin jars of older releases from the runner.
func (w *Workspace) purgeJars(ctx context.Context) error {
	for _, dir := range []string{w.paths.Runner, w.paths.Plugins} {
		jars, err := afero.Glob(w.fs, filepath.Join(dir, "*.jar"))
		if err != nil {
			return fmt.Errorf("list jars in %s: %w", dir, err)
		}

		for _, jar := range jars {
			if err = w.fs.Remove(jar); err != nil {
				return fmt.Errorf("remove %s: %w", jar, err)
			}

			logger.DebugKV(ctx, "Jar of a previous run removed", "path", jar)
		}
	}

	return nil
}

// ResolveScripts returns the files matching pattern, sorted. A relative
// pattern is matched against root and may climb out of it with "..", an
// absolute one is matched as is. "**" matches any number of directories.
// Entries whose name starts with a dot are skipped unless the pattern names
// dot entries itself.
func ResolveScripts(fs afero.Fs, root, pattern string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%q: %w", pattern, errBadPattern)
	}

	if !path.IsAbs(pattern) && !filepath.IsAbs(filepath.FromSlash(pattern)) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve scripts root: %w", err)
		}

		pattern = path.Join(filepath.ToSlash(absRoot), pattern)
	}

	// The static prefix becomes the glob root, io/fs patterns are unrooted.
	base, rest := doublestar.SplitPattern(path.Clean(pattern))
	base = filepath.FromSlash(base)

	fsys := afero.NewIOFS(afero.NewBasePathFs(fs, base))

	matches, err := doublestar.Glob(fsys, rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", pattern, err)
	}

	withDots := hasDotSegment(rest)
	scripts := make([]string, 0, len(matches))

	for _, match := range matches {
		if !withDots && hasDotSegment(match) {
			continue
		}

		scripts = append(scripts, filepath.Join(base, filepath.FromSlash(match)))
	}

	slices.Sort(scripts)

	return scripts, nil
}

// Assemble copies the runtime jar into the runner directory, the plugin jar
// into plugins/ and every script into the scripts directory by base name.
// Scripts sharing a base name overwrite each other; the last one wins.
func (w *Workspace) Assemble(ctx context.Context, serverJar, pluginJar string, scripts []string) (*Assembly, error) {
	assembly := &Assembly{
		ServerJar: filepath.Join(w.paths.Runner, filepath.Base(serverJar)),
		PluginJar: filepath.Join(w.paths.Plugins, filepath.Base(pluginJar)),
	}

	if err := w.copyFile(serverJar, assembly.ServerJar); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Server runtime moved into runner", "path", assembly.ServerJar)

	if err := w.copyFile(pluginJar, assembly.PluginJar); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Plugin moved into runner's plugins", "path", assembly.PluginJar)

	copiedFrom := make(map[string]string, len(scripts))

	for _, script := range scripts {
		name := filepath.Base(script)
		dst := filepath.Join(w.paths.Scripts, name)

		if err := w.copyFile(script, dst); err != nil {
			return nil, err
		}

		if previous, seen := copiedFrom[name]; seen {
			assembly.Overwritten++

			logger.WarnKV(ctx, "Script overwritten by a file with the same name",
				"name", name, "previous", previous, "current", script)
		} else {
			assembly.Scripts = append(assembly.Scripts, dst)
		}

		copiedFrom[name] = script
	}

	logger.InfoKV(ctx, "Scripts moved into runner's plugin folder",
		"copied", len(scripts), "distinct", len(assembly.Scripts))

	return assembly, nil
}

func (w *Workspace) copyFile(src, dst string) error {
	in, err := w.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := w.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}

// hasDotSegment reports whether any slash-separated segment starts with a dot.
func hasDotSegment(p string) bool {
	for segment := range strings.SplitSeq(p, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}

	return false
}
