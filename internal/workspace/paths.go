package workspace

import (
	"path/filepath"

	"github.com/oshokin/skript-action/internal/domain/release"
)

// Paths are the fixed locations of a run, all derived from the base directory.
type Paths struct {
	// Base is the root of everything below.
	Base string
	// Cache keeps downloaded jars between runs.
	Cache string
	// Runner is the server working directory.
	Runner string
	// Plugins is the server plugins directory.
	Plugins string
	// PluginData is the plugin's own directory, purged on every run.
	PluginData string
	// Scripts is where the plugin loads scripts from.
	Scripts string
}

// NewPaths derives every location from base.
func NewPaths(base string) Paths {
	base = filepath.Clean(base)
	runner := filepath.Join(base, "runner")
	plugins := filepath.Join(runner, "plugins")
	pluginData := filepath.Join(plugins, release.PluginName)

	return Paths{
		Base:       base,
		Cache:      filepath.Join(base, "temp"),
		Runner:     runner,
		Plugins:    plugins,
		PluginData: pluginData,
		Scripts:    filepath.Join(pluginData, "scripts"),
	}
}

// Dirs lists the directories in creation order, parents first.
func (p Paths) Dirs() []string {
	return []string{p.Base, p.Cache, p.Runner, p.Plugins, p.PluginData, p.Scripts}
}
