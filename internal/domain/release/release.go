package release

import (
	"fmt"
	"strconv"
	"strings"
)

// PluginName names the plugin jar and its data directory inside plugins/.
const PluginName = "Skript"

// Info describes the latest published plugin release.
type Info struct {
	// Tag is the release tag, part of the jar name.
	Tag string
	// DownloadURL points at the jar asset.
	DownloadURL string
	// HTMLURL is the human-readable release page.
	HTMLURL string
	// SHA256 is the asset digest when the index publishes one.
	SHA256 []byte
}

// tagReplacer keeps a tag from turning the jar name into a path.
var tagReplacer = strings.NewReplacer("/", "-", "\\", "-")

// JarName is the cache file name of the plugin jar.
// Path separators in the tag are replaced with dashes.
func (i *Info) JarName() string {
	return PluginName + "-" + tagReplacer.Replace(i.Tag) + ".jar"
}

// Build identifies one downloadable build of the server runtime.
type Build struct {
	// Project is the runtime project, e.g. "paper".
	Project string
	// Version is the game version the build targets.
	Version string
	// Number is the build number within Version.
	Number int
	// DownloadURL points at the runtime jar.
	DownloadURL string
}

// JarName is the cache file name of the runtime jar.
func (b *Build) JarName() string {
	return fmt.Sprintf("%s-%s-%d.jar", b.Project, b.Version, b.Number)
}

// String renders the build like the index does, e.g. "1.20.4 #150".
func (b *Build) String() string {
	return b.Version + " #" + strconv.Itoa(b.Number)
}
