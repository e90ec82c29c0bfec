// Package release contains the artifact metadata resolved from the remote
// indexes: the plugin release and the server runtime build.
package release
