// Package workspace lays out the disposable directory tree of a run.
//
// Under a base directory it keeps a cache of downloaded jars (temp/) and the
// runner directory the server is launched from (runner/). Setup recreates the
// tree, ResolveScripts finds the user's scripts and Assemble copies jars and
// scripts into the runner. All file access goes through an afero.Fs.
package workspace
