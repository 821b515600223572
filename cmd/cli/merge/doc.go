// Package merge provides the cobra command that runs a merge session: it
// layers configuration, manifest and command line overrides into a session,
// wires the shell executor, checkout manager and remote registry into the
// orchestrator, and either prints the planned actions or drains them.
package merge
