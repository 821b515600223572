// Package flags binds the command-line value forms shared by forkmerge commands:
// yes/no toggles, name=value assignments and choice usage strings.
package flags
