// Package utils holds the ambient plumbing shared by forkmerge commands:
// layered Viper configuration loading, zap logger construction and the
// command context values that carry configuration provenance.
package utils
