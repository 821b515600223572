// Package cli builds the forkmerge command-line interface: the cobra root
// command, layered configuration loading with embedded defaults, logger
// construction and registration of the merge command.
package cli
