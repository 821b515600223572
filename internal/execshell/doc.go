// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with structured logging and failure
// classification; OSCommandRunner is the os/exec backed runner used outside
// of tests. Callers inject the executor so merge pipelines can be exercised
// with recording fakes instead of real git processes.
package execshell
