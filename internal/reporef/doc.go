// Package reporef models the repositories taking part in a merge session.
//
// A RepoRef pairs a stable name with an origin (remote URL or local path, each
// with a branch) and a clobber policy. RemoteName derives the remote identifier
// used for a repository inside the destination checkout, and Catalog indexes
// repositories by name so configuration overrides can be applied uniformly.
package reporef
