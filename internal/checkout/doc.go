// Package checkout materializes repositories on disk for a merge session.
//
// Manager clones a repository into its destination unless a checkout is
// already present and the repository is not marked for clobbering, and
// recovers a destination left mid-merge by a previous failed run.
package checkout
