// Package remotes reconciles the remotes of a destination checkout with the
// repositories taking part in a merge session.
//
// Registry inspects the checkout through go-git and queues either a
// single-branch "git remote add" or an in-place URL update for each
// repository, followed by one "git fetch --all".
package remotes
