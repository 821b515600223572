// Package merge integrates an ordered series of patch branches into a fork.
//
// A Session names the base, the destination and the branches; the
// Orchestrator prepares the destination checkout and queues the fixed
// sequence of git actions (rename limit, remotes, fetch, integration branch
// reset, merges in list order, submodules) before draining it. The first
// failing action stops the run and leaves the checkout as git left it.
package merge
