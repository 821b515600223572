// Package queue holds deferred, labelled actions and drains them in order.
//
// Actions are either external processes run through a ProcessExecutor or
// in-process callbacks. Enqueueing never executes anything; Drain runs the
// actions strictly in insertion order and stops at the first failure,
// reporting it as an ActionError that carries the failing label.
package queue
