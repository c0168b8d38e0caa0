// Package observer attaches to a root process with ptrace and emits
// lifecycle events (creation, exec, exit) for it and every descendant
// it transitively creates.
//
// The kernel requires every ptrace request about a tracee to come from
// the thread that attached it, so one goroutine pinned to its OS
// thread owns all attach/wait/continue/detach interaction. Events are
// handed to the consumer over a channel; nothing else is shared.
//
// Causal ordering: a pid's Created event is emitted before any other
// event about that pid. Exec and exit reports that race ahead of the
// parent's fork notification are buffered and flushed right after the
// Created, so exit information is never dropped.
//
// Shutdown releases every still-active tracee before the loop returns,
// on every exit path, so traced processes continue running unimpeded.
package observer
