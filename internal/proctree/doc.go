// Package proctree maintains the in-memory tree of traced processes.
//
// Nodes are arena-allocated inside Tree and addressed by stable NodeID
// slots. A separate pid -> current-slot mapping is overwritten (never
// merged) when a pid is reused, so a recycled pid always gets a fresh
// node under a strictly larger generation number.
//
// Node lifecycle: Placeholder -> Active -> Exited.
//
//   - Placeholder nodes satisfy child-before-parent event orderings and
//     are backfilled in place when their own creation is observed.
//   - Exited is terminal and records the exit code. Exited nodes are
//     never removed; the tree only grows until torn down.
//
// Children are kept in strict arrival order, which is exactly the
// order the renderer traverses them in.
//
// Builder consumes observer events one at a time and is the only
// mutator of a Tree; cross-goroutine access is by handing events over
// a channel, never by sharing the tree.
package proctree
