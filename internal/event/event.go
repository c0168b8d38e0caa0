// Package event defines the process lifecycle events produced by the
// observer and consumed by the tree builder.
package event

// Type discriminates lifecycle events.
type Type int

const (
	// Created reports that ParentPID spawned PID.
	Created Type = iota + 1
	// CommandChanged reports that PID replaced its command via exec;
	// the command line should be re-read.
	CommandChanged
	// Exited reports that PID terminated with ExitCode.
	Exited
)

// Event is a single lifecycle observation. Events about one pid are
// delivered in causal order: its Created precedes anything else about
// it or its children. Events from sibling subtrees may interleave.
type Event struct {
	Type      Type
	PID       int
	ParentPID int // set for Created
	ExitCode  int // set for Exited
}
