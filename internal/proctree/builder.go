package proctree

import (
	"forktrace/internal/cmdline"
	"forktrace/internal/event"
)

// Builder consumes lifecycle events and mutates the tree. It is the
// tree's sole owner; one goroutine drives it.
type Builder struct {
	tree *Tree
	res  cmdline.Resolver
}

// NewBuilder creates the tree rooted at rootPID and resolves the
// root's command immediately.
func NewBuilder(rootPID int, res cmdline.Resolver) *Builder {
	b := &Builder{
		tree: New(rootPID),
		res:  res,
	}
	root := b.tree.Node(b.tree.Root())
	root.Command = b.resolve(rootPID)
	return b
}

// Tree exposes the tree for rendering.
func (b *Builder) Tree() *Tree { return b.tree }

// Apply folds one event into the tree.
func (b *Builder) Apply(ev event.Event) {
	switch ev.Type {
	case event.Created:
		b.applyCreated(ev)
	case event.CommandChanged:
		b.applyCommandChanged(ev)
	case event.Exited:
		b.applyExited(ev)
	}
}

func (b *Builder) applyCreated(ev event.Event) {
	t := b.tree

	parent, ok := t.Current(ev.ParentPID)
	if !ok {
		// Child observed before its parent: hold the child under a
		// placeholder until the parent's own creation backfills it.
		parent = t.AddPlaceholder(ev.ParentPID)
	}

	if id, ok := t.Current(ev.PID); ok && t.Node(id).State == StatePlaceholder {
		// Backfill in place: identity, generation and any children
		// already attached are preserved.
		t.Reparent(id, parent)
		n := t.Node(id)
		n.Command = b.resolve(ev.PID)
		n.State = StateActive
		return
	}

	// A creation for a pid we already track means the pid was reused;
	// the new generation simply overwrites the current mapping.
	id := t.AddNode(ev.PID, parent)
	t.Node(id).Command = b.resolve(ev.PID)
}

func (b *Builder) applyCommandChanged(ev event.Event) {
	id, ok := b.tree.Current(ev.PID)
	if !ok {
		return
	}
	n := b.tree.Node(id)
	if n.State == StateExited {
		// A late exec report after death signals nothing new.
		return
	}
	if cmd, ok := b.res.Resolve(ev.PID); ok {
		n.Command = cmd
	} else if n.Command == "" {
		n.Command = cmdline.Unknown
	}
}

func (b *Builder) applyExited(ev event.Event) {
	id, ok := b.tree.Current(ev.PID)
	if !ok {
		// Exit for a pid we never created a node for; absorbed.
		return
	}
	n := b.tree.Node(id)
	if n.State == StateExited {
		// Duplicate exit reports are a no-op.
		return
	}
	n.State = StateExited
	n.ExitCode = ev.ExitCode
}

func (b *Builder) resolve(pid int) string {
	if cmd, ok := b.res.Resolve(pid); ok {
		return cmd
	}
	return cmdline.Unknown
}
