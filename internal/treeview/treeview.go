// Package treeview renders a process tree as indented text, one line
// per node, ps-f style.
package treeview

import (
	"io"
	"strings"

	"forktrace/internal/cmdline"
	"forktrace/internal/proctree"
)

// Branch drawing segments. Every ancestor below the root contributes
// either a continuation marker (more siblings follow at its level) or
// blank padding; each non-root node ends with the branch glyph.
const (
	continuation = "| "
	padding      = "  "
	branch       = `\_ `
)

// Render returns the tree as text. It is a pure function of the tree's
// current state: rendering an unchanged tree twice is byte-identical.
func Render(t *proctree.Tree) string {
	var b strings.Builder
	write(&b, t)
	return b.String()
}

// Write renders the tree to w.
func Write(w io.Writer, t *proctree.Tree) error {
	sw := &stringWriter{w: w}
	write(sw, t)
	return sw.err
}

// write walks the tree depth-first in stored child order. An explicit
// work stack carries each node's accumulated ancestor prefix and its
// own is-last-sibling flag, so arbitrarily deep trees cannot exhaust
// the call stack.
func write(w io.StringWriter, t *proctree.Tree) {
	type frame struct {
		id     proctree.NodeID
		prefix string
		last   bool
		depth  int
	}

	stack := []frame{{id: t.Root(), last: true}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.Node(f.id)
		if f.depth > 0 {
			w.WriteString(f.prefix)
			w.WriteString(branch)
		}
		w.WriteString(label(n))
		w.WriteString("\n")

		childPrefix := f.prefix
		if f.depth > 0 {
			if f.last {
				childPrefix += padding
			} else {
				childPrefix += continuation
			}
		}
		// Reverse push keeps arrival order on pop.
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				id:     n.Children[i],
				prefix: childPrefix,
				last:   i == len(n.Children)-1,
				depth:  f.depth + 1,
			})
		}
	}
}

// label falls back to the unknown-command token so no line ever comes
// out empty.
func label(n *proctree.Node) string {
	if n.Command == "" {
		return cmdline.Unknown
	}
	return n.Command
}

// stringWriter adapts an io.Writer, remembering the first error and
// swallowing the rest.
type stringWriter struct {
	w   io.Writer
	err error
}

func (s *stringWriter) WriteString(str string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := io.WriteString(s.w, str)
	s.err = err
	return n, err
}
