package proctree

// NodeID is a stable arena slot identifying one node for the lifetime
// of the tree.
type NodeID int

// NoNode marks the absence of a parent (the root's parent slot).
const NoNode NodeID = -1

// State is a node's lifecycle state.
type State int

const (
	// StatePlaceholder: created to satisfy a child-before-parent event
	// ordering, pending backfill.
	StatePlaceholder State = iota
	// StateActive: creation observed, process presumed running.
	StateActive
	// StateExited: terminal; ExitCode is valid.
	StateExited
)

// Node is one traced process incarnation, identified by (PID, Gen).
type Node struct {
	PID      int
	Gen      int
	Parent   NodeID
	Children []NodeID
	Command  string
	State    State
	ExitCode int
}

// Tree owns every node ever created during a trace session.
type Tree struct {
	nodes   []Node
	current map[int]NodeID // pid -> active generation's slot
	lastGen map[int]int    // pid -> highest generation handed out
	root    NodeID
}

// New creates a tree whose root is the traced target, already active.
func New(rootPID int) *Tree {
	t := &Tree{
		current: make(map[int]NodeID),
		lastGen: make(map[int]int),
		root:    0,
	}
	t.alloc(rootPID, NoNode, StateActive)
	return t
}

// Root returns the root node's slot.
func (t *Tree) Root() NodeID { return t.root }

// Node returns the node in the given slot. The pointer is only valid
// until the next node allocation.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Len reports the number of nodes ever created.
func (t *Tree) Len() int { return len(t.nodes) }

// Current returns the slot holding pid's active generation.
func (t *Tree) Current(pid int) (NodeID, bool) {
	id, ok := t.current[pid]
	return id, ok
}

// AddNode allocates a fresh generation of pid as the newest child of
// parent and makes it the pid's current node.
func (t *Tree) AddNode(pid int, parent NodeID) NodeID {
	return t.alloc(pid, parent, StateActive)
}

// AddPlaceholder allocates a placeholder for a pid whose creation has
// not been observed. It hangs off the root so every node stays
// reachable for rendering; backfill may re-parent it later.
func (t *Tree) AddPlaceholder(pid int) NodeID {
	return t.alloc(pid, t.root, StatePlaceholder)
}

// Reparent detaches a node from its current parent's child list and
// appends it to newParent's. Used only when a placeholder's real
// parent becomes known; the node's identity and children are kept.
func (t *Tree) Reparent(id, newParent NodeID) {
	n := t.Node(id)
	if n.Parent == newParent {
		return
	}
	if n.Parent != NoNode {
		old := t.Node(n.Parent)
		for i, c := range old.Children {
			if c == id {
				old.Children = append(old.Children[:i], old.Children[i+1:]...)
				break
			}
		}
	}
	n.Parent = newParent
	p := t.Node(newParent)
	p.Children = append(p.Children, id)
}

// alloc assigns the node its generation exactly once, at creation.
func (t *Tree) alloc(pid int, parent NodeID, state State) NodeID {
	gen := t.lastGen[pid] + 1
	t.lastGen[pid] = gen

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		PID:    pid,
		Gen:    gen,
		Parent: parent,
		State:  state,
	})
	t.current[pid] = id

	if parent != NoNode {
		p := t.Node(parent)
		p.Children = append(p.Children, id)
	}
	return id
}
