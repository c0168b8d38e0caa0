package proctree

import (
	"encoding/json"
	"fmt"
)

// Trees serialize to JSON for session dumps and replay. The wire form
// is the flat arena plus the root slot; the pid maps are rebuilt on
// load.

type nodeJSON struct {
	PID      int      `json:"pid"`
	Gen      int      `json:"generation"`
	Parent   NodeID   `json:"parent"`
	Children []NodeID `json:"children,omitempty"`
	Command  string   `json:"command"`
	State    string   `json:"state"`
	ExitCode int      `json:"exit_code,omitempty"`
}

type treeJSON struct {
	Root  NodeID     `json:"root"`
	Nodes []nodeJSON `json:"nodes"`
}

var stateNames = map[State]string{
	StatePlaceholder: "placeholder",
	StateActive:      "active",
	StateExited:      "exited",
}

// MarshalJSON implements json.Marshaler.
func (t *Tree) MarshalJSON() ([]byte, error) {
	out := treeJSON{
		Root:  t.root,
		Nodes: make([]nodeJSON, len(t.nodes)),
	}
	for i, n := range t.nodes {
		out.Nodes[i] = nodeJSON{
			PID:      n.PID,
			Gen:      n.Gen,
			Parent:   n.Parent,
			Children: n.Children,
			Command:  n.Command,
			State:    stateNames[n.State],
			ExitCode: n.ExitCode,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var in treeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if in.Root < 0 || int(in.Root) >= len(in.Nodes) {
		return fmt.Errorf("root slot %d out of range", in.Root)
	}

	t.nodes = make([]Node, len(in.Nodes))
	t.current = make(map[int]NodeID)
	t.lastGen = make(map[int]int)
	t.root = in.Root

	for i, n := range in.Nodes {
		state, err := parseState(n.State)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		for _, c := range n.Children {
			if c < 0 || int(c) >= len(in.Nodes) {
				return fmt.Errorf("node %d: child slot %d out of range", i, c)
			}
		}
		t.nodes[i] = Node{
			PID:      n.PID,
			Gen:      n.Gen,
			Parent:   n.Parent,
			Children: n.Children,
			Command:  n.Command,
			State:    state,
			ExitCode: n.ExitCode,
		}
		if n.Gen > t.lastGen[n.PID] {
			t.lastGen[n.PID] = n.Gen
			t.current[n.PID] = NodeID(i)
		}
	}
	return nil
}

func parseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}
