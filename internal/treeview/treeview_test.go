package treeview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forktrace/internal/event"
	"forktrace/internal/proctree"
)

type fakeResolver struct {
	cmds map[int]string
}

func (r *fakeResolver) Resolve(pid int) (string, bool) {
	cmd, ok := r.cmds[pid]
	return cmd, ok
}

func created(parent, child int) event.Event {
	return event.Event{Type: event.Created, PID: child, ParentPID: parent}
}

func exited(pid, code int) event.Event {
	return event.Event{Type: event.Exited, PID: pid, ExitCode: code}
}

// Scenario: a shell runs two commands sequentially; all three exit.
func TestRender_FlatChildren(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{
		100: "shell ",
		101: "ls -la ",
		102: "cat file ",
	}}
	b := proctree.NewBuilder(100, res)
	b.Apply(created(100, 101))
	b.Apply(created(100, 102))
	b.Apply(exited(101, 0))
	b.Apply(exited(102, 0))
	b.Apply(exited(100, 0))

	want := "shell \n" +
		"\\_ ls -la \n" +
		"\\_ cat file \n"
	assert.Equal(t, want, Render(b.Tree()))
}

// Scenario: a child dies before its command line can be read; the line
// must show the placeholder token, never be omitted or empty.
func TestRender_ExitBeforeResolve(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{100: "shell"}}
	b := proctree.NewBuilder(100, res)
	b.Apply(created(100, 103))
	b.Apply(exited(103, 1))

	got := Render(b.Tree())
	assert.Equal(t, "shell\n\\_ UNKNOWN\n", got)
}

// Scenario: three-level nesting where the middle child gains a sibling
// after its own child; continuation bars must track is-last-child state
// at every depth.
func TestRender_NestedWithTrailingSibling(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{
		1: "root",
		2: "child-a",
		3: "grandchild",
		4: "child-b",
	}}
	b := proctree.NewBuilder(1, res)
	b.Apply(created(1, 2))
	b.Apply(created(2, 3))
	b.Apply(created(1, 4))

	want := "root\n" +
		"\\_ child-a\n" +
		"| \\_ grandchild\n" +
		"\\_ child-b\n"
	assert.Equal(t, want, Render(b.Tree()))
}

func TestRender_DeepLastChildChainUsesPadding(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{1: "a", 2: "b", 3: "c", 4: "d"}}
	b := proctree.NewBuilder(1, res)
	b.Apply(created(1, 2))
	b.Apply(created(2, 3))
	b.Apply(created(3, 4))

	want := "a\n" +
		"\\_ b\n" +
		"  \\_ c\n" +
		"    \\_ d\n"
	assert.Equal(t, want, Render(b.Tree()))
}

func TestRender_IsIdempotent(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{1: "a", 2: "b", 3: "c"}}
	b := proctree.NewBuilder(1, res)
	b.Apply(created(1, 2))
	b.Apply(created(1, 3))
	b.Apply(exited(2, 0))

	first := Render(b.Tree())
	second := Render(b.Tree())
	assert.Equal(t, first, second)
}

// One line per (pid, generation) node ever created, exited or not.
func TestRender_LineCountMatchesNodeCount(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{1: "a", 5: "w", 6: "x"}}
	b := proctree.NewBuilder(1, res)
	b.Apply(created(1, 5))
	b.Apply(exited(5, 0))
	b.Apply(created(1, 5)) // pid reuse: second generation
	b.Apply(created(5, 6))
	b.Apply(exited(6, 0))

	out := Render(b.Tree())
	lines := strings.Count(out, "\n")
	assert.Equal(t, b.Tree().Len(), lines)
	assert.Equal(t, 4, lines)
}

func TestRender_PidReuseShowsBothGenerations(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{1: "init", 5: "worker"}}
	b := proctree.NewBuilder(1, res)
	b.Apply(created(1, 5))
	b.Apply(exited(5, 0))
	b.Apply(created(1, 5))

	want := "init\n" +
		"\\_ worker\n" +
		"\\_ worker\n"
	assert.Equal(t, want, Render(b.Tree()))
}

func TestWrite_MatchesRender(t *testing.T) {
	res := &fakeResolver{cmds: map[int]string{1: "a", 2: "b"}}
	b := proctree.NewBuilder(1, res)
	b.Apply(created(1, 2))

	var sb strings.Builder
	require.NoError(t, Write(&sb, b.Tree()))
	assert.Equal(t, Render(b.Tree()), sb.String())
}
