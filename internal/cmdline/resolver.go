// Package cmdline reads the command line of a live process.
package cmdline

import (
	"os"
	"path/filepath"
	"strconv"
)

// Unknown is the placeholder rendered for a process whose command line
// could not be read before it went away.
const Unknown = "UNKNOWN"

// resolveAttempts bounds the immediate retries on a failed read. A
// transient kernel-side inconsistency can resolve within the same
// scheduling quantum; anything longer means the process is gone.
const resolveAttempts = 3

// Resolver fetches the current command line of a process.
// The bool result is false when resolution failed; that is an expected
// race with process exit, not an error.
type Resolver interface {
	Resolve(pid int) (string, bool)
}

// ProcResolver resolves command lines from /proc/<pid>/cmdline.
type ProcResolver struct {
	procRoot string
}

// NewProcResolver returns a resolver backed by the real /proc mount.
func NewProcResolver() *ProcResolver {
	return &ProcResolver{procRoot: "/proc"}
}

// Resolve reads the process's argument vector. NUL separators (and the
// trailing NUL, if present) become spaces, matching ps-style output.
func (r *ProcResolver) Resolve(pid int) (string, bool) {
	path := filepath.Join(r.procRoot, strconv.Itoa(pid), "cmdline")
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		raw, err := os.ReadFile(path)
		if err != nil || len(raw) == 0 {
			// A zombie reads as empty; retry immediately, no sleep.
			continue
		}
		return decode(raw), true
	}
	return "", false
}

// decode maps argument separators to spaces in place of the raw
// /proc/<pid>/cmdline bytes.
func decode(raw []byte) string {
	out := make([]byte, len(raw))
	for i, c := range raw {
		if c == 0 || c == '\n' {
			c = ' '
		}
		out[i] = c
	}
	return string(out)
}
