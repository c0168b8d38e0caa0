// Package pidlookup resolves an executable name to a process id.
package pidlookup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/process"
)

// FindByName returns the lowest pid whose process name or executable
// basename equals name, like pidof. The calling process is skipped.
func FindByName(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty process name")
	}

	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	self := os.Getpid()
	best := -1
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == self {
			continue
		}
		if !matches(p, name) {
			continue
		}
		if best < 0 || pid < best {
			best = pid
		}
	}

	if best < 0 {
		return 0, fmt.Errorf("no process named %q", name)
	}
	return best, nil
}

// matches compares name against the process's comm and, failing that,
// its executable basename. Either read can fail for processes that
// exited mid-scan or that we may not inspect; those simply don't match.
func matches(p *process.Process, name string) bool {
	if comm, err := p.Name(); err == nil && comm == name {
		return true
	}
	if exe, err := p.Exe(); err == nil && filepath.Base(exe) == name {
		return true
	}
	return false
}
