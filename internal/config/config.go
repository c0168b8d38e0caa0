// Package config holds the runtime configuration for forktrace.
package config

import "fmt"

// Config is the parsed command-line configuration.
type Config struct {
	// PID attaches to an already-running process.
	PID int
	// Name attaches to the lowest-pid process with this executable name.
	Name string
	// Command spawns and traces a fresh command (argv).
	Command []string
	// InFile replays a previously dumped session instead of tracing.
	InFile string
	// OutFile writes the rendered tree to a file instead of stdout.
	OutFile string
	// Live re-renders the tree on every mutation while tracing.
	Live bool
	// NoDump suppresses the JSON session dump after a traced run.
	NoDump bool
}

// Validate checks that exactly one trace target was selected.
func (c *Config) Validate() error {
	if c.PID < 0 {
		return fmt.Errorf("invalid pid %d", c.PID)
	}

	targets := 0
	if c.PID > 0 {
		targets++
	}
	if c.Name != "" {
		targets++
	}
	if len(c.Command) > 0 {
		targets++
	}
	if c.InFile != "" {
		targets++
	}

	switch {
	case targets == 0:
		return fmt.Errorf("no trace target: use --pid, --name, --in, or -- <command> [args...]")
	case targets > 1:
		return fmt.Errorf("conflicting trace targets: pick one of --pid, --name, --in, or -- <command>")
	}

	if c.InFile != "" && c.Live {
		return fmt.Errorf("--live has no effect when replaying with --in")
	}
	return nil
}
