// forktrace traces a process and everything it transitively spawns,
// then renders the result as a tree of command invocations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"forktrace/internal/cmdline"
	"forktrace/internal/config"
	"forktrace/internal/observer"
	"forktrace/internal/pidlookup"
	"forktrace/internal/proctree"
	"forktrace/internal/treeview"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "forktrace [flags] [-- command [args...]]",
	Short: "Trace a process tree and render it as a tree of command lines",
	Long: `forktrace attaches to a process (or spawns one) and follows every
process it transitively creates, rendering the lineage as an indented
tree of command lines once the whole tree has run to completion.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if at := cmd.ArgsLenAtDash(); at >= 0 {
			cfg.Command = args[at:]
		} else if len(args) > 0 {
			cfg.Command = args
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(&cfg)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&cfg.PID, "pid", "p", 0, "attach to an already-running process")
	rootCmd.Flags().StringVarP(&cfg.Name, "name", "n", "", "attach to the lowest-pid process with this executable name")
	rootCmd.Flags().StringVar(&cfg.InFile, "in", "", "replay a dumped session file instead of tracing")
	rootCmd.Flags().StringVarP(&cfg.OutFile, "out", "o", "", "write the rendered tree to a file instead of stdout")
	rootCmd.Flags().BoolVar(&cfg.Live, "live", false, "re-render the tree while tracing")
	rootCmd.Flags().BoolVar(&cfg.NoDump, "no-dump", false, "skip the JSON session dump")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.InFile != "" {
		return replay(cfg)
	}

	obs, err := newObserver(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A signal cancels the trace: tracees are detached and keep
	// running, and whatever was observed still gets rendered.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			log.Printf("received %v, detaching", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := obs.Start(ctx); err != nil {
		return err
	}

	// The observer goroutine owns the tracing syscalls; this goroutine
	// owns the tree. The event channel is the only thing they share.
	builder := proctree.NewBuilder(obs.RootPID(), cmdline.NewProcResolver())

	var live *treeview.LiveView
	if cfg.Live {
		live = treeview.NewLiveView(os.Stdout)
	}

	for ev := range obs.Events() {
		builder.Apply(ev)
		if live != nil {
			if err := live.Refresh(builder.Tree()); err != nil {
				log.Printf("redrawing: %v", err)
			}
		}
	}
	if err := obs.Wait(); err != nil {
		// Rendering what was observed still has value; report and go on.
		log.Printf("trace loop: %v", err)
	}

	tree := builder.Tree()
	if err := emitTree(cfg, tree, live); err != nil {
		return err
	}

	if !cfg.NoDump {
		if err := dumpSession(tree); err != nil {
			// Best-effort, like the detach cleanup: never fails the run.
			log.Printf("dumping session: %v", err)
		}
	}
	return nil
}

func newObserver(cfg *config.Config) (*observer.Observer, error) {
	switch {
	case len(cfg.Command) > 0:
		return observer.Spawn(cfg.Command), nil
	case cfg.Name != "":
		pid, err := pidlookup.FindByName(cfg.Name)
		if err != nil {
			return nil, err
		}
		log.Printf("resolved %q to pid %d", cfg.Name, pid)
		return observer.Attach(pid), nil
	default:
		return observer.Attach(cfg.PID), nil
	}
}

func emitTree(cfg *config.Config, tree *proctree.Tree, live *treeview.LiveView) error {
	if cfg.OutFile != "" {
		f, err := os.Create(cfg.OutFile)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.OutFile, err)
		}
		defer func() {
			_ = f.Close() //nolint:errcheck // Write errors surface below
		}()
		return treeview.Write(f, tree)
	}
	if live != nil {
		return live.Flush(tree)
	}
	return treeview.Write(os.Stdout, tree)
}

// replay renders a previously dumped session without tracing.
func replay(cfg *config.Config) error {
	data, err := os.ReadFile(cfg.InFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.InFile, err)
	}
	var tree proctree.Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", cfg.InFile, err)
	}
	return emitTree(cfg, &tree, nil)
}

// dumpSession writes the finished tree as pretty JSON, picking
// forktrace.N.json when the plain name is already taken.
func dumpSession(tree *proctree.Tree) error {
	name := "forktrace.json"
	for n := 0; fileExists(name); n++ {
		name = fmt.Sprintf("forktrace.%d.json", n)
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	log.Printf("session written to %s", name)
	return nil
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
