package observer

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"forktrace/internal/event"
)

const eventBuffer = 256

// traceOptions follow fork, vfork, clone and exec so every descendant
// is traced automatically, to unlimited depth. TRACEEXIT is not set:
// exit codes come from the wait status itself. EXITKILL is never set;
// tracees must survive the tracer.
const traceOptions = unix.PTRACE_O_TRACEFORK |
	unix.PTRACE_O_TRACEVFORK |
	unix.PTRACE_O_TRACECLONE |
	unix.PTRACE_O_TRACEEXEC

// Observer owns all ptrace interaction for one trace session.
type Observer struct {
	rootPID int
	argv    []string

	events  chan event.Event
	setupCh chan error
	stopCh  chan struct{}
	doneCh  chan struct{}

	stopOnce sync.Once
	err      error

	mu      sync.Mutex
	tracees map[int]struct{}

	// Bookkeeping below is touched only by the run goroutine.
	announced map[int]bool
	pending   map[int][]event.Event
	dead      map[int]bool
	rootSeen  bool
	cmd       *exec.Cmd
}

// Attach prepares an observer for an already-running process.
func Attach(pid int) *Observer {
	return newObserver(pid, nil)
}

// Spawn prepares an observer that forks argv and traces it from its
// first instruction.
func Spawn(argv []string) *Observer {
	return newObserver(0, argv)
}

func newObserver(pid int, argv []string) *Observer {
	return &Observer{
		rootPID:   pid,
		argv:      argv,
		events:    make(chan event.Event, eventBuffer),
		setupCh:   make(chan error, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		tracees:   make(map[int]struct{}),
		announced: make(map[int]bool),
		pending:   make(map[int][]event.Event),
		dead:      make(map[int]bool),
	}
}

// Events returns the lifecycle event stream. The channel is closed
// when the trace loop ends.
func (o *Observer) Events() <-chan event.Event { return o.events }

// RootPID reports the pid of the traced root. In spawn mode it is
// valid only after Start has returned.
func (o *Observer) RootPID() int { return o.rootPID }

// Start launches the trace loop and blocks until the root has been
// attached or spawned, reporting attach failures synchronously. The
// loop then runs until every tracee is gone, Stop is called, or ctx is
// cancelled.
func (o *Observer) Start(ctx context.Context) error {
	go o.run()
	go func() {
		select {
		case <-ctx.Done():
			o.Stop()
		case <-o.doneCh:
		}
	}()
	return <-o.setupCh
}

// Stop requests shutdown. The pending wait is interrupted with a
// group-stop nudge; the loop then detaches every still-active tracee
// so traced processes keep running.
func (o *Observer) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		for _, pid := range o.activePIDs() {
			_ = unix.Kill(pid, unix.SIGSTOP)
		}
	})
}

// Wait blocks until the trace loop has finished and returns its
// terminal error, if any.
func (o *Observer) Wait() error {
	<-o.doneCh
	return o.err
}

// run owns the tracing thread. Every ptrace request about a tracee
// must come from the thread that attached it, hence the lock.
func (o *Observer) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer close(o.doneCh)
	defer close(o.events)
	defer o.detachAll()

	if err := o.setup(); err != nil {
		o.setupCh <- err
		return
	}
	o.setupCh <- nil

	o.err = o.loop()
}

func (o *Observer) setup() error {
	if len(o.argv) > 0 {
		return o.spawn()
	}
	return o.attach()
}

func (o *Observer) attach() error {
	if err := unix.PtraceAttach(o.rootPID); err != nil {
		return classifyAttachErr(o.rootPID, err)
	}
	// The attach SIGSTOP arrives as the first wakeup; options are set
	// there.
	o.addTracee(o.rootPID)
	return nil
}

func (o *Observer) spawn() error {
	//nolint:gosec // Launching the target command is this tool's purpose
	cmd := exec.Command(o.argv[0], o.argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", o.argv[0], err)
	}
	o.cmd = cmd
	o.rootPID = cmd.Process.Pid
	o.addTracee(o.rootPID)
	return nil
}

// loop drains wait4 until all tracees are gone or shutdown is
// requested. wait4 is the sole blocking point and is unbounded:
// liveness information is the value being waited on.
func (o *Observer) loop() error {
	for o.traceeCount() > 0 {
		if o.stopRequested() {
			return nil
		}

		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WALL, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			return nil
		case err != nil:
			return fmt.Errorf("wait4: %w", err)
		}

		if o.stopRequested() {
			// Possibly our own shutdown nudge; the tracee is already
			// stopped, so release it directly.
			if ws.Stopped() {
				o.detachStopped(pid)
			}
			return nil
		}

		o.handleWakeup(pid, ws)
	}
	return nil
}

func (o *Observer) handleWakeup(pid int, ws unix.WaitStatus) {
	switch classifyWakeup(ws) {
	case wakeExited:
		o.reportExit(pid, ws.ExitStatus())
	case wakeSignaled:
		o.reportExit(pid, terminationExitCode(ws.Signal()))
	case wakePtraceEvent:
		o.handlePtraceEvent(pid, ws.TrapCause())
		o.cont(pid, 0)
	case wakeTrapStop, wakeGroupStop:
		// First stop of a tracee: the exec trap of a spawned root, the
		// attach stop, or a new child's inherited trace stop.
		o.initTracee(pid)
		o.cont(pid, 0)
	case wakeSignalStop:
		o.cont(pid, int(ws.StopSignal()))
	case wakeOther:
	}
}

// initTracee arms trace options on a tracee seen for the first time.
// Re-arming on later SIGSTOPs is harmless.
func (o *Observer) initTracee(pid int) {
	o.addTracee(pid)
	if err := unix.PtraceSetOptions(pid, traceOptions); err != nil && err != unix.ESRCH {
		log.Printf("setting ptrace options for pid %d: %v", pid, err)
	}
	if pid == o.rootPID && !o.rootSeen {
		o.rootSeen = true
		o.announced[pid] = true
		o.emit(event.Event{Type: event.CommandChanged, PID: pid})
	}
}

func (o *Observer) handlePtraceEvent(pid, cause int) {
	switch cause {
	case unix.PTRACE_EVENT_FORK, unix.PTRACE_EVENT_VFORK, unix.PTRACE_EVENT_CLONE:
		msg, err := unix.PtraceGetEventMsg(pid)
		if err != nil {
			// The child is still traced via its own stop; only the
			// parent linkage is lost.
			log.Printf("reading new child of pid %d: %v", pid, err)
			return
		}
		o.announceChild(pid, int(msg))
	case unix.PTRACE_EVENT_EXEC:
		ev := event.Event{Type: event.CommandChanged, PID: pid}
		if o.announced[pid] {
			o.emit(ev)
		} else {
			o.pending[pid] = append(o.pending[pid], ev)
		}
	}
}

// announceChild emits the Created event for a child and flushes any of
// the child's own reports that raced ahead of its parent's fork
// notification, preserving causal order.
func (o *Observer) announceChild(parent, child int) {
	if o.announced[child] {
		return
	}
	if !o.dead[child] {
		o.addTracee(child)
	}
	o.announced[child] = true
	o.emit(event.Event{Type: event.Created, PID: child, ParentPID: parent})
	for _, ev := range o.pending[child] {
		o.emit(ev)
	}
	delete(o.pending, child)
}

// reportExit never drops an exit: if the pid has not been announced
// yet, the report is held until the parent's fork notification names
// it.
func (o *Observer) reportExit(pid, code int) {
	o.removeTracee(pid)
	o.dead[pid] = true
	ev := event.Event{Type: event.Exited, PID: pid, ExitCode: code}
	if o.announced[pid] {
		o.emit(ev)
		return
	}
	o.pending[pid] = append(o.pending[pid], ev)
}

// emit hands an event to the consumer, giving up once shutdown has
// started so a stalled consumer cannot wedge the trace loop.
func (o *Observer) emit(ev event.Event) {
	select {
	case o.events <- ev:
	case <-o.stopCh:
	}
}

func (o *Observer) cont(pid, sig int) {
	// ESRCH here means the tracee died mid-handling; its exit report
	// is already queued for us.
	if err := unix.PtraceCont(pid, sig); err != nil && err != unix.ESRCH {
		log.Printf("continuing pid %d: %v", pid, err)
	}
}

// detachAll releases every still-active tracee. It runs on every exit
// path of the trace loop, including error paths; failures are logged
// and never override the loop's result.
func (o *Observer) detachAll() {
	for _, pid := range o.activePIDs() {
		if err := detachTracee(pid); err != nil {
			log.Printf("detaching pid %d: %v", pid, err)
		}
		o.removeTracee(pid)
	}
}

// detachStopped releases a tracee already sitting in a ptrace-stop.
func (o *Observer) detachStopped(pid int) {
	if err := unix.PtraceDetach(pid); err != nil && err != unix.ESRCH {
		log.Printf("detaching pid %d: %v", pid, err)
	}
	o.removeTracee(pid)
}

// detachTracee detaches one tracee. PTRACE_DETACH only works on a
// stopped tracee, so a SIGSTOP is delivered first and then suppressed
// by detaching with signal zero, leaving the process running.
func detachTracee(pid int) error {
	if err := unix.Kill(pid, unix.SIGSTOP); err != nil {
		if err == unix.ESRCH {
			return nil // already gone
		}
		return fmt.Errorf("stopping: %w", err)
	}
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || wpid != pid {
			break
		}
		if ws.Exited() || ws.Signaled() {
			return nil // died first; nothing left to release
		}
		if ws.Stopped() {
			break
		}
	}
	return unix.PtraceDetach(pid)
}

func (o *Observer) stopRequested() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

func (o *Observer) addTracee(pid int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tracees[pid] = struct{}{}
}

func (o *Observer) removeTracee(pid int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.tracees, pid)
}

func (o *Observer) traceeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.tracees)
}

func (o *Observer) activePIDs() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	pids := make([]int, 0, len(o.tracees))
	for pid := range o.tracees {
		pids = append(pids, pid)
	}
	return pids
}
