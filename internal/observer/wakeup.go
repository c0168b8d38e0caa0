package observer

import "golang.org/x/sys/unix"

// wakeKind classifies a wait status into the action the trace loop
// takes for it.
type wakeKind int

const (
	// wakeExited: the tracee exited normally; the status carries its
	// exit code.
	wakeExited wakeKind = iota
	// wakeSignaled: the tracee was killed by a signal.
	wakeSignaled
	// wakePtraceEvent: a SIGTRAP stop with the ptrace event number in
	// the high status byte (fork/vfork/clone/exec).
	wakePtraceEvent
	// wakeTrapStop: a plain SIGTRAP stop; the initial exec stop of a
	// spawned tracee.
	wakeTrapStop
	// wakeGroupStop: a SIGSTOP stop; the attach stop of the root or
	// the inherited trace stop of a freshly created child.
	wakeGroupStop
	// wakeSignalStop: any other signal-delivery stop; the signal is
	// forwarded to the tracee unchanged.
	wakeSignalStop
	// wakeOther: reports the loop has no action for (e.g. continued).
	wakeOther
)

// classifyWakeup decides what a wait4 report means.
func classifyWakeup(ws unix.WaitStatus) wakeKind {
	switch {
	case ws.Exited():
		return wakeExited
	case ws.Signaled():
		return wakeSignaled
	case ws.Stopped() && ws.StopSignal() == unix.SIGTRAP && ws.TrapCause() > 0:
		return wakePtraceEvent
	case ws.Stopped() && ws.StopSignal() == unix.SIGTRAP:
		return wakeTrapStop
	case ws.Stopped() && ws.StopSignal() == unix.SIGSTOP:
		return wakeGroupStop
	case ws.Stopped():
		return wakeSignalStop
	}
	return wakeOther
}

// terminationExitCode follows the shell convention for signal deaths.
func terminationExitCode(sig unix.Signal) int {
	return 128 + int(sig)
}
