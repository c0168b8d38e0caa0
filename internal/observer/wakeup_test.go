package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// Wait status encodings as the kernel produces them.
func exitStatus(code int) unix.WaitStatus {
	return unix.WaitStatus(code << 8)
}

func signaledStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(sig)
}

func stoppedStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(0x7f | int(sig)<<8)
}

func ptraceEventStatus(ev int) unix.WaitStatus {
	return stoppedStatus(unix.SIGTRAP) | unix.WaitStatus(ev<<16)
}

func TestClassifyWakeup_Exited(t *testing.T) {
	ws := exitStatus(3)
	assert.Equal(t, wakeExited, classifyWakeup(ws))
	assert.Equal(t, 3, ws.ExitStatus())
}

func TestClassifyWakeup_Signaled(t *testing.T) {
	ws := signaledStatus(unix.SIGKILL)
	assert.Equal(t, wakeSignaled, classifyWakeup(ws))
	assert.Equal(t, unix.SIGKILL, ws.Signal())
}

func TestClassifyWakeup_PtraceEvents(t *testing.T) {
	for _, ev := range []int{
		unix.PTRACE_EVENT_FORK,
		unix.PTRACE_EVENT_VFORK,
		unix.PTRACE_EVENT_CLONE,
		unix.PTRACE_EVENT_EXEC,
	} {
		ws := ptraceEventStatus(ev)
		assert.Equal(t, wakePtraceEvent, classifyWakeup(ws), "event %d", ev)
		assert.Equal(t, ev, ws.TrapCause())
	}
}

func TestClassifyWakeup_PlainTrapIsInitialStop(t *testing.T) {
	assert.Equal(t, wakeTrapStop, classifyWakeup(stoppedStatus(unix.SIGTRAP)))
}

func TestClassifyWakeup_GroupStop(t *testing.T) {
	assert.Equal(t, wakeGroupStop, classifyWakeup(stoppedStatus(unix.SIGSTOP)))
}

func TestClassifyWakeup_OtherSignalsAreForwarded(t *testing.T) {
	assert.Equal(t, wakeSignalStop, classifyWakeup(stoppedStatus(unix.SIGUSR1)))
	assert.Equal(t, wakeSignalStop, classifyWakeup(stoppedStatus(unix.SIGTERM)))
}

func TestTerminationExitCode(t *testing.T) {
	assert.Equal(t, 137, terminationExitCode(unix.SIGKILL))
	assert.Equal(t, 143, terminationExitCode(unix.SIGTERM))
}
