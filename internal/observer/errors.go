package observer

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// AttachErrorKind distinguishes why attaching to the root failed.
type AttachErrorKind int

const (
	// NotFound: the target process does not exist, or exited before
	// the attach landed.
	NotFound AttachErrorKind = iota + 1
	// PermissionDenied: the target exists but may not be traced.
	PermissionDenied
)

func (k AttachErrorKind) String() string {
	switch k {
	case NotFound:
		return "process not found"
	case PermissionDenied:
		return "permission denied"
	default:
		return "attach failed"
	}
}

// AttachError is the fatal error reported when the observer cannot
// take ownership of the root process. It surfaces to the caller and
// turns into a nonzero exit.
type AttachError struct {
	Kind AttachErrorKind
	PID  int
	Err  error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attaching to pid %d: %s", e.PID, e.Kind)
}

func (e *AttachError) Unwrap() error { return e.Err }

// classifyAttachErr maps attach errnos onto the error taxonomy. ESRCH
// means the target is gone; EPERM/EACCES mean it cannot be traced
// (ptrace_scope, containers, or a privileged target).
func classifyAttachErr(pid int, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ESRCH:
			return &AttachError{Kind: NotFound, PID: pid, Err: err}
		case unix.EPERM, unix.EACCES:
			return &AttachError{Kind: PermissionDenied, PID: pid, Err: err}
		}
	}
	return fmt.Errorf("attaching to pid %d: %w", pid, err)
}
