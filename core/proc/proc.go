// Package proc is the pipeline execution and job-control engine. It
// turns parsed command sequences into OS processes wired together with
// pipes, blocks on foreground pipelines and tracks background jobs for
// non-blocking reaping.
package proc

import (
	"errors"
	"io/fs"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Handle identifies one spawned pipeline stage.
type Handle struct {
	Pid  int
	Name string // argv[0], for diagnostics
}

// Conventional statuses for stages that never ran, kept distinct from
// anything a command would exit with on purpose.
const (
	statusRedirect      = 1
	statusNotExecutable = 126
	statusNotFound      = 127
)

// launchStatus maps a stage that never started to the exit status an
// equivalent forked child would have reported.
func launchStatus(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return statusNotFound
	case errors.Is(err, fs.ErrPermission):
		return statusNotExecutable
	default:
		return statusRedirect
	}
}

// exitStatus decodes a wait status. Signaled children report
// 128+signal like most shells.
func exitStatus(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}
