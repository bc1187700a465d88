package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/marshell/marsh/core/parser"
)

// Engine executes parsed pipelines against the real OS.
type Engine struct {
	Tracker *Tracker
	// Stderr receives per-stage diagnostics.
	Stderr io.Writer
}

func NewEngine(tracker *Tracker) *Engine {
	return &Engine{Tracker: tracker, Stderr: os.Stderr}
}

// Result of dispatching one pipeline.
type Result struct {
	// Status is the exit status of the last stage, reported verbatim.
	// Background dispatch always reports zero.
	Status int
	// Job is set when the pipeline was dispatched in the background.
	Job *Job
}

// Run executes one pipeline. Foreground pipelines block until the last
// stage exits. Background pipelines register a job with the tracker
// and return immediately.
func (e *Engine) Run(pipeline []*parser.Command) (Result, error) {
	if len(pipeline) == 0 {
		return Result{}, errors.New("empty pipeline")
	}

	handles, lastStatus, lastSpawned, err := e.spawn(pipeline)
	if err != nil {
		return Result{}, err
	}

	if pipeline[len(pipeline)-1].Background {
		job := e.Tracker.Add(handles, CommandLine(pipeline))
		if job == nil {
			// Nothing spawned; surface the launch failure directly.
			return Result{Status: lastStatus}, nil
		}
		return Result{Job: job}, nil
	}

	return Result{Status: e.waitForeground(handles, lastStatus, lastSpawned)}, nil
}

// spawn launches every stage left to right, threading each interior
// pipe's read end into the next stage. It returns the spawned handles,
// the launch status to use if the last stage never started, and
// whether the last stage is running. A non-nil error means pipe or
// process creation failed and the pipeline was abandoned.
func (e *Engine) spawn(pipeline []*parser.Command) (handles []*Handle, lastStatus int, lastSpawned bool, err error) {
	var carryIn *os.File // read end feeding the next stage; nil inherits the shell's stdin

	for i, cmd := range pipeline {
		first, last := i == 0, i == len(pipeline)-1

		var pr, pw *os.File
		if !last {
			pr, pw, err = os.Pipe()
			if err != nil {
				closeFile(carryIn)
				e.abandon(handles)
				return nil, 0, false, fmt.Errorf("pipe: %w", err)
			}
		}

		st, serr := resolveStage(cmd, carryIn, pw, first, last)
		if serr != nil {
			// A bad redirection or unresolvable command fails only
			// this stage; its neighbors keep their pipes and run
			// normally.
			fmt.Fprintf(e.stderr(), "marsh: %v\n", serr)
			if last {
				lastStatus = launchStatus(serr)
			}
		} else {
			h, herr := st.start()
			st.close()
			if herr != nil {
				closeFile(carryIn)
				closeFile(pr)
				closeFile(pw)
				e.abandon(handles)
				return nil, 0, false, fmt.Errorf("%s: %w", cmd.Args[0], herr)
			}
			handles = append(handles, h)
			if last {
				lastSpawned = true
			}
		}

		// Parent-side close discipline: the previous read end has been
		// handed to this stage and the new write end to this stage's
		// stdout; neither belongs to the shell anymore.
		closeFile(carryIn)
		closeFile(pw)
		carryIn = pr
	}

	return handles, lastStatus, lastSpawned, nil
}

// waitForeground blocks on the last stage, then sweeps its siblings.
// Siblings normally exit once their pipes close; one still running
// (say, blocked on the shell's own stdin) is handed to the tracker
// rather than blocking the prompt.
func (e *Engine) waitForeground(handles []*Handle, lastStatus int, lastSpawned bool) int {
	status := lastStatus
	rest := handles

	if lastSpawned && len(handles) > 0 {
		final := handles[len(handles)-1]
		rest = handles[:len(handles)-1]

		var ws unix.WaitStatus
		if _, err := unix.Wait4(final.Pid, &ws, 0, nil); err == nil {
			status = exitStatus(ws)
		}
		// A wait error means the OS already lost track of the child;
		// benign, there is nothing left to collect.
	}

	e.abandon(rest)
	return status
}

// abandon reaps whatever already exited and hands survivors to the
// tracker as an unnumbered job so a later poll retires them.
func (e *Engine) abandon(handles []*Handle) {
	if len(handles) == 0 {
		return
	}

	var survivors []*Handle
	for _, h := range handles {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(h.Pid, &ws, unix.WNOHANG, nil)
		if err == nil && pid == 0 {
			survivors = append(survivors, h)
		}
	}

	e.Tracker.adopt(survivors)
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func closeFile(f *os.File) {
	if f != nil {
		f.Close()
	}
}

// CommandLine reconstructs a printable form of the pipeline for job
// reports and the event log.
func CommandLine(pipeline []*parser.Command) string {
	parts := make([]string, 0, len(pipeline))
	for _, c := range pipeline {
		parts = append(parts, strings.Join(c.Args, " "))
	}
	return strings.Join(parts, " | ")
}
