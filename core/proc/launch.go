package proc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/marshell/marsh/core/parser"
)

var (
	// ErrInputPosition reports an input redirection on a stage other
	// than the first.
	ErrInputPosition = errors.New("input redirection is only valid on the first stage of a pipeline")
	// ErrOutputPosition reports an output redirection on a stage other
	// than the last.
	ErrOutputPosition = errors.New("output redirection is only valid on the last stage of a pipeline")
)

// stage is one pipeline member with its stdio fully resolved. Files
// opened for redirections are recorded so the parent can close them
// once the child owns copies.
type stage struct {
	cmd       *parser.Command
	path      string
	stdin     *os.File
	stdout    *os.File
	redirects []*os.File
}

// resolveStage validates cmd's redirections against its pipeline
// position, opens any redirection files and resolves the executable.
// stdin and stdout are the pipe ends assigned by the coordinator; nil
// means the shell's own stream. Errors here fail only this stage.
func resolveStage(cmd *parser.Command, stdin, stdout *os.File, first, last bool) (*stage, error) {
	st := &stage{cmd: cmd, stdin: stdin, stdout: stdout}

	if cmd.HasInput() {
		if !first {
			return nil, fmt.Errorf("%s: %w", cmd.Args[0], ErrInputPosition)
		}
		f, err := os.Open(cmd.Input)
		if err != nil {
			return nil, err
		}
		st.stdin = f
		st.redirects = append(st.redirects, f)
	}

	if cmd.HasOutput() {
		if !last {
			st.close()
			return nil, fmt.Errorf("%s: %w", cmd.Args[0], ErrOutputPosition)
		}
		f, err := os.OpenFile(cmd.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			st.close()
			return nil, err
		}
		st.stdout = f
		st.redirects = append(st.redirects, f)
	}

	path, err := exec.LookPath(cmd.Args[0])
	if err != nil {
		st.close()
		return nil, err
	}
	st.path = path

	return st, nil
}

// close releases the redirection files this stage opened.
func (st *stage) close() {
	for _, f := range st.redirects {
		f.Close()
	}
	st.redirects = nil
}

// start spawns the stage's process. The child receives exactly stdin,
// stdout and the shell's stderr; every other descriptor stays behind
// in the parent. Errors here are fork-level and abort the whole
// pipeline.
func (st *stage) start() (*Handle, error) {
	stdin, stdout := st.stdin, st.stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	p, err := os.StartProcess(st.path, st.cmd.Args, &os.ProcAttr{
		Files: []*os.File{stdin, stdout, os.Stderr},
	})
	if err != nil {
		return nil, err
	}

	h := &Handle{Pid: p.Pid, Name: st.cmd.Args[0]}
	// The tracker waits on raw pids; drop the runtime's reference.
	p.Release()
	return h, nil
}
