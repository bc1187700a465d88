package core

import (
	"fmt"
	"os"

	"github.com/marshell/marsh/core/parser"
)

// AllBuiltins holds a list of all registered shell builtins.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, pipeline []*parser.Command) int
}

type ShellBuiltinFunc func(s *Shell, pipeline []*parser.Command) int

func (f ShellBuiltinFunc) Main(s *Shell, pipeline []*parser.Command) int {
	return f(s, pipeline)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Cd is the cd shell builtin. It runs in the shell's own process and
// keeps the previous directory for `cd -`.
func Cd(s *Shell, pipeline []*parser.Command) int {
	if len(pipeline) > 1 {
		fmt.Fprintln(s.stderr, "cd: cannot be used in a pipeline")
		return 1
	}
	cmd := pipeline[0]
	if cmd.Background {
		fmt.Fprintln(s.stderr, "cd: cannot run in the background")
		return 1
	}

	args := cmd.Args
	if len(args) > 2 {
		fmt.Fprintln(s.stderr, "cd: too many arguments")
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(s.stderr, "cd: %v\n", err)
		return 1
	}

	var target string
	echoTarget := false
	switch {
	case len(args) == 1:
		target = os.Getenv(EnvHome)
		if target == "" {
			fmt.Fprintln(s.stderr, "cd: HOME not set")
			return 1
		}
	case args[1] == "-":
		if s.prevDir == "" {
			fmt.Fprintln(s.stderr, "cd: no previous directory")
			return 1
		}
		target = s.prevDir
		echoTarget = true
	default:
		target = args[1]
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(s.stderr, "cd: %v\n", err)
		return 1
	}

	s.prevDir = cwd
	if echoTarget {
		fmt.Fprintln(s.stdout, target)
	}
	return 0
}

// Exit quits the shell.
func Exit(s *Shell, pipeline []*parser.Command) int {
	if len(pipeline) > 1 {
		fmt.Fprintln(s.stderr, "exit: cannot be used in a pipeline")
		return 1
	}
	cmd := pipeline[0]
	if cmd.Background {
		fmt.Fprintln(s.stderr, "exit: cannot run in the background")
		return 1
	}
	if len(cmd.Args) > 1 {
		fmt.Fprintln(s.stderr, "exit: too many arguments")
		return 1
	}

	fmt.Fprintln(s.stdout, "Goodbye")
	s.quit = true
	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
