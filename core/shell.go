package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"github.com/marshell/marsh/core/config"
	"github.com/marshell/marsh/core/logger"
	"github.com/marshell/marsh/core/parser"
	"github.com/marshell/marsh/core/proc"
)

const (
	EnvHome = "HOME"
	EnvUser = "USER"

	DefaultPrompt = `\t \u:\w\$ `
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	markerColor = color.New(color.FgYellow, color.Bold)
	noticeColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
)

// Shell is one interactive session: the read loop, prompt, builtin
// state and the handles of every background job.
type Shell struct {
	Config   *config.Configuration
	Readline *readline.Instance
	Engine   *proc.Engine
	Tracker  *proc.Tracker
	Log      *logger.Logger

	stdout io.Writer
	stderr io.Writer

	prevDir    string
	lastStatus int
	quit       bool

	toClose listCloser
}

func NewShell(cfg *config.Configuration) (*Shell, error) {
	rlCfg := &readline.Config{
		Stdin:        readline.NewCancelableStdin(os.Stdin),
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		HistoryFile:  cfg.HistoryPath(),
		HistoryLimit: cfg.HistoryLimit,
	}
	if err := rlCfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}

	shell := &Shell{
		Config:   cfg,
		Readline: rl,
		Tracker:  proc.NewTracker(),
		Log:      logger.NewNopRecorder(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	shell.Engine = proc.NewEngine(shell.Tracker)
	shell.toClose = append(shell.toClose, rl)

	if cfg.EventLog {
		fd, err := cfg.OpenEventLog()
		if err != nil {
			log.Printf("Couldn't open event log: %v", err)
		} else {
			shell.Log = logger.NewJSONLinesRecorder(fd)
			shell.toClose = append(shell.toClose, fd)
		}
	}

	return shell, nil
}

// Run reads and dispatches commands until exit or end of input.
func (s *Shell) Run() error {
	defer s.toClose.Close()

	for !s.quit {
		s.reportCompletions()

		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()
		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			return err

		case strings.TrimSpace(line) == "":
			continue
		}

		s.dispatch(line)
	}
	return nil
}

// reportCompletions polls the tracker and prints a notice for every
// background process that has exited since the previous prompt.
func (s *Shell) reportCompletions() {
	for _, ev := range s.Tracker.Poll() {
		if ev.Lost {
			fmt.Fprintln(s.stderr, errorColor.Sprintf("Background process %d lost.", ev.Pid))
		} else {
			fmt.Fprintln(s.stderr, noticeColor.Sprintf("Background process %d completed.", ev.Pid))
		}
		if ev.Final && ev.JobID > 0 {
			fmt.Fprintln(s.stderr, noticeColor.Sprintf("[%d] done %s", ev.JobID, ev.Command))
		}
		s.logEvent(s.Log.RecordJobComplete(ev.JobID, ev.Pid, ev.Status, ev.Lost))
	}
}

func (s *Shell) dispatch(line string) {
	pipeline, err := parser.Parse(line)
	if err != nil {
		fmt.Fprintf(s.stderr, "marsh: %v\n", err)
		return
	}
	if len(pipeline) == 0 {
		return
	}

	// Builtins run in the shell's own process and never as a pipeline
	// stage.
	for _, cmd := range pipeline {
		builtin, ok := AllBuiltins[cmd.Args[0]]
		if !ok {
			continue
		}
		if len(pipeline) > 1 {
			fmt.Fprintf(s.stderr, "%s: cannot be used in a pipeline\n", cmd.Args[0])
			s.lastStatus = 1
			return
		}
		status := builtin.Main(s, pipeline)
		s.lastStatus = status
		s.logEvent(s.Log.RecordBuiltin(cmd.Args[0], status))
		return
	}

	res, err := s.Engine.Run(pipeline)
	if err != nil {
		// Setup failures abandon the pipeline; nothing is left to wait
		// on.
		fmt.Fprintf(s.stderr, "marsh: %v\n", err)
		s.lastStatus = 1
		return
	}

	if res.Job != nil {
		fmt.Fprintln(s.stderr, noticeColor.Sprint(jobStartNotice(res.Job)))
		s.logEvent(s.Log.RecordJobStart(res.Job.ID, res.Job.Command, res.Job.Pids()))
		return
	}

	s.lastStatus = res.Status
	if res.Status != 0 {
		fmt.Fprintln(s.stderr, errorColor.Sprintf("marsh: exit status %d", res.Status))
	}
	s.logEvent(s.Log.RecordDispatch(proc.CommandLine(pipeline), len(pipeline), res.Status))
}

func (s *Shell) logEvent(err error) {
	if err != nil {
		log.Printf("event log: %v", err)
	}
}

func jobStartNotice(job *proc.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]", job.ID)
	for _, pid := range job.Pids() {
		fmt.Fprintf(&b, " %d", pid)
	}
	return b.String()
}

// promptState carries the values substituted into the prompt format.
type promptState struct {
	Time time.Time
	User string
	Host string
	Dir  string
	Home string
	Root bool
}

func (s *Shell) promptState() promptState {
	st := promptState{Time: time.Now(), Root: os.Geteuid() == 0}
	st.User = os.Getenv(EnvUser)
	if st.User == "" {
		st.User = "unknown"
	}
	st.Host, _ = os.Hostname()
	st.Dir, _ = os.Getwd()
	st.Home = os.Getenv(EnvHome)
	return st
}

// painter optionally applies a color to one prompt segment.
type painter func(c *color.Color, s string) string

func plainPaint(_ *color.Color, s string) string { return s }
func colorPaint(c *color.Color, s string) string { return c.Sprint(s) }

// expandPrompt substitutes \t, \u, \h, \w and \$ in format.
func expandPrompt(format string, st promptState, paint painter) string {
	dir := st.Dir
	if st.Home != "" && strings.HasPrefix(dir, st.Home) {
		dir = "~" + strings.TrimPrefix(dir, st.Home)
	}
	marker := "$"
	if st.Root {
		marker = "#"
	}

	out := format
	out = strings.ReplaceAll(out, `\t`, paint(promptColor, st.Time.Format("Mon Jan 2 15:04:05")))
	out = strings.ReplaceAll(out, `\u`, paint(promptColor, st.User))
	out = strings.ReplaceAll(out, `\h`, paint(promptColor, st.Host))
	out = strings.ReplaceAll(out, `\w`, paint(promptColor, dir))
	out = strings.ReplaceAll(out, `\$`, paint(markerColor, marker))
	return out
}

func (s *Shell) Prompt() string {
	format := s.Config.Prompt
	if format == "" {
		format = DefaultPrompt
	}

	paint := colorPaint
	if color.NoColor {
		paint = plainPaint
	}
	return expandPrompt(format, s.promptState(), paint)
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
