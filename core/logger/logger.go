// Package logger is a standardized event logging framework for the
// shell.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// LogRecorder is a callback that stores events in an external
// datastore.
type LogRecorder func(e *Entry) error

// Logger captures shell interaction events: dispatches, background job
// lifecycles and builtin invocations.
type Logger struct {
	Record LogRecorder
}

// NewJSONLinesRecorder creates a Logger that exports events in newline
// delimited JSON object format.
func NewJSONLinesRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(e *Entry) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopRecorder creates a Logger that discards events.
func NewNopRecorder() *Logger {
	return &Logger{Record: func(*Entry) error { return nil }}
}

// Entry is one logged event. Exactly one event field is set.
type Entry struct {
	TimestampMicros int64 `json:"timestamp_micros"`

	Dispatch    *Dispatch    `json:"dispatch,omitempty"`
	JobStart    *JobStart    `json:"job_start,omitempty"`
	JobComplete *JobComplete `json:"job_complete,omitempty"`
	Builtin     *Builtin     `json:"builtin,omitempty"`
}

// Dispatch records one foreground pipeline execution.
type Dispatch struct {
	Command string `json:"command"`
	Stages  int    `json:"stages"`
	Status  int    `json:"status"`
}

// JobStart records a background pipeline dispatch.
type JobStart struct {
	JobID   int    `json:"job_id"`
	Command string `json:"command"`
	Pids    []int  `json:"pids"`
}

// JobComplete records one background process retiring.
type JobComplete struct {
	JobID  int  `json:"job_id"`
	Pid    int  `json:"pid"`
	Status int  `json:"status"`
	Lost   bool `json:"lost,omitempty"`
}

// Builtin records a builtin invocation.
type Builtin struct {
	Name   string `json:"name"`
	Status int    `json:"status"`
}

func (l *Logger) record(fill func(e *Entry)) error {
	e := &Entry{TimestampMicros: time.Now().UnixNano() / int64(time.Microsecond)}
	fill(e)
	return l.Record(e)
}

func (l *Logger) RecordDispatch(command string, stages, status int) error {
	return l.record(func(e *Entry) {
		e.Dispatch = &Dispatch{Command: command, Stages: stages, Status: status}
	})
}

func (l *Logger) RecordJobStart(jobID int, command string, pids []int) error {
	return l.record(func(e *Entry) {
		e.JobStart = &JobStart{JobID: jobID, Command: command, Pids: pids}
	})
}

func (l *Logger) RecordJobComplete(jobID, pid, status int, lost bool) error {
	return l.record(func(e *Entry) {
		e.JobComplete = &JobComplete{JobID: jobID, Pid: pid, Status: status, Lost: lost}
	})
}

func (l *Logger) RecordBuiltin(name string, status int) error {
	return l.record(func(e *Entry) {
		e.Builtin = &Builtin{Name: name, Status: status}
	})
}
