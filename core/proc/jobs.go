package proc

import "golang.org/x/sys/unix"

// Job is one background-dispatched pipeline tracked as a unit.
// Adopted jobs (foreground leftovers, setup-failure survivors) carry
// ID zero and are never announced.
type Job struct {
	ID      int
	Command string
	handles []*Handle
}

// Pids lists the job's outstanding process IDs.
func (j *Job) Pids() []int {
	pids := make([]int, 0, len(j.handles))
	for _, h := range j.handles {
		pids = append(pids, h.Pid)
	}
	return pids
}

// Tracker owns every detached process handle of one shell session.
// Only the shell goroutine touches it, so it needs no locking.
type Tracker struct {
	jobs []*Job
	// nextID is the last job number handed out; it resets once no
	// numbered job is outstanding.
	nextID int
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Completion is an advisory event produced by Poll.
type Completion struct {
	JobID   int
	Command string
	Pid     int
	Status  int
	// Lost marks a handle the OS could no longer report on; it cannot
	// be waited on again so it is retired as if it had exited.
	Lost bool
	// Final is set on the event that empties its job.
	Final bool
}

// Add registers the handles of a just-dispatched background pipeline
// as one job. Numbers are monotonic while any numbered job is still
// outstanding, so two live jobs never share a number; once the last
// numbered job drains the numbering restarts at one.
func (t *Tracker) Add(handles []*Handle, command string) *Job {
	if len(handles) == 0 {
		return nil
	}

	numbered := 0
	for _, j := range t.jobs {
		if j.ID > 0 {
			numbered++
		}
	}
	if numbered == 0 {
		t.nextID = 0
	}
	t.nextID++

	job := &Job{ID: t.nextID, Command: command, handles: handles}
	t.jobs = append(t.jobs, job)
	return job
}

// adopt registers handles that must still be reaped but were never
// announced as a job.
func (t *Tracker) adopt(handles []*Handle) {
	if len(handles) == 0 {
		return
	}
	t.jobs = append(t.jobs, &Job{handles: handles})
}

// Outstanding reports the number of processes still being tracked.
func (t *Tracker) Outstanding() int {
	n := 0
	for _, j := range t.jobs {
		n += len(j.handles)
	}
	return n
}

// Poll non-blockingly checks every outstanding handle and retires the
// ones whose processes have exited. Events follow iteration order over
// the outstanding handles, not completion time.
func (t *Tracker) Poll() []Completion {
	var events []Completion

	live := t.jobs[:0]
	for _, job := range t.jobs {
		remaining := job.handles[:0]
		for _, h := range job.handles {
			var ws unix.WaitStatus
			pid, err := unix.Wait4(h.Pid, &ws, unix.WNOHANG, nil)
			switch {
			case err != nil:
				events = append(events, Completion{
					JobID: job.ID, Command: job.Command, Pid: h.Pid, Lost: true,
				})
			case pid == 0:
				remaining = append(remaining, h)
			default:
				events = append(events, Completion{
					JobID: job.ID, Command: job.Command, Pid: h.Pid, Status: exitStatus(ws),
				})
			}
		}
		job.handles = remaining

		if len(job.handles) == 0 {
			// The job drained this round, so its events are the most
			// recently appended.
			events[len(events)-1].Final = true
		} else {
			live = append(live, job)
		}
	}
	t.jobs = live

	return events
}
