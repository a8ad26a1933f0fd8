// Package registry tracks the single in-flight task per submitter and the
// live-status state shared between the worker and its status reader.
package registry

import (
	"errors"
	"sync"

	"fetchbot/internal/transport"
)

var (
	// ErrTaskActive is returned by Admit while the submitter already has a
	// task in flight.
	ErrTaskActive = errors.New("task already active for submitter")
	// ErrSinkAttached is returned by AttachSink when a live-status sink is
	// already bound to the task.
	ErrSinkAttached = errors.New("live status sink already attached")
)

// Task is one submitter's admitted job. Status text is written by the
// worker engine and read by the live-status reader.
type Task struct {
	SubmitterID int64
	Filename    string

	status string
	sink   *transport.MessageRef
	done   chan struct{}
}

// Sink returns the attached live-status sink, if any.
func (t *Task) Sink() *transport.MessageRef {
	return t.sink
}

// Done is closed when the task is removed from the registry.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Registry is the concurrent map of submitter id to active task. All
// operations hold one registry-wide lock for O(1), I/O-free critical
// sections.
type Registry struct {
	mu    sync.Mutex
	tasks map[int64]*Task
}

func New() *Registry {
	return &Registry{tasks: make(map[int64]*Task)}
}

// Admit creates the task for a submitter, enforcing single-flight: a second
// admission while the first task is active is refused, not queued.
func (r *Registry) Admit(submitterID int64, fname string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[submitterID]; exists {
		return nil, ErrTaskActive
	}
	task := &Task{
		SubmitterID: submitterID,
		Filename:    fname,
		done:        make(chan struct{}),
	}
	r.tasks[submitterID] = task
	return task, nil
}

// SetStatus overwrites the task's status text. A missing task means the job
// already finished; the update is silently dropped.
func (r *Registry) SetStatus(submitterID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task, ok := r.tasks[submitterID]; ok {
		task.status = text
	}
}

// Status reads the task's current status text. ok is false when no task is
// active for the submitter.
func (r *Registry) Status(submitterID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[submitterID]
	if !ok {
		return "", false
	}
	return task.status, true
}

// AttachSink binds the live-status sink to the task. A second attach is
// reported distinctly so the caller can answer "already active" instead of
// starting a duplicate reader.
func (r *Registry) AttachSink(submitterID int64, sink transport.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[submitterID]
	if !ok {
		return errors.New("no active task for submitter")
	}
	if task.sink != nil {
		return ErrSinkAttached
	}
	task.sink = &sink
	return nil
}

// Lookup returns the active task for a submitter.
func (r *Registry) Lookup(submitterID int64) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[submitterID]
	return task, ok
}

// Remove atomically deletes and returns the task, closing its done channel
// so any live-status reader tears down without waiting for its next poll.
// Called exactly once per task, at terminal-status delivery.
func (r *Registry) Remove(submitterID int64) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[submitterID]
	if !ok {
		return nil, false
	}
	delete(r.tasks, submitterID)
	close(task.done)
	return task, true
}
