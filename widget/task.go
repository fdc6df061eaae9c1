package widget

import "context"

// Task is a handle on the mount-time fetch.
type Task struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newTask(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (t *Task) finish(err error) {
	t.err = err
	t.cancel()
	close(t.done)
}

// Cancel aborts the fetch if it is still running.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the fetch has finished or been abandoned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its error, if any.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}
