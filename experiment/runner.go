package experiment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Task is a handle on one child process of the experiment. Each task owns a
// cancelable context so it can be terminated individually, and a buffered
// done channel carrying the process exit error.
type Task struct {
	Name string

	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan error
}

// StartTask launches bin with args as a child process named name. The child
// inherits stdout and stderr. Canceling ctx, or calling Stop, kills the
// child.
func StartTask(ctx context.Context, name, bin string, args ...string) (*Task, error) {
	tctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(tctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting task %s: %w", name, err)
	}
	t := &Task{
		Name:   name,
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() {
		t.done <- cmd.Wait()
	}()
	return t, nil
}

// Done returns the channel that receives the task's exit error (nil on
// clean exit). It fires exactly once.
func (t *Task) Done() <-chan error { return t.done }

// Stop terminates the child process. The exit error is still delivered on
// Done.
func (t *Task) Stop() { t.cancel() }

// JoinAll waits for every task to finish, bounded by timeout (zero means
// wait forever). When the timeout elapses the remaining tasks are terminated
// and their exit errors are still collected, so no child is left running and
// no outcome goes unreported. The result maps task name to exit error, nil
// for a clean exit and a timeout-wrapped error for terminated tasks.
func JoinAll(tasks []*Task, timeout time.Duration) map[string]error {
	results := make(map[string]error, len(tasks))

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	timedOut := false
	for _, t := range tasks {
		if timedOut {
			t.Stop()
			err := <-t.Done()
			results[t.Name] = fmt.Errorf("task %s terminated after %s timeout: %v", t.Name, timeout, err)
			continue
		}
		select {
		case err := <-t.Done():
			results[t.Name] = err
		case <-expired:
			timedOut = true
			t.Stop()
			err := <-t.Done()
			results[t.Name] = fmt.Errorf("task %s terminated after %s timeout: %v", t.Name, timeout, err)
		}
	}
	return results
}
