package git

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	gitlib "github.com/go-git/go-git/v5"
)

var errStatusCanceled = errors.New("status check canceled")

// StatusChecker probes the working tree for uncommitted changes on a
// separate goroutine. At most one check is in flight: Start cancels and
// awaits the previous one first. Cancellation is cooperative; the running
// check polls a flag at its checkpoints instead of being torn down.
type StatusChecker struct {
	repo *gitlib.Repository

	mu      sync.Mutex
	current *statusRun
}

type statusRun struct {
	canceled atomic.Bool
	done     chan struct{}

	// Written once before done is closed, read only after.
	dirty bool
	err   error
}

func NewStatusChecker(s *Service) *StatusChecker {
	return &StatusChecker{repo: s.repo}
}

// Start launches a fresh check, canceling any previous one.
func (c *StatusChecker) Start() {
	c.Cancel()
	run := &statusRun{done: make(chan struct{})}
	c.mu.Lock()
	c.current = run
	c.mu.Unlock()
	go run.check(c.repo)
}

// Cancel flags the in-flight check and waits for it to wind down.
func (c *StatusChecker) Cancel() {
	c.mu.Lock()
	run := c.current
	c.mu.Unlock()
	if run == nil {
		return
	}
	run.canceled.Store(true)
	<-run.done
}

// Done exposes the completion channel of the current run, or nil when no
// check was ever started.
func (c *StatusChecker) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.done
}

// Finished reports whether the latest check ran to completion. A canceled
// or failed check also counts as finished; it simply carries no positive
// result, so no status row is forced into existence.
func (c *StatusChecker) Finished() bool {
	c.mu.Lock()
	run := c.current
	c.mu.Unlock()
	if run == nil {
		return false
	}
	select {
	case <-run.done:
		return true
	default:
		return false
	}
}

// Dirty reports whether the latest completed check found uncommitted
// changes. False while a check is outstanding or after failure.
func (c *StatusChecker) Dirty() bool {
	c.mu.Lock()
	run := c.current
	c.mu.Unlock()
	if run == nil {
		return false
	}
	select {
	case <-run.done:
		return run.err == nil && run.dirty
	default:
		return false
	}
}

func (r *statusRun) check(repo *gitlib.Repository) {
	defer close(r.done)
	if repo == nil {
		r.err = errors.New("repository not initialized")
		return
	}
	if r.canceled.Load() {
		r.err = errStatusCanceled
		return
	}
	wt, err := repo.Worktree()
	if err != nil {
		r.err = err
		slog.Debug("status check", slog.Any("error", err))
		return
	}
	if r.canceled.Load() {
		r.err = errStatusCanceled
		return
	}
	status, err := wt.Status()
	if err != nil {
		r.err = err
		slog.Debug("status check", slog.Any("error", err))
		return
	}
	for _, st := range status {
		if r.canceled.Load() {
			r.err = errStatusCanceled
			return
		}
		if st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked {
			r.dirty = true
			return
		}
		if st.Worktree != gitlib.Unmodified && st.Worktree != gitlib.Untracked {
			r.dirty = true
			return
		}
	}
}
