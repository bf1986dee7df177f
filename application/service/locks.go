package service

import "sync"

// runLocks provides per-project mutual exclusion for indexing runs. A
// project's lock is held for the duration of one run and released on every
// exit path, so a failed run never wedges future ones.
type runLocks struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func newRunLocks() *runLocks {
	return &runLocks{active: make(map[int64]struct{})}
}

// tryAcquire attempts to take the project's lock without blocking.
func (l *runLocks) tryAcquire(projectID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.active[projectID]; held {
		return false
	}
	l.active[projectID] = struct{}{}
	return true
}

// release frees the project's lock.
func (l *runLocks) release(projectID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, projectID)
}
