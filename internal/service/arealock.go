package service

import (
	"context"
	"sync"

	apperrors "parkspot/internal/errors"
)

// areaLockTable serializes scan-and-reserve sequences per parking area so
// two concurrent bookings cannot both claim the last free slot. Locks are
// one-slot channel semaphores keyed by area id, created lazily and never
// discarded (the set of areas is small and stable).
type areaLockTable struct {
	mu    sync.Mutex
	locks map[int]chan struct{}
}

func newAreaLockTable() *areaLockTable {
	return &areaLockTable{locks: make(map[int]chan struct{})}
}

func (t *areaLockTable) lockFor(areaID int) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[areaID]
	if !ok {
		l = make(chan struct{}, 1)
		t.locks[areaID] = l
	}
	return l
}

// Acquire takes the lock for the given area, waiting no longer than the
// context allows. It returns a release function that must be called on every
// exit path; on timeout it returns ErrLockTimeout and no lock is held.
func (t *areaLockTable) Acquire(ctx context.Context, areaID int) (func(), error) {
	l := t.lockFor(areaID)
	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-ctx.Done():
		return nil, apperrors.ErrLockTimeout
	}
}
