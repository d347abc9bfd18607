package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// lockTable hands out one exclusive lock per account identifier, so that
// mutations on the same account are strictly serialized while unrelated
// accounts proceed in parallel. Acquisition is bounded: a caller that cannot
// get its locks within the timeout receives ErrBusy instead of hanging.
type lockTable struct {
	mu      sync.Mutex
	locks   map[string]chan struct{}
	timeout time.Duration
}

func newLockTable(timeout time.Duration) *lockTable {
	return &lockTable{
		locks:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (lt *lockTable) lockFor(id string) chan struct{} {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	l, ok := lt.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		lt.locks[id] = l
	}
	return l
}

// acquire takes the locks for the given ids in lexicographic order and
// returns a release func. Two transfers referencing the same pair of accounts
// in opposite directions always contend on the same lock first, so they
// cannot deadlock each other.
func (lt *lockTable) acquire(ctx context.Context, ids ...string) (func(), error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	timer := time.NewTimer(lt.timeout)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, id := range sorted {
		l := lt.lockFor(id)
		select {
		case l <- struct{}{}:
			held = append(held, l)
		case <-timer.C:
			release()
			return nil, ErrBusy
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
