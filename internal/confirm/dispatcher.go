package confirm

import "sync"

// Dispatcher serializes commit work per claim. Operations for different
// claims may run concurrently; two operations for the same claim never do.
type Dispatcher interface {
	Do(claimID string, fn func())
}

type claimSerial struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDispatcher() Dispatcher {
	return &claimSerial{locks: map[string]*sync.Mutex{}}
}

func (d *claimSerial) Do(claimID string, fn func()) {
	d.mu.Lock()
	l, ok := d.locks[claimID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[claimID] = l
	}
	d.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	fn()
}
