// Package presence tracks which identities are currently reachable.
package presence

import "sync"

type Tracker struct {
	mu     sync.RWMutex
	online map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{online: map[string]bool{}}
}

func (t *Tracker) MarkOnline(identity string) {
	t.mu.Lock()
	t.online[identity] = true
	t.mu.Unlock()
}

func (t *Tracker) MarkOffline(identity string) {
	t.mu.Lock()
	delete(t.online, identity)
	t.mu.Unlock()
}

func (t *Tracker) Online(identity string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[identity]
}
