package player

import (
	"sync"
	"time"
)

// DefaultTrackerSize bounds how many players a [Tracker] remembers.
const DefaultTrackerSize = 4096

type trackerKey struct {
	session string
	video   string
}

type trackerEntry struct {
	machine  *Machine
	lastSeen time.Time
}

// Tracker holds one [Machine] per session and video so load events posted by the page
// apply to the player the session is looking at. The oldest entry is evicted once full.
type Tracker struct {
	mu      sync.Mutex
	entries map[trackerKey]*trackerEntry
	size    int
	now     func() time.Time
}

// NewTracker creates a [Tracker] holding at most size machines.
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultTrackerSize
	}
	return &Tracker{entries: make(map[trackerKey]*trackerEntry), size: size, now: time.Now}
}

// Bind returns the machine for session and video bound to identity, creating it if needed.
func (t *Tracker) Bind(session, video string, identity Identity) *Machine {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey{session, video}
	if e, ok := t.entries[key]; ok {
		e.lastSeen = t.now()
		e.machine.Bind(identity)
		return e.machine
	}

	if len(t.entries) >= t.size {
		t.evictOldest()
	}

	m := NewMachine(identity)
	t.entries[key] = &trackerEntry{machine: m, lastSeen: t.now()}
	return m
}

// Mount is [Tracker.Bind] for a fresh page view: the machine always restarts in Loading.
func (t *Tracker) Mount(session, video string, identity Identity) *Machine {
	m := t.Bind(session, video, identity)
	m.Remount(identity)
	return m
}

// Lookup returns the machine for session and video, if one is tracked.
func (t *Tracker) Lookup(session, video string) (*Machine, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[trackerKey{session, video}]
	if !ok {
		return nil, false
	}
	e.lastSeen = t.now()
	return e.machine, true
}

// Forget drops every machine belonging to session.
func (t *Tracker) Forget(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k := range t.entries {
		if k.session == session {
			delete(t.entries, k)
		}
	}
}

// Len returns the number of tracked machines.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tracker) evictOldest() {
	var (
		oldest trackerKey
		seen   time.Time
		found  bool
	)
	for k, e := range t.entries {
		if !found || e.lastSeen.Before(seen) {
			oldest, seen, found = k, e.lastSeen, true
		}
	}
	if found {
		delete(t.entries, oldest)
	}
}
