package server

import (
	"sync"
)

// UserDirectory lists every username known to the system. The presence
// snapshot is always total over this set.
type UserDirectory interface {
	Usernames() []string
}

// Registry maps logged-in usernames to their active session. A username has
// at most one active session; a new login supersedes the old handle.
type Registry struct {
	mu        sync.Mutex
	directory UserDirectory
	online    map[string]*Session
}

func NewRegistry(directory UserDirectory) *Registry {
	return &Registry{
		directory: directory,
		online:    make(map[string]*Session),
	}
}

func (r *Registry) Register(username string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.online[username] = s
}

// Unregister removes the presence entry only when s is still the session on
// record, so a stale disconnect racing a fresh reconnect never evicts the
// newer login. It reports whether an entry was removed.
func (r *Registry) Unregister(username string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.online[username]
	if !ok || current.id != s.id {
		return false
	}

	delete(r.online, username)
	return true
}

func (r *Registry) Lookup(username string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.online[username]
}

func (r *Registry) IsOnline(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.online[username]
	return ok
}

// Snapshot returns the online flag for every known username, offline by
// default.
func (r *Registry) Snapshot() map[string]bool {
	names := r.directory.Usernames()

	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make(map[string]bool, len(names))
	for _, name := range names {
		_, online := r.online[name]
		statuses[name] = online
	}

	return statuses
}
