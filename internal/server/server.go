package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"privchat/internal/blob"
	"privchat/internal/database"
	"privchat/internal/stats"
	"privchat/internal/types"
)

// CredentialStore is the slice of the credential directory the relay needs.
type CredentialStore interface {
	Verify(username, password string) (types.User, bool)
	UpdateAvatar(username, avatar string) (types.User, error)
	Usernames() []string
	Avatars() map[string]string
}

// RelayServer routes events between live sessions, the presence registry and
// the message store. It never persists anything itself.
type RelayServer struct {
	log          *log.Logger
	db           database.Repository
	creds        CredentialStore
	files        blob.Store
	presence     *Registry
	stats        stats.StatsProvider
	sessions     map[*Session]struct{}
	sessionsLock sync.Mutex
}

func NewRelayServer(logger *log.Logger, db database.Repository, credStore CredentialStore, files blob.Store, statsProvider stats.StatsProvider) (*RelayServer, error) {
	if credStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	rs := &RelayServer{
		log:      logger,
		db:       db,
		creds:    credStore,
		files:    files,
		presence: NewRegistry(credStore),
		stats:    statsProvider,
		sessions: make(map[*Session]struct{}),
	}

	rs.stats.RegisterMetric(stats.ActiveConnections)
	rs.stats.RegisterMetric(stats.MessagesRelayed)
	rs.stats.RegisterMetric(stats.FilesStored)
	rs.stats.RegisterMetric(stats.PresenceBroadcasts)

	return rs, nil
}

// RegisterConnection tracks a freshly upgraded connection. The session stays
// anonymous until its login event succeeds.
func (rs *RelayServer) RegisterConnection(s *Session) {
	rs.sessionsLock.Lock()
	rs.sessions[s] = struct{}{}
	rs.sessionsLock.Unlock()

	rs.stats.Incr(stats.ActiveConnections)
	rs.log.Printf("session %s connected", s.id)
}

// dropConnection removes a closed connection and, if it still owns its
// presence entry, unregisters it and rebroadcasts presence.
func (rs *RelayServer) dropConnection(s *Session) {
	rs.sessionsLock.Lock()
	_, tracked := rs.sessions[s]
	delete(rs.sessions, s)
	rs.sessionsLock.Unlock()

	if !tracked {
		return
	}

	rs.stats.Decr(stats.ActiveConnections)
	rs.log.Printf("session %s disconnected", s.id)

	if s.username != "" && rs.presence.Unregister(s.username, s) {
		rs.broadcastPresence()
	}
}

// loginSession registers the authenticated session and broadcasts the new
// presence snapshot to everyone. It returns the snapshot for the login ack.
func (rs *RelayServer) loginSession(s *Session) map[string]bool {
	rs.presence.Register(s.username, s)
	return rs.broadcastPresence()
}

func (rs *RelayServer) broadcastPresence() map[string]bool {
	snapshot := rs.presence.Snapshot()
	rs.broadcastAll(StatusesEvent(snapshot))
	rs.stats.Incr(stats.PresenceBroadcasts)

	return snapshot
}

// broadcastAll fans an event out to every connection, logged in or not.
func (rs *RelayServer) broadcastAll(ev *ServerEvent) {
	rs.sessionsLock.Lock()
	defer rs.sessionsLock.Unlock()

	for s := range rs.sessions {
		s.queueEvent(ev)
	}
}

// relayToRoom delivers an event to both participants' active sessions.
func (rs *RelayServer) relayToRoom(room string, ev *ServerEvent) {
	a, b, ok := Participants(room)
	if !ok {
		rs.log.Printf("relay to malformed room %q dropped", room)
		return
	}

	rs.sendTo(a, ev)
	rs.sendTo(b, ev)
}

// sendTo delivers an event to the named user's active session, if online.
func (rs *RelayServer) sendTo(username string, ev *ServerEvent) bool {
	s := rs.presence.Lookup(username)
	if s == nil {
		return false
	}

	return s.queueEvent(ev)
}

func (rs *RelayServer) Shutdown(ctx context.Context) error {
	rs.sessionsLock.Lock()
	open := make([]*Session, 0, len(rs.sessions))
	for s := range rs.sessions {
		open = append(open, s)
	}
	rs.sessionsLock.Unlock()

	for _, s := range open {
		s.stopSession()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
