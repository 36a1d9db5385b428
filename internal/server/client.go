package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"privchat/internal/creds"
	"privchat/internal/database"
	"privchat/internal/stats"
	"privchat/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// file uploads arrive base64-encoded inside the event payload
	maxMessageSize = 16 << 20
)

// Session is the per-connection state machine. A session starts anonymous,
// becomes authenticated on a successful login and holds at most one current
// room. All events of one connection are handled sequentially on its read
// pump, so username/room/peer need no locking.
type Session struct {
	id       string
	conn     *websocket.Conn
	relay    *RelayServer
	log      *log.Logger
	username string
	room     string
	peer     string
	send     chan *ServerEvent
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSession(conn *websocket.Conn, rs *RelayServer, l *log.Logger) *Session {
	return &Session{
		id:    uuid.NewString(),
		conn:  conn,
		relay: rs,
		log:   l,
		send:  make(chan *ServerEvent, 256),
		stop:  make(chan struct{}),
	}
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				s.log.Println("failed to serialize event:", err)
				continue
			}

			if !s.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) Read() {
	defer func() {
		s.conn.Close()
		s.cleanup()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(appData string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			// malformed input is dropped, the client gets no feedback
			s.log.Println("error parsing event:", err)
			continue
		}

		s.dispatch(&ev)
	}
}

// dispatch routes one client event. Events that fail their preconditions are
// dropped without a reply; only login and profile updates carry an ack.
func (s *Session) dispatch(ev *ClientEvent) {
	switch {
	case ev.Login != nil:
		s.handleLogin(ev)
	case ev.Join != nil:
		s.handleJoin(ev)
	case ev.Message != nil:
		s.handleMessage(ev)
	case ev.File != nil:
		s.handleFile(ev)
	case ev.Read != nil:
		s.handleRead(ev)
	case ev.Search != nil:
		s.handleSearch(ev)
	case ev.Edit != nil:
		s.handleEdit(ev)
	case ev.Delete != nil:
		s.handleDelete(ev)
	case ev.Profile != nil:
		s.handleProfile(ev)
	case ev.Typing != nil:
		s.handleTyping(ev)
	}
}

func (s *Session) loggedIn() bool {
	return s.username != ""
}

func (s *Session) inRoom() bool {
	return s.loggedIn() && s.room != ""
}

func (s *Session) handleLogin(ev *ClientEvent) {
	user, ok := s.relay.creds.Verify(ev.Login.Username, ev.Login.Password)
	if !ok {
		s.queueEvent(LoginFailed(ev.Id))
		return
	}

	s.username = user.Username
	statuses := s.relay.loginSession(s)
	s.log.Printf("user %q logged in on session %s", s.username, s.id)

	s.queueEvent(LoginOK(ev.Id, user, s.relay.creds.Usernames(), s.relay.creds.Avatars(), statuses))
}

func (s *Session) handleJoin(ev *ClientEvent) {
	if !s.loggedIn() || ev.Join.Username == "" {
		return
	}

	room := RoomId(s.username, ev.Join.Username)
	s.room = room
	s.peer = ev.Join.Username

	dbMessages, err := s.relay.db.History(room, s.username)
	if err != nil {
		s.log.Println("load history:", err)
		return
	}

	history := toWireMessages(dbMessages)

	if len(history) > 0 {
		lastId := history[len(history)-1].Id
		if err := s.relay.db.AdvanceReadCursor(room, lastId, s.username); err != nil {
			s.log.Println("advance read cursor:", err)
			return
		}

		s.relay.sendTo(s.peer, ReadStatusEvent(room, lastId))
	}

	s.queueEvent(HistoryEvent(ev.Id, room, history))
}

func (s *Session) handleMessage(ev *ClientEvent) {
	msg := ev.Message
	if !s.inRoom() || msg.Recipient == "" {
		return
	}

	saved, err := s.relay.db.AppendMessage(database.AppendMessageParams{
		Sender:    s.username,
		Recipient: msg.Recipient,
		Room:      s.room,
		Text:      msg.Text,
		Type:      "text",
	})
	if err != nil {
		s.log.Println("append message:", err)
		return
	}

	s.relay.relayToRoom(s.room, MessageEvent(toWireMessage(saved)))
	s.relay.stats.Incr(stats.MessagesRelayed)
}

func (s *Session) handleFile(ev *ClientEvent) {
	file := ev.File
	if !s.inRoom() || file.Recipient == "" || file.Data == "" {
		return
	}

	// the payload must be stored before the message is persisted or
	// broadcast; a failed write aborts the whole send
	url, err := s.relay.files.Save(file.Filename, file.Data)
	if err != nil {
		s.log.Println("save file:", err)
		return
	}
	s.relay.stats.Incr(stats.FilesStored)

	msgType := file.Type
	if msgType == "" {
		msgType = "file"
	}

	saved, err := s.relay.db.AppendMessage(database.AppendMessageParams{
		Sender:    s.username,
		Recipient: file.Recipient,
		Room:      s.room,
		Text:      file.Filename,
		URL:       url,
		Type:      msgType,
	})
	if err != nil {
		s.log.Println("append file message:", err)
		return
	}

	s.relay.relayToRoom(s.room, MessageEvent(toWireMessage(saved)))
	s.relay.stats.Incr(stats.MessagesRelayed)
}

func (s *Session) handleRead(ev *ClientEvent) {
	read := ev.Read
	if !s.loggedIn() || read.Room == "" || read.LastMessageId <= 0 {
		return
	}

	if err := s.relay.db.AdvanceReadCursor(read.Room, read.LastMessageId, s.username); err != nil {
		s.log.Println("advance read cursor:", err)
		return
	}

	s.relay.sendTo(read.Recipient, ReadStatusEvent(read.Room, read.LastMessageId))
}

func (s *Session) handleSearch(ev *ClientEvent) {
	if !s.inRoom() || ev.Search.Query == "" {
		return
	}

	dbMessages, err := s.relay.db.Search(s.room, ev.Search.Query)
	if err != nil {
		s.log.Println("search history:", err)
		return
	}

	s.queueEvent(&ServerEvent{
		Id:            ev.Id,
		Timestamp:     Now(),
		SearchResults: &SearchResults{Messages: toWireMessages(dbMessages)},
	})
}

func (s *Session) handleEdit(ev *ClientEvent) {
	edit := ev.Edit
	if !s.inRoom() || edit.MessageId <= 0 || edit.NewText == "" {
		return
	}

	if err := s.relay.db.EditMessage(edit.MessageId, edit.NewText); err != nil {
		s.log.Println("edit message:", err)
		return
	}

	s.relay.relayToRoom(s.room, &ServerEvent{
		Timestamp: Now(),
		Edited:    &Edited{MessageId: edit.MessageId, NewText: edit.NewText},
	})
}

func (s *Session) handleDelete(ev *ClientEvent) {
	del := ev.Delete
	if !s.inRoom() || del.MessageId <= 0 {
		return
	}

	if err := s.relay.db.SoftDeleteMessage(del.MessageId); err != nil {
		s.log.Println("delete message:", err)
		return
	}

	s.relay.relayToRoom(s.room, &ServerEvent{
		Timestamp: Now(),
		Deleted:   &Deleted{MessageId: del.MessageId},
	})
}

// handleProfile applies an avatar change. The payload's NewUsername is
// accepted but never applied; usernames are fixed at seed time.
func (s *Session) handleProfile(ev *ClientEvent) {
	profile := ev.Profile

	user, err := s.relay.creds.UpdateAvatar(profile.OldUsername, profile.NewAvatar)
	if err != nil {
		ack := &ProfileAck{Success: false, Error: "user not found"}
		if !errors.Is(err, creds.ErrNotFound) {
			s.log.Println("update avatar:", err)
			ack.Error = "profile update failed"
		}
		s.queueEvent(&ServerEvent{Id: ev.Id, Timestamp: Now(), ProfileAck: ack})
		return
	}

	avatars := s.relay.creds.Avatars()
	s.relay.broadcastAll(AvatarsEvent(avatars))

	s.queueEvent(&ServerEvent{
		Id:        ev.Id,
		Timestamp: Now(),
		ProfileAck: &ProfileAck{
			Success:     true,
			UpdatedUser: &user,
			AllAvatars:  avatars,
		},
	})
}

func (s *Session) handleTyping(ev *ClientEvent) {
	typing := ev.Typing
	if !s.loggedIn() || typing.Recipient == "" {
		return
	}

	// transient signal, nothing is persisted
	s.relay.sendTo(typing.Recipient, &ServerEvent{
		Timestamp: Now(),
		Typing:    &TypingEvent{Sender: s.username, IsTyping: typing.IsTyping},
	})
}

func (s *Session) writeMessage(msgType int, msg []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (s *Session) queueEvent(ev *ServerEvent) bool {
	select {
	case s.send <- ev:
	default:
		s.log.Printf("send buffer full on session %s, dropping event", s.id)
		return false
	}

	return true
}

func (s *Session) stopSession() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Session) cleanup() {
	s.relay.dropConnection(s)
	s.stopSession()
}

func toWireMessage(msg database.Message) types.Message {
	return types.Message{
		Id:        msg.Id,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Room:      msg.Room,
		Text:      msg.Text,
		URL:       msg.URL,
		Type:      msg.Type,
		Timestamp: msg.Timestamp,
		Edited:    msg.Edited,
		Deleted:   msg.Deleted,
		IsRead:    msg.IsRead,
	}
}

func toWireMessages(msgs []database.Message) []types.Message {
	wire := make([]types.Message, len(msgs))
	for i, msg := range msgs {
		wire[i] = toWireMessage(msg)
	}

	return wire
}
