package server

import (
	"time"

	"privchat/internal/types"
)

// ClientEvent is the envelope for everything a connection sends. Exactly one
// of the pointer fields is expected to be set.
type ClientEvent struct {
	Id      int             `json:"id,omitempty"`
	Login   *Login          `json:"login,omitempty"`
	Join    *Join           `json:"join,omitempty"`
	Message *PrivateMessage `json:"message,omitempty"`
	File    *FileUpload     `json:"file,omitempty"`
	Read    *MessageRead    `json:"read,omitempty"`
	Search  *Search         `json:"search,omitempty"`
	Edit    *Edit           `json:"edit,omitempty"`
	Delete  *Delete         `json:"delete,omitempty"`
	Profile *ProfileUpdate  `json:"profile,omitempty"`
	Typing  *Typing         `json:"typing,omitempty"`
}

type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Join names the counterpart to open a conversation with. The room id is
// derived server-side, never trusted from the client.
type Join struct {
	Username string `json:"username"`
}

type PrivateMessage struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

type FileUpload struct {
	Recipient string `json:"recipient"`
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	Data      string `json:"data"`
}

type MessageRead struct {
	Room          string `json:"room"`
	LastMessageId int64  `json:"last_message_id"`
	Recipient     string `json:"recipient"`
}

type Search struct {
	Query string `json:"query"`
}

type Edit struct {
	MessageId int64  `json:"message_id"`
	NewText   string `json:"new_text"`
	Recipient string `json:"recipient"`
}

type Delete struct {
	MessageId int64 `json:"message_id"`
}

// ProfileUpdate carries a NewUsername field for wire compatibility, but only
// the avatar is ever applied.
type ProfileUpdate struct {
	NewUsername string `json:"new_username"`
	NewAvatar   string `json:"new_avatar"`
	OldUsername string `json:"old_username"`
}

type Typing struct {
	Recipient string `json:"recipient"`
	IsTyping  bool   `json:"is_typing"`
}

// ServerEvent is the envelope for everything delivered to a connection.
type ServerEvent struct {
	Id            int               `json:"id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	LoginAck      *LoginAck         `json:"login_ack,omitempty"`
	History       *HistoryLoaded    `json:"history,omitempty"`
	Message       *types.Message    `json:"message,omitempty"`
	ReadStatus    *ReadStatus       `json:"read_status,omitempty"`
	SearchResults *SearchResults    `json:"search_results,omitempty"`
	Edited        *Edited           `json:"edited,omitempty"`
	Deleted       *Deleted          `json:"deleted,omitempty"`
	ProfileAck    *ProfileAck       `json:"profile_ack,omitempty"`
	Typing        *TypingEvent      `json:"typing,omitempty"`
	Statuses      map[string]bool   `json:"statuses,omitempty"`
	Avatars       map[string]string `json:"avatars,omitempty"`
}

type LoginAck struct {
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	AllUsers        []string          `json:"all_users,omitempty"`
	CurrentUser     *types.User       `json:"current_user,omitempty"`
	AllUsersAvatars map[string]string `json:"all_users_avatars,omitempty"`
	InitialStatuses map[string]bool   `json:"initial_statuses,omitempty"`
}

type HistoryLoaded struct {
	Room     string          `json:"room"`
	Messages []types.Message `json:"messages"`
}

type ReadStatus struct {
	Room       string `json:"room"`
	LastReadId int64  `json:"last_read_id"`
}

type SearchResults struct {
	Messages []types.Message `json:"messages"`
}

type Edited struct {
	MessageId int64  `json:"message_id"`
	NewText   string `json:"new_text"`
}

type Deleted struct {
	MessageId int64 `json:"message_id"`
}

type ProfileAck struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	UpdatedUser *types.User       `json:"updated_user,omitempty"`
	AllAvatars  map[string]string `json:"all_avatars,omitempty"`
}

type TypingEvent struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"is_typing"`
}

func LoginOK(id int, user types.User, allUsers []string, avatars map[string]string, statuses map[string]bool) *ServerEvent {
	return &ServerEvent{
		Id:        id,
		Timestamp: Now(),
		LoginAck: &LoginAck{
			Success:         true,
			AllUsers:        allUsers,
			CurrentUser:     &user,
			AllUsersAvatars: avatars,
			InitialStatuses: statuses,
		},
	}
}

func LoginFailed(id int) *ServerEvent {
	return &ServerEvent{
		Id:        id,
		Timestamp: Now(),
		LoginAck: &LoginAck{
			Success: false,
			Error:   "invalid username or password",
		},
	}
}

func HistoryEvent(id int, room string, messages []types.Message) *ServerEvent {
	return &ServerEvent{
		Id:        id,
		Timestamp: Now(),
		History:   &HistoryLoaded{Room: room, Messages: messages},
	}
}

func MessageEvent(msg types.Message) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		Message:   &msg,
	}
}

func ReadStatusEvent(room string, lastReadId int64) *ServerEvent {
	return &ServerEvent{
		Timestamp:  Now(),
		ReadStatus: &ReadStatus{Room: room, LastReadId: lastReadId},
	}
}

func StatusesEvent(statuses map[string]bool) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		Statuses:  statuses,
	}
}

func AvatarsEvent(avatars map[string]string) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		Avatars:   avatars,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
