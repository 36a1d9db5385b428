package database

type Repository interface {
	Ping() error
	EnsureSchema() error
	AppendMessage(params AppendMessageParams) (Message, error)
	History(room, viewer string) ([]Message, error)
	AdvanceReadCursor(room string, messageId int64, readBy string) error
	ReadCursor(room string) (int64, error)
	Search(room, substring string) ([]Message, error)
	EditMessage(id int64, newText string) error
	SoftDeleteMessage(id int64) error
}
