package database

import (
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) EnsureSchema() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) AppendMessage(params AppendMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockRepository) History(room, viewer string) ([]Message, error) {
	args := m.Called(room, viewer)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) AdvanceReadCursor(room string, messageId int64, readBy string) error {
	args := m.Called(room, messageId, readBy)
	return args.Error(0)
}

func (m *MockRepository) ReadCursor(room string) (int64, error) {
	args := m.Called(room)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Search(room, substring string) ([]Message, error) {
	args := m.Called(room, substring)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) EditMessage(id int64, newText string) error {
	args := m.Called(id, newText)
	return args.Error(0)
}

func (m *MockRepository) SoftDeleteMessage(id int64) error {
	args := m.Called(id)
	return args.Error(0)
}
