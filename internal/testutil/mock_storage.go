//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/game/player"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

// MockLobbyStore 房间文档存储 mock
type MockLobbyStore struct {
	mock.Mock
}

func (m *MockLobbyStore) Create(ctx context.Context, rec *storage.LobbyRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *MockLobbyStore) Read(ctx context.Context, id string) (*storage.LobbyRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.LobbyRecord), args.Error(1)
}

func (m *MockLobbyStore) Update(ctx context.Context, id string, fn func(rec *storage.LobbyRecord) error) (*storage.LobbyRecord, error) {
	args := m.Called(ctx, id, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.LobbyRecord), args.Error(1)
}

func (m *MockLobbyStore) SetStarted(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLobbyStore) SetDrawPile(ctx context.Context, id string, c card.Card) error {
	args := m.Called(ctx, id, c)
	return args.Error(0)
}

func (m *MockLobbyStore) SearchByNamePrefix(ctx context.Context, prefix string) ([]storage.LobbyMatch, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.LobbyMatch), args.Error(1)
}

func (m *MockLobbyStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockLobbyService 实现 types.LobbyService 的 mock
type MockLobbyService struct {
	mock.Mock
}

func (m *MockLobbyService) NewLobby(ctx context.Context, caller, name string) (*storage.LobbyMatch, player.Player, error) {
	args := m.Called(ctx, caller, name)
	var match *storage.LobbyMatch
	if args.Get(0) != nil {
		match = args.Get(0).(*storage.LobbyMatch)
	}
	return match, args.Get(1).(player.Player), args.Error(2)
}

func (m *MockLobbyService) JoinLobby(ctx context.Context, caller, id string) (player.Player, error) {
	args := m.Called(ctx, caller, id)
	return args.Get(0).(player.Player), args.Error(1)
}

func (m *MockLobbyService) LeaveLobby(ctx context.Context, id, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockLobbyService) StartLobby(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLobbyService) DeleteLobby(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLobbyService) UpdateDrawPile(ctx context.Context, id string, c card.Card) error {
	args := m.Called(ctx, id, c)
	return args.Error(0)
}

func (m *MockLobbyService) SearchLobby(ctx context.Context, name string) ([]storage.LobbyMatch, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.LobbyMatch), args.Error(1)
}

func (m *MockLobbyService) GetLobby(ctx context.Context, id string) (*storage.LobbyRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.LobbyRecord), args.Error(1)
}
