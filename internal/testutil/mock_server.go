//go:build !production

package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/palemoky/uno-lobby/internal/types"
)

// MockServer 实现 types.ServerInterface 的 mock
type MockServer struct {
	mock.Mock
}

func (m *MockServer) GetOnlineCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockServer) WatchLobby(client types.ClientInterface, lobbyID string) error {
	args := m.Called(client, lobbyID)
	return args.Error(0)
}

func (m *MockServer) UnwatchLobby(client types.ClientInterface) {
	m.Called(client)
}

func (m *MockServer) EndWatch(client types.ClientInterface, lobbyID string) bool {
	args := m.Called(client, lobbyID)
	return args.Bool(0)
}
