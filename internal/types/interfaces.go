package types

import (
	"context"

	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/game/player"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	GetOnlineCount() int
	// WatchLobby 订阅房间变更并向客户端推送快照，同一客户端只保留一个订阅
	WatchLobby(client ClientInterface, lobbyID string) error
	UnwatchLobby(client ClientInterface)
	// EndWatch 仅当客户端订阅的是 lobbyID 时取消订阅
	EndWatch(client ClientInterface, lobbyID string) bool
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetID() string
	GetName() string
	GetLobby() string
	SetLobby(id string)
	SendMessage(msg *protocol.Message)
	Close()
}

// LobbyService 房间编排服务，由 lobby.Manager 实现
type LobbyService interface {
	NewLobby(ctx context.Context, caller, name string) (*storage.LobbyMatch, player.Player, error)
	JoinLobby(ctx context.Context, caller, id string) (player.Player, error)
	LeaveLobby(ctx context.Context, id, name string) error
	StartLobby(ctx context.Context, id string) error
	DeleteLobby(ctx context.Context, id string) error
	UpdateDrawPile(ctx context.Context, id string, c card.Card) error
	SearchLobby(ctx context.Context, name string) ([]storage.LobbyMatch, error)
	GetLobby(ctx context.Context, id string) (*storage.LobbyRecord, error)
}
