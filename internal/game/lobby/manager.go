package lobby

import (
	"context"
	"time"

	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

// Store 房间文档存储，由 storage.LobbyRepository 实现
type Store interface {
	Create(ctx context.Context, rec *storage.LobbyRecord) (string, error)
	Read(ctx context.Context, id string) (*storage.LobbyRecord, error)
	Update(ctx context.Context, id string, fn func(rec *storage.LobbyRecord) error) (*storage.LobbyRecord, error)
	SetStarted(ctx context.Context, id string) error
	SetDrawPile(ctx context.Context, id string, c card.Card) error
	SearchByNamePrefix(ctx context.Context, prefix string) ([]storage.LobbyMatch, error)
	Delete(ctx context.Context, id string) error
}

// Manager 房间生命周期编排，只通过 Store 访问远程文档
type Manager struct {
	store     Store
	opTimeout time.Duration
}

// NewManager 创建房间管理器，opTimeout 为单次存储操作超时，0 表示不限制
func NewManager(store Store, opTimeout time.Duration) *Manager {
	return &Manager{
		store:     store,
		opTimeout: opTimeout,
	}
}

// SearchLobby 按名称前缀查找未开始的房间
func (m *Manager) SearchLobby(ctx context.Context, name string) ([]storage.LobbyMatch, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.store.SearchByNamePrefix(ctx, name)
}

// GetLobby 读取房间当前文档
func (m *Manager) GetLobby(ctx context.Context, id string) (*storage.LobbyRecord, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.store.Read(ctx, id)
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opTimeout)
}
