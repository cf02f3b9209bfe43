package lobby

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/game/player"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

// errPlayerAbsent 离开时玩家不在房间，跳过写入
var errPlayerAbsent = errors.New("player not in lobby")

// NewLobby 创建房间，调用者成为房主
func (m *Manager) NewLobby(ctx context.Context, caller, name string) (*storage.LobbyMatch, player.Player, error) {
	if strings.TrimSpace(name) == "" {
		return nil, player.Player{}, apperrors.ErrInvalidLobbyName
	}

	host, err := player.New(caller)
	if err != nil {
		return nil, player.Player{}, err
	}
	host = host.WithHost()

	rec := &storage.LobbyRecord{
		Name:      name,
		Pioche:    card.New(),
		Started:   false,
		Users:     []storage.PlayerRecord{host.Record()},
		PlayingID: 0,
		HostName:  host.Name(),
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	id, err := m.store.Create(ctx, rec)
	if err != nil {
		return nil, player.Player{}, err
	}
	host = host.WithLobbyID(id)

	log.Printf("🏠 房间 %s (%s) 已创建，房主 %s", name, id, caller)

	return &storage.LobbyMatch{ID: id, Record: *rec}, host, nil
}

// StartLobby 开始游戏。不检查最少人数
func (m *Manager) StartLobby(ctx context.Context, id string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.SetStarted(ctx, id); err != nil {
		return err
	}
	log.Printf("🎮 房间 %s 已开始", id)
	return nil
}

// JoinLobby 加入房间。已在房间中返回 ErrDuplicateJoin（非致命）。
// 读改写在 Store.Update 的乐观锁内完成，并发加入不会互相覆盖。
func (m *Manager) JoinLobby(ctx context.Context, caller, id string) (player.Player, error) {
	p, err := player.New(caller)
	if err != nil {
		return player.Player{}, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	_, err = m.store.Update(ctx, id, func(rec *storage.LobbyRecord) error {
		if rec.HasPlayer(caller) {
			return apperrors.ErrDuplicateJoin
		}
		rec.Users = append(rec.Users, p.Record())
		return nil
	})
	if errors.Is(err, apperrors.ErrDuplicateJoin) {
		log.Printf("⚠️ 玩家 %s 已在房间 %s 中，忽略重复加入", caller, id)
		return player.Player{}, err
	}
	if err != nil {
		return player.Player{}, err
	}

	log.Printf("👤 玩家 %s 加入房间 %s", caller, id)
	return p.WithLobbyID(id), nil
}

// LeaveLobby 将指定玩家移出房间，玩家不在房间时什么也不做。
// playingId 随之平移，保证仍指向同一名玩家。
func (m *Manager) LeaveLobby(ctx context.Context, id, name string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	_, err := m.store.Update(ctx, id, func(rec *storage.LobbyRecord) error {
		idx := rec.IndexOf(name)
		if idx < 0 {
			return errPlayerAbsent
		}

		rec.Users = slices.Delete(rec.Users, idx, idx+1)
		switch {
		case idx < rec.PlayingID:
			rec.PlayingID--
		case rec.PlayingID >= len(rec.Users):
			rec.PlayingID = 0
		}
		return nil
	})
	if errors.Is(err, errPlayerAbsent) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("👋 玩家 %s 离开房间 %s", name, id)
	return nil
}

// DeleteLobby 删除房间
func (m *Manager) DeleteLobby(ctx context.Context, id string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("🏠 房间 %s 已删除", id)
	return nil
}

// UpdateDrawPile 更新公共牌堆顶并写回共享文档
func (m *Manager) UpdateDrawPile(ctx context.Context, id string, c card.Card) error {
	if !c.Valid() {
		return apperrors.ErrInvalidCard
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.store.SetDrawPile(ctx, id, c)
}
