package server

import (
	"context"
	"errors"
	"log"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
	"github.com/palemoky/uno-lobby/internal/protocol/convert"
	"github.com/palemoky/uno-lobby/internal/server/storage"
	"github.com/palemoky/uno-lobby/internal/types"
)

type lobbyWatch struct {
	lobbyID string
	cancel  context.CancelFunc
}

// WatchLobby 订阅房间变更，每次变更向客户端推送最新快照。
// 同一客户端重复订阅时替换旧订阅
func (s *Server) WatchLobby(client types.ClientInterface, lobbyID string) error {
	s.UnwatchLobby(client)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := s.repo.Watch(ctx, lobbyID)
	if err != nil {
		cancel()
		return err
	}

	s.watchMu.Lock()
	s.watches[client.GetID()] = &lobbyWatch{lobbyID: lobbyID, cancel: cancel}
	s.watchMu.Unlock()

	go s.forwardChanges(ctx, client, lobbyID, events)
	return nil
}

// UnwatchLobby 取消客户端的房间订阅
func (s *Server) UnwatchLobby(client types.ClientInterface) {
	s.watchMu.Lock()
	w, ok := s.watches[client.GetID()]
	delete(s.watches, client.GetID())
	s.watchMu.Unlock()

	if ok {
		w.cancel()
	}
}

// EndWatch 结束指定房间的订阅，客户端已改订其他房间时不受影响。
// 返回是否确实结束了订阅
func (s *Server) EndWatch(client types.ClientInterface, lobbyID string) bool {
	s.watchMu.Lock()
	w, ok := s.watches[client.GetID()]
	if ok && w.lobbyID == lobbyID {
		delete(s.watches, client.GetID())
	} else {
		ok = false
	}
	s.watchMu.Unlock()

	if ok {
		w.cancel()
	}
	return ok
}

func (s *Server) watchCount() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return len(s.watches)
}

// forwardChanges 将变更事件转换为客户端消息，房间删除后结束
func (s *Server) forwardChanges(ctx context.Context, client types.ClientInterface, lobbyID string, events <-chan storage.ChangeEvent) {
	for ev := range events {
		// 已退订时丢弃缓冲中残留的事件
		if ctx.Err() != nil {
			return
		}
		if ev.Op == storage.OpDeleted {
			s.notifyDeleted(client, lobbyID)
			s.EndWatch(client, lobbyID)
			return
		}

		rec, err := s.lobbies.GetLobby(ctx, lobbyID)
		switch {
		case errors.Is(err, apperrors.ErrLobbyNotFound):
			s.notifyDeleted(client, lobbyID)
			s.EndWatch(client, lobbyID)
			return
		case err != nil:
			if ctx.Err() == nil {
				log.Printf("⚠️ 读取房间 %s 快照失败: %v", lobbyID, err)
			}
			continue
		}

		client.SendMessage(codec.MustNewMessage(protocol.MsgLobbySnapshot, protocol.LobbySnapshotPayload{
			Lobby: convert.RecordToLobbyInfo(lobbyID, rec),
		}))
	}
}

func (s *Server) notifyDeleted(client types.ClientInterface, lobbyID string) {
	if client.GetLobby() == lobbyID {
		client.SetLobby("")
		s.sessionManager.ClearPlayer(client.GetName())
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbyDeleted, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}
