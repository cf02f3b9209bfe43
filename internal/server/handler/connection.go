package handler

import (
	"context"
	"log"
	"time"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
	"github.com/palemoky/uno-lobby/internal/protocol/convert"
	"github.com/palemoky/uno-lobby/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(_ context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		return
	}

	// 立即回复 pong
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// handleReconnect 处理断线重连：恢复本地玩家与房间订阅
func (h *Handler) handleReconnect(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ReconnectPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	name := client.GetName()
	if !h.sessionManager.CanReconnect(payload.Token, name) {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnauthorized, "重连令牌无效或已过期"))
		return
	}
	h.sessionManager.SetOnline(name)

	reply := protocol.ReconnectedPayload{PlayerName: name}
	if p, ok := h.sessionManager.CurrentPlayer(name); ok {
		lobbyID, _ := p.LobbyID()
		rec, err := h.lobbies.GetLobby(ctx, lobbyID)
		switch {
		case err == nil && rec.HasPlayer(name):
			client.SetLobby(lobbyID)
			if err := h.server.WatchLobby(client, lobbyID); err != nil {
				log.Printf("⚠️ 订阅房间 %s 失败: %v", lobbyID, err)
			}
			info := convert.PlayerToInfo(p)
			reply.LobbyID = lobbyID
			reply.Player = &info
		case err == nil, apperrors.Code(err) == protocol.ErrCodeLobbyNotFound:
			// 房间已删除或玩家已被移出
			h.sessionManager.ClearPlayer(name)
		default:
			sendError(client, err)
			return
		}
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgReconnected, reply))
	log.Printf("🔄 玩家 %s 重连成功", name)
}
