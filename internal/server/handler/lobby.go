package handler

import (
	"context"
	"errors"
	"log"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/game/player"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
	"github.com/palemoky/uno-lobby/internal/protocol/convert"
	"github.com/palemoky/uno-lobby/internal/types"
)

// handleCreateLobby 处理创建房间
func (h *Handler) handleCreateLobby(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.CreateLobbyPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	// 如果已在房间中，先离开
	if client.GetLobby() != "" {
		h.leaveCurrent(ctx, client)
	}

	match, host, err := h.lobbies.NewLobby(ctx, client.GetName(), payload.Name)
	if err != nil {
		sendError(client, err)
		return
	}

	h.bind(client, match.ID, host)
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbyCreated, protocol.LobbyCreatedPayload{
		Lobby:  convert.RecordToLobbyInfo(match.ID, &match.Record),
		Player: convert.PlayerToInfo(host),
	}))
}

// handleJoinLobby 处理加入房间。重复加入时沿用文档中已有的玩家
func (h *Handler) handleJoinLobby(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.LobbyIDPayload](msg)
	if err != nil || payload.LobbyID == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if current := client.GetLobby(); current != "" && current != payload.LobbyID {
		h.leaveCurrent(ctx, client)
	}

	p, err := h.lobbies.JoinLobby(ctx, client.GetName(), payload.LobbyID)
	if errors.Is(err, apperrors.ErrDuplicateJoin) {
		p, err = h.existingPlayer(ctx, client.GetName(), payload.LobbyID)
	}
	if err != nil {
		sendError(client, err)
		return
	}

	h.bind(client, payload.LobbyID, p)
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbyJoined, protocol.LobbyJoinedPayload{
		LobbyID: payload.LobbyID,
		Player:  convert.PlayerToInfo(p),
	}))
}

// handleLeaveLobby 处理离开房间
func (h *Handler) handleLeaveLobby(ctx context.Context, client types.ClientInterface) {
	lobbyID := client.GetLobby()
	if lobbyID == "" {
		sendError(client, apperrors.ErrNotInLobby)
		return
	}

	if err := h.leaveCurrent(ctx, client); err != nil {
		sendError(client, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbyLeft, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// handleStartLobby 处理开始游戏，未指定房间时使用当前房间
func (h *Handler) handleStartLobby(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	lobbyID, ok := h.targetLobby(client, msg)
	if !ok {
		return
	}

	if err := h.lobbies.StartLobby(ctx, lobbyID); err != nil {
		sendError(client, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbyStarted, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// handleDeleteLobby 处理删除房间
func (h *Handler) handleDeleteLobby(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	lobbyID, ok := h.targetLobby(client, msg)
	if !ok {
		return
	}

	// 先退订，删除通知只由本次回复发出
	watched := h.server.EndWatch(client, lobbyID)
	if err := h.lobbies.DeleteLobby(ctx, lobbyID); err != nil {
		if watched {
			if werr := h.server.WatchLobby(client, lobbyID); werr != nil {
				log.Printf("⚠️ 恢复订阅房间 %s 失败: %v", lobbyID, werr)
			}
		}
		sendError(client, err)
		return
	}
	if client.GetLobby() == lobbyID {
		h.unbind(client)
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbyDeleted, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// handleSearchLobby 处理按名称前缀搜索
func (h *Handler) handleSearchLobby(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.SearchLobbyPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	matches, err := h.lobbies.SearchLobby(ctx, payload.Name)
	if err != nil {
		sendError(client, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgSearchResult, protocol.SearchResultPayload{
		Lobbies: convert.MatchesToList(matches),
	}))
}

// handleWatchLobby 订阅房间变化并立即推送一次快照
func (h *Handler) handleWatchLobby(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	lobbyID, ok := h.targetLobby(client, msg)
	if !ok {
		return
	}

	// 先订阅再读取快照，读取之后的变更都会被推送
	if err := h.server.WatchLobby(client, lobbyID); err != nil {
		sendError(client, err)
		return
	}
	rec, err := h.lobbies.GetLobby(ctx, lobbyID)
	if err != nil {
		h.server.EndWatch(client, lobbyID)
		sendError(client, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLobbySnapshot, protocol.LobbySnapshotPayload{
		Lobby: convert.RecordToLobbyInfo(lobbyID, rec),
	}))
}

// handleUpdateDrawPile 处理更新公共牌堆
func (h *Handler) handleUpdateDrawPile(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.UpdateDrawPilePayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	lobbyID := payload.LobbyID
	if lobbyID == "" {
		lobbyID = client.GetLobby()
	}
	if lobbyID == "" {
		sendError(client, apperrors.ErrNotInLobby)
		return
	}

	c, err := convert.InfoToCard(payload.Card)
	if err != nil {
		sendError(client, apperrors.ErrInvalidCard)
		return
	}
	if err := h.lobbies.UpdateDrawPile(ctx, lobbyID, c); err != nil {
		sendError(client, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgDrawPileUpdated, protocol.DrawPileUpdatedPayload{
		LobbyID: lobbyID,
		Card:    convert.CardToInfo(c),
	}))
}

// targetLobby 取 payload 中的房间 ID，缺省为客户端当前房间
func (h *Handler) targetLobby(client types.ClientInterface, msg *protocol.Message) (string, bool) {
	payload, err := codec.ParsePayload[protocol.LobbyIDPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return "", false
	}
	if payload.LobbyID != "" {
		return payload.LobbyID, true
	}
	if current := client.GetLobby(); current != "" {
		return current, true
	}
	sendError(client, apperrors.ErrNotInLobby)
	return "", false
}

// existingPlayer 从房间文档中还原已加入的玩家
func (h *Handler) existingPlayer(ctx context.Context, name, lobbyID string) (player.Player, error) {
	rec, err := h.lobbies.GetLobby(ctx, lobbyID)
	if err != nil {
		return player.Player{}, err
	}
	idx := rec.IndexOf(name)
	if idx < 0 {
		return player.Player{}, apperrors.ErrNotInLobby
	}
	return player.FromRecord(rec.Users[idx], lobbyID), nil
}

// leaveCurrent 离开客户端当前房间并解除绑定
func (h *Handler) leaveCurrent(ctx context.Context, client types.ClientInterface) error {
	lobbyID := client.GetLobby()
	if err := h.lobbies.LeaveLobby(ctx, lobbyID, client.GetName()); err != nil {
		log.Printf("⚠️ 玩家 %s 离开房间 %s 失败: %v", client.GetName(), lobbyID, err)
		return err
	}
	h.unbind(client)
	return nil
}

func (h *Handler) bind(client types.ClientInterface, lobbyID string, p player.Player) {
	client.SetLobby(lobbyID)
	h.sessionManager.SetPlayer(client.GetName(), p)
	if err := h.server.WatchLobby(client, lobbyID); err != nil {
		log.Printf("⚠️ 订阅房间 %s 失败: %v", lobbyID, err)
	}
}

func (h *Handler) unbind(client types.ClientInterface) {
	client.SetLobby("")
	h.sessionManager.ClearPlayer(client.GetName())
	h.server.UnwatchLobby(client)
}
