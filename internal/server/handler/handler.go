package handler

import (
	"context"
	"errors"
	"log"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
	"github.com/palemoky/uno-lobby/internal/server/session"
	"github.com/palemoky/uno-lobby/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server         types.ServerInterface
	Lobbies        types.LobbyService
	SessionManager *session.SessionManager
}

// Handler 消息处理器
type Handler struct {
	server         types.ServerInterface
	lobbies        types.LobbyService
	sessionManager *session.SessionManager
	handlers       map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(ctx context.Context, client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:         deps.Server,
		lobbies:        deps.Lobbies,
		sessionManager: deps.SessionManager,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:      h.handlePing,
		protocol.MsgReconnect: h.handleReconnect,

		// 房间操作
		protocol.MsgCreateLobby:    h.handleCreateLobby,
		protocol.MsgJoinLobby:      h.handleJoinLobby,
		protocol.MsgLeaveLobby:     func(ctx context.Context, c types.ClientInterface, _ *protocol.Message) { h.handleLeaveLobby(ctx, c) },
		protocol.MsgStartLobby:     h.handleStartLobby,
		protocol.MsgDeleteLobby:    h.handleDeleteLobby,
		protocol.MsgSearchLobby:    h.handleSearchLobby,
		protocol.MsgWatchLobby:     h.handleWatchLobby,
		protocol.MsgUpdateDrawPile: h.handleUpdateDrawPile,
	}
}

// Handle 处理消息
func (h *Handler) Handle(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(ctx, client, msg)
		return
	}

	log.Printf("⚠️  未知消息类型: '%s' (来自玩家: %s, ID: %s)", msg.Type, client.GetName(), client.GetID())
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// sendError 将业务错误转换为错误消息，存储故障不向客户端暴露细节
func sendError(client types.ClientInterface, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
		return
	}

	log.Printf("❌ 玩家 %s 请求失败: %v", client.GetName(), err)
	client.SendMessage(codec.NewErrorMessage(apperrors.Code(err)))
}
