package client

import (
	"time"

	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
)

// CreateLobby 创建房间
func (c *Client) CreateLobby(name string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgCreateLobby, protocol.CreateLobbyPayload{Name: name}))
}

// JoinLobby 加入房间
func (c *Client) JoinLobby(lobbyID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoinLobby, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// LeaveLobby 离开当前房间
func (c *Client) LeaveLobby() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgLeaveLobby, nil))
}

// StartLobby 开始游戏，lobbyID 为空时为当前房间
func (c *Client) StartLobby(lobbyID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgStartLobby, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// DeleteLobby 删除房间
func (c *Client) DeleteLobby(lobbyID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgDeleteLobby, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// SearchLobby 按名称前缀搜索
func (c *Client) SearchLobby(prefix string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgSearchLobby, protocol.SearchLobbyPayload{Name: prefix}))
}

// WatchLobby 订阅房间变化
func (c *Client) WatchLobby(lobbyID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgWatchLobby, protocol.LobbyIDPayload{LobbyID: lobbyID}))
}

// UpdateDrawPile 更新公共牌堆
func (c *Client) UpdateDrawPile(lobbyID string, card protocol.CardInfo) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgUpdateDrawPile, protocol.UpdateDrawPilePayload{
		LobbyID: lobbyID,
		Card:    card,
	}))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}

// Reconnect 使用之前连接下发的令牌恢复房间
func (c *Client) Reconnect(token string) error {
	if token == "" {
		return ErrNoToken
	}
	return c.SendMessage(codec.MustNewMessage(protocol.MsgReconnect, protocol.ReconnectPayload{Token: token}))
}
